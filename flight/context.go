package flight

import (
	"context"

	"google.golang.org/grpc/metadata"

	"github.com/hugr-lab/recfilter/internal/requestid"
)

type contextKey int

const (
	callMetaKey contextKey = iota
)

// Metadata header keys for observability.
const (
	// HeaderTraceID is the gRPC metadata header for distributed trace identifier.
	HeaderTraceID = "recfilter-trace-id"
	// HeaderSessionID is the gRPC metadata header for client session identifier.
	HeaderSessionID = "recfilter-client-session-id"
	// HeaderRequestID is the gRPC metadata header for the request identifier.
	HeaderRequestID = requestid.Header
)

// CallMeta holds per-call identifiers taken from gRPC metadata.
type CallMeta struct {
	RequestID string
	TraceID   string
	SessionID string
}

// LogAttrs returns the non-empty identifiers as slog key/value pairs.
func (m *CallMeta) LogAttrs() []any {
	if m == nil {
		return nil
	}
	attrs := []any{"request_id", m.RequestID}
	if m.TraceID != "" {
		attrs = append(attrs, "trace_id", m.TraceID)
	}
	if m.SessionID != "" {
		attrs = append(attrs, "session_id", m.SessionID)
	}
	return attrs
}

// WithCallMeta returns a copy of ctx carrying meta.
func WithCallMeta(ctx context.Context, meta CallMeta) context.Context {
	return context.WithValue(ctx, callMetaKey, &meta)
}

// MetaFromContext returns the call metadata attached by the interceptors,
// or nil outside a handled call.
func MetaFromContext(ctx context.Context) *CallMeta {
	meta, _ := ctx.Value(callMetaKey).(*CallMeta)
	return meta
}

// RequestIDFromContext returns the request ID from context, or empty string if not set.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := requestid.FromContext(ctx)
	return id
}

// TraceIDFromContext returns the trace ID from context, or empty string if not set.
func TraceIDFromContext(ctx context.Context) string {
	if meta := MetaFromContext(ctx); meta != nil {
		return meta.TraceID
	}
	return ""
}

// SessionIDFromContext returns the session ID from context, or empty string if not set.
func SessionIDFromContext(ctx context.Context) string {
	if meta := MetaFromContext(ctx); meta != nil {
		return meta.SessionID
	}
	return ""
}

// EnrichContextMetadata extracts call identifiers from gRPC metadata and
// returns a new context with them stored. A request ID is generated when
// the client did not send one. An already enriched context is returned
// unchanged.
func EnrichContextMetadata(ctx context.Context) context.Context {
	if MetaFromContext(ctx) != nil {
		return ctx
	}

	var meta CallMeta
	ctx, meta.RequestID = requestid.Ensure(ctx)
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(HeaderTraceID); len(values) > 0 {
			meta.TraceID = values[0]
		}
		if values := md.Get(HeaderSessionID); len(values) > 0 {
			meta.SessionID = values[0]
		}
	}
	return WithCallMeta(ctx, meta)
}
