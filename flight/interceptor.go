package flight

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// UnaryServerInterceptor enriches the call context with request metadata,
// returns the request ID in the response header and logs the outcome of
// each unary call.
func UnaryServerInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx = EnrichContextMetadata(ctx)
		if err := grpc.SetHeader(ctx, requestIDHeader(ctx)); err != nil {
			logger.Debug("Failed to set request ID header", "error", err)
		}
		start := time.Now()
		resp, err := handler(ctx, req)
		logCall(logger, ctx, info.FullMethod, start, err)
		return resp, err
	}
}

// StreamServerInterceptor is the streaming counterpart of
// UnaryServerInterceptor. Handlers see the enriched context through the
// wrapped stream.
func StreamServerInterceptor(logger *slog.Logger) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx := EnrichContextMetadata(ss.Context())
		if err := ss.SetHeader(requestIDHeader(ctx)); err != nil {
			logger.Debug("Failed to set request ID header", "error", err)
		}
		start := time.Now()
		err := handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
		logCall(logger, ctx, info.FullMethod, start, err)
		return err
	}
}

func requestIDHeader(ctx context.Context) metadata.MD {
	return metadata.Pairs(HeaderRequestID, RequestIDFromContext(ctx))
}

func logCall(logger *slog.Logger, ctx context.Context, method string, start time.Time, err error) {
	attrs := append([]any{"method", method, "duration", time.Since(start)}, MetaFromContext(ctx).LogAttrs()...)
	if err != nil {
		attrs = append(attrs, "code", status.Code(err).String(), "error", err)
		logger.Warn("Flight call failed", attrs...)
		return
	}
	logger.Debug("Flight call completed", attrs...)
}

// wrappedServerStream wraps grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapper's custom context.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
