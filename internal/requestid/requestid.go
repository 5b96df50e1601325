// Package requestid tags every Flight call with an identifier that shows up
// in logs. Clients may supply their own in gRPC metadata; otherwise a random
// UUID is generated.
package requestid

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"
)

// Header is the gRPC metadata key carrying the request ID.
const Header = "recfilter-request-id"

type key struct{}

// With returns a new context with id stored.
func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, key{}, id)
}

// FromContext retrieves the request ID if present.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(key{}).(string)
	return id, ok
}

// FromMetadata extracts the request ID from incoming gRPC metadata.
// Returns empty string if no ID is present.
func FromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	ids := md.Get(Header)
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// Ensure returns ctx carrying a request ID, taken from the context itself,
// then from incoming metadata, then generated.
func Ensure(ctx context.Context) (context.Context, string) {
	if id, ok := FromContext(ctx); ok && id != "" {
		return ctx, id
	}
	id := FromMetadata(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	return With(ctx, id), id
}
