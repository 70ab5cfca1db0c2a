package grpcx

import (
	"context"

	"github.com/md-rashed-zaman/pharmavisit/libs/httpx"
)

// RequestIDMetadataKey carries the HTTP request id across gRPC hops.
const RequestIDMetadataKey = "x-request-id"

// RequestIDFromContext shares the HTTP layer's context key, so an id set by
// either transport is visible to the other.
func RequestIDFromContext(ctx context.Context) string {
	return httpx.RequestIDFromContext(ctx)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return httpx.ContextWithRequestID(ctx, id)
}
