// Package requestcontext carries request-scoped values (clock, request ID,
// PSU device) through context without coupling services to HTTP.
package requestcontext

import (
	"context"
	"time"
)

type (
	contextKeyRequestTime struct{}
	contextKeyRequestID   struct{}
	contextKeyPsuDevice   struct{}
)

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, consumers, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(contextKeyRequestTime{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, contextKeyRequestTime{}, t)
}

func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID{}).(string); ok {
		return id
	}
	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID{}, requestID)
}

// PsuDevice returns the summarised PSU-User-Agent ("Browser on OS"), if any.
func PsuDevice(ctx context.Context) string {
	if d, ok := ctx.Value(contextKeyPsuDevice{}).(string); ok {
		return d
	}
	return ""
}

func WithPsuDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, contextKeyPsuDevice{}, device)
}
