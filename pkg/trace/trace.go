package trace

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// Header is the HTTP header carrying the trace id between services.
const Header = "X-Trace-ID"

// NewID generates a fresh trace id.
func NewID() string {
	return uuid.NewString()
}

// FromContext returns the trace id stored in ctx, or "".
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return ""
}

// WithContext attaches a trace id to ctx.
func WithContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}
