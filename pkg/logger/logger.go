package logger

import (
	"context"

	"go.uber.org/zap"

	"collabhub/pkg/trace"
)

// New builds the production zap logger used by every binary.
func New() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return l
}

// WithTrace returns the logger enriched with the trace id carried by ctx,
// when one is present.
func WithTrace(ctx context.Context, l *zap.Logger) *zap.Logger {
	if id := trace.FromContext(ctx); id != "" {
		return l.With(zap.String("trace_id", id))
	}
	return l
}
