package telemetry

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

type correlationContextKey struct{}

// WithCorrelationID attaches a correlation id to the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationContextKey{}, id)
}

// CorrelationID returns the correlation id for one logical call: the
// explicit value when set, the trace id of the span context carried by
// ctx when it has one, otherwise empty.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationContextKey{}).(string); ok && id != "" {
		return id
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// NewCorrelationID mints a fresh correlation id.
func NewCorrelationID() string {
	return uuid.NewString()
}
