package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerWrapper is a nil-safe tracer: with no provider it hands out noop
// spans, so callers never check for nil before starting or ending a span.
type TracerWrapper struct {
	tracer trace.Tracer
}

// NewTracerWrapper returns a wrapper around provider's tracer named name.
// A nil provider yields a noop tracer.
func NewTracerWrapper(provider trace.TracerProvider, name string) *TracerWrapper {
	if provider == nil {
		provider = noop.NewTracerProvider()
	}
	return &TracerWrapper{tracer: provider.Tracer(name)}
}

// StartSpan starts a span of the given kind. The returned span is never nil.
func (w *TracerWrapper) StartSpan(ctx context.Context, operation string, kind trace.SpanKind, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if w == nil || w.tracer == nil {
		return noop.NewTracerProvider().Tracer("").Start(ctx, operation)
	}
	opts = append(opts, trace.WithSpanKind(kind))
	return w.tracer.Start(ctx, operation, opts...)
}
