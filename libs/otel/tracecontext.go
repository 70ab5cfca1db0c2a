package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	traceparentKey = "traceparent"
	tracestateKey  = "tracestate"
)

// TraceContextStrings renders the active span as W3C headers so it can be
// stored next to an outbox row and resumed by the publisher.
func TraceContextStrings(ctx context.Context) (traceparent, tracestate string) {
	carrier := make(propagation.MapCarrier, 2)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.Get(traceparentKey), carrier.Get(tracestateKey)
}

// ContextWithTraceContext is the inverse of TraceContextStrings. Empty
// input leaves ctx untouched.
func ContextWithTraceContext(ctx context.Context, traceparent, tracestate string) context.Context {
	if traceparent == "" && tracestate == "" {
		return ctx
	}
	carrier := propagation.MapCarrier{}
	carrier.Set(traceparentKey, traceparent)
	if tracestate != "" {
		carrier.Set(tracestateKey, tracestate)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
