package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka-1:9092, ,kafka-2:9092 ")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %#v", got)
	}
}

func TestExtractEventMetaFallsBackToLogPosition(t *testing.T) {
	msg := kafka.Message{Topic: "pharmacy.directory.updated.v1", Partition: 2, Offset: 41, Key: []byte("ph-1")}
	meta := ExtractEventMeta(msg)
	if meta.EventID != "pharmacy.directory.updated.v1/2/41" || meta.EventType != "pharmacy.directory.updated.v1" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	msg.Offset++
	if next := ExtractEventMeta(msg); next.EventID == meta.EventID {
		t.Fatalf("updates for the same key must not share an id: %s", next.EventID)
	}

	meta = ExtractEventMeta(kafka.Message{Headers: EventHeaders("evt-1", "pharmacy.appointment.booked.v1")})
	if meta.EventID != "evt-1" || meta.EventType != "pharmacy.appointment.booked.v1" {
		t.Fatalf("unexpected meta from headers: %+v", meta)
	}
}

func TestTraceHeadersRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	headers := InjectTraceHeaders(ctx, EventHeaders("evt-1", "t"))
	if HeaderValue(headers, "traceparent") == "" {
		t.Fatal("expected traceparent header")
	}
	out := ExtractTraceContext(context.Background(), kafka.Message{Headers: headers})
	if trace.SpanContextFromContext(out).TraceID() != traceID {
		t.Fatal("trace id not restored from headers")
	}
}
