package kafkax

import (
	"context"
	"slices"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// headers adapts a Kafka header slice to the OTel carrier interface.
type headers []kafka.Header

var _ propagation.TextMapCarrier = (*headers)(nil)

func (h *headers) Get(key string) string { return HeaderValue(*h, key) }

func (h *headers) Set(key, value string) {
	i := slices.IndexFunc(*h, func(x kafka.Header) bool { return x.Key == key })
	if i < 0 {
		*h = append(*h, kafka.Header{Key: key, Value: []byte(value)})
		return
	}
	(*h)[i].Value = []byte(value)
}

func (h *headers) Keys() []string {
	keys := make([]string, len(*h))
	for i, x := range *h {
		keys[i] = x.Key
	}
	return keys
}

// InjectTraceHeaders adds the span in ctx to hs as W3C headers, replacing
// any stale ones.
func InjectTraceHeaders(ctx context.Context, hs []kafka.Header) []kafka.Header {
	carrier := headers(hs)
	otel.GetTextMapPropagator().Inject(ctx, &carrier)
	return carrier
}

// ExtractTraceContext continues the producer's trace from msg headers.
func ExtractTraceContext(ctx context.Context, msg kafka.Message) context.Context {
	carrier := headers(msg.Headers)
	return otel.GetTextMapPropagator().Extract(ctx, &carrier)
}
