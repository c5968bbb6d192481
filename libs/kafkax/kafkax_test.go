package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, SplitBrokers(" a:9092, ,b:9092 "))
	assert.Nil(t, SplitBrokers(""))
}

func TestEventMetaRoundTrip(t *testing.T) {
	meta := EventMeta{EventID: "evt-1", EventType: "contact.synced"}
	msg := kafka.Message{Topic: "crm.contact.synced", Key: []byte("a@x.com"), Headers: meta.Headers()}
	assert.Equal(t, meta, ExtractEventMeta(msg))

	bare := kafka.Message{Topic: "crm.contact.synced", Key: []byte("a@x.com")}
	assert.Equal(t, EventMeta{EventID: "a@x.com", EventType: "crm.contact.synced"}, ExtractEventMeta(bare))
}

func TestTraceHeadersRoundTrip(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := InjectTraceHeaders(ctx, EventMeta{EventID: "evt-1"}.Headers())
	assert.NotEmpty(t, HeaderValue(headers, "traceparent"))

	out := ExtractTraceContext(context.Background(), kafka.Message{Headers: headers})
	assert.Equal(t, traceID, trace.SpanContextFromContext(out).TraceID())
}

func TestReadyCheckWithoutBrokers(t *testing.T) {
	require.Error(t, ReadyCheck("")(context.Background()))
}
