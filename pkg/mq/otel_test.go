package mq

import (
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestHeaderCarrierPropagatesTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	headers := amqp.Table{"x-existing": "1"}
	propagator := propagation.TraceContext{}
	propagator.Inject(ctx, &MessageHeaderCarrier{Headers: headers})

	require.Contains(t, headers, "traceparent")
	assert.Equal(t, "1", headers["x-existing"])

	extracted := propagator.Extract(context.Background(), &MessageHeaderCarrier{Headers: headers})
	assert.Equal(t, span.SpanContext().TraceID(), trace.SpanContextFromContext(extracted).TraceID())
}

func TestHeaderCarrierIgnoresNonStringValues(t *testing.T) {
	carrier := &MessageHeaderCarrier{Headers: amqp.Table{"count": int32(3)}}
	assert.Equal(t, "", carrier.Get("count"))
	assert.Equal(t, "", carrier.Get("missing"))

	var empty MessageHeaderCarrier
	empty.Set("k", "v")
	assert.Equal(t, []string{"k"}, empty.Keys())
}
