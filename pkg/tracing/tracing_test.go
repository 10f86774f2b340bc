package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTracer() (*Tracer, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSpanProcessor(recorder),
	)
	return New(tp), recorder
}

func TestSnapshot_NoSpan(t *testing.T) {
	tr, _ := newTracer()
	assert.Nil(t, tr.Snapshot(context.Background()))
}

func TestSnapshot_RemoteParent(t *testing.T) {
	tr, _ := newTracer()

	ctx := tr.Extract(context.Background(), map[string]string{
		"X-B3-SpanId":  "0000000001234567",
		"x-b3-traceid": "0000000007654321",
		"x-b3-sampled": "1",
	})
	ctx, span := tr.Start(ctx, "uow.HireEmployee")
	defer span.End()

	snap := tr.Snapshot(ctx)
	require.NotNil(t, snap)
	assert.Equal(t, "00000000000000000000000007654321", snap[HeaderTraceID])
	assert.Equal(t, "0000000001234567", snap[HeaderParentSpanID])
	assert.Equal(t, span.SpanContext().SpanID().String(), snap[HeaderSpanID])
	assert.Equal(t, "1", snap[HeaderSampled])
	assert.Len(t, snap, 4)
}

func TestSnapshot_RootSpanHasNoParent(t *testing.T) {
	tr, _ := newTracer()

	ctx, span := tr.Start(context.Background(), "root")
	defer span.End()

	snap := tr.Snapshot(ctx)
	require.NotNil(t, snap)
	assert.NotContains(t, snap, HeaderParentSpanID)
	assert.Equal(t, span.SpanContext().TraceID().String(), snap[HeaderTraceID])
}

func TestSnapshot_RemoteOnly(t *testing.T) {
	tr, _ := newTracer()

	ctx := tr.Extract(context.Background(), map[string]string{
		HeaderTraceID: "4bf92f3577b34da6a3ce929d0e0e4736",
		HeaderSpanID:  "00f067aa0ba902b7",
		HeaderSampled: "0",
	})

	snap := tr.Snapshot(ctx)
	require.NotNil(t, snap)
	assert.Equal(t, "00f067aa0ba902b7", snap[HeaderSpanID])
	assert.Equal(t, "0", snap[HeaderSampled])
	assert.NotContains(t, snap, HeaderParentSpanID)
}

func TestInjectExtractRoundTrip(t *testing.T) {
	tr, _ := newTracer()
	ctx, span := tr.Start(context.Background(), "op")
	defer span.End()

	headers := map[string]string{}
	tr.Inject(ctx, headers)
	assert.Contains(t, headers, HeaderTraceID)

	got := trace.SpanContextFromContext(tr.Extract(context.Background(), headers))
	assert.Equal(t, span.SpanContext().TraceID(), got.TraceID())
	assert.Equal(t, span.SpanContext().SpanID(), got.SpanID())
	assert.True(t, got.IsRemote())
}
