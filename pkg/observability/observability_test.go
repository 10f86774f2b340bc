package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestProvider(t *testing.T) (*Provider, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	p, err := NewWithProviders(tp, mp)
	require.NoError(t, err)
	return p, recorder, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestNew_Disabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	assert.NotNil(t, p.Tracer())
	assert.NotNil(t, p.Meter())

	_, done := p.TrackOperation(context.Background(), "uow.noop")
	done(nil)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestTrackOperation_Success(t *testing.T) {
	p, recorder, reader := newTestProvider(t)

	_, done := p.TrackOperation(context.Background(), "uow.HireEmployee", attribute.String("uow.name", "HireEmployee"))
	done(nil)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "uow.HireEmployee", spans[0].Name())
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)

	metrics := collect(t, reader)
	total, ok := metrics["uow.executions.total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, total.DataPoints, 1)
	assert.Equal(t, int64(1), total.DataPoints[0].Value)

	active, ok := metrics["uow.executions.active"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(0), active.DataPoints[0].Value)

	_, hasErrors := metrics["uow.errors.total"]
	assert.False(t, hasErrors)
}

func TestTrackOperation_Error(t *testing.T) {
	p, recorder, reader := newTestProvider(t)

	_, done := p.TrackOperation(context.Background(), "uow.ChangeEmail")
	done(errors.New("stale"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.Len(t, spans[0].Events(), 1)

	errs, ok := collect(t, reader)["uow.errors.total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(1), errs.DataPoints[0].Value)
}

func TestPropagator_InjectsB3(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	carrier := propagation.MapCarrier{}
	Propagator().Inject(ctx, carrier)

	assert.Equal(t, span.SpanContext().TraceID().String(), carrier.Get("x-b3-traceid"))
	assert.Equal(t, span.SpanContext().SpanID().String(), carrier.Get("x-b3-spanid"))
	assert.NotEmpty(t, carrier.Get("traceparent"))
}
