package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mindburn-Labs/uow/pkg/domain"
	"github.com/Mindburn-Labs/uow/pkg/observability"
)

func TestExecute_Observed(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	obs, err := observability.NewWithProviders(tp, mp)
	require.NoError(t, err)

	h := newHarness(t)
	h.engine.observer = obs

	var inner trace.SpanContext
	unit := Define("Bump", func(ctx context.Context, s *Scope, _ domain.Principal, p bumpParams) (int, error) {
		inner = trace.SpanContextFromContext(ctx)
		if p.Times < 0 {
			return 0, errors.New("negative")
		}
		Add(s, newCounter(p.Counter))
		return 0, nil
	})
	runner := Bind(h.engine, unit, Options{})

	_, err = runner.Execute(context.Background(), nik, bumpParams{Counter: "a"})
	require.NoError(t, err)
	_, err = runner.Execute(context.Background(), nik, bumpParams{Counter: "b", Times: -1})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "uow.Bump", spans[0].Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), inner.SpanID(), "the block runs inside the execution span")
	assert.Equal(t, codes.Error, spans[1].Status().Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), totals["uow.executions.total"])
	assert.Equal(t, int64(1), totals["uow.errors.total"])
	assert.Equal(t, int64(0), totals["uow.executions.active"])
}
