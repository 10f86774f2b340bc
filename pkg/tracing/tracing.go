// Package tracing captures the B3 view of the ambient span so it can be
// stored next to the events written under it.
package tracing

import (
	"context"
	"strings"

	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Canonical header names used as keys of a persisted Context.
const (
	HeaderTraceID      = "X-B3-TraceId"
	HeaderParentSpanID = "X-B3-ParentSpanId"
	HeaderSpanID       = "X-B3-SpanId"
	HeaderSampled      = "X-B3-Sampled"
)

var canonical = map[string]string{
	strings.ToLower(HeaderTraceID):      HeaderTraceID,
	strings.ToLower(HeaderParentSpanID): HeaderParentSpanID,
	strings.ToLower(HeaderSpanID):       HeaderSpanID,
	strings.ToLower(HeaderSampled):      HeaderSampled,
}

// Context is a B3 header map. A nil Context means no tracing was active.
type Context map[string]string

// Tracer starts spans and converts between span contexts and B3 headers.
type Tracer struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// New returns a Tracer on tp. A nil tp falls back to the global provider.
func New(tp trace.TracerProvider) *Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracer{
		tracer:     tp.Tracer("github.com/Mindburn-Labs/uow/tracing"),
		propagator: b3.New(b3.WithInjectEncoding(b3.B3MultipleHeader)),
	}
}

// Start opens a child span of whatever ctx carries.
func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// Extract returns ctx with the remote span described by headers. Header
// names are matched case-insensitively.
func (t *Tracer) Extract(ctx context.Context, headers map[string]string) context.Context {
	carrier := propagation.MapCarrier{}
	for k, v := range headers {
		carrier.Set(strings.ToLower(k), v)
	}
	return t.propagator.Extract(ctx, carrier)
}

// Inject writes the B3 headers of the span in ctx into headers using the
// canonical header names.
func (t *Tracer) Inject(ctx context.Context, headers map[string]string) {
	carrier := propagation.MapCarrier{}
	t.propagator.Inject(ctx, carrier)
	for k, v := range carrier {
		if name, ok := canonical[k]; ok {
			headers[name] = v
		}
	}
}

// Snapshot captures the ambient span of ctx. It returns nil when ctx holds
// no valid span. The parent span id is included when the span was started
// locally under a known parent.
func (t *Tracer) Snapshot(ctx context.Context) Context {
	span := trace.SpanFromContext(ctx)
	sc := span.SpanContext()
	if !sc.IsValid() {
		return nil
	}

	out := Context{}
	t.Inject(ctx, out)
	if ro, ok := span.(sdktrace.ReadOnlySpan); ok {
		if parent := ro.Parent(); parent.IsValid() {
			out[HeaderParentSpanID] = parent.SpanID().String()
		}
	}
	return out
}
