// Package observability wires OpenTelemetry tracing and RED metrics for
// unit-of-work executions.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/Mindburn-Labs/uow"

// Config configures the OpenTelemetry providers.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string  // host:port of the OTLP gRPC collector
	SampleRate     float64 // 0.0 to 1.0
	BatchTimeout   time.Duration
	Enabled        bool
	Insecure       bool
}

func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "uow",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		OTLPEndpoint:   "localhost:4317",
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
		Enabled:        false,
		Insecure:       true,
	}
}

// Provider owns the trace and metric providers and the RED instruments.
type Provider struct {
	config         *Config
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter
	logger         *slog.Logger

	executionCounter metric.Int64Counter
	errorCounter     metric.Int64Counter
	durationHist     metric.Float64Histogram
	activeExecutions metric.Int64UpDownCounter
}

// New creates a provider exporting over OTLP gRPC. A disabled config yields
// a provider that still traces through the global (no-op) providers.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Provider{
		config: config,
		logger: slog.Default().With("component", "observability"),
	}

	if !config.Enabled {
		p.logger.InfoContext(ctx, "observability disabled")
		return p, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if err := p.initTraceProvider(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to init trace provider: %w", err)
	}
	if err := p.initMetricProvider(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to init metric provider: %w", err)
	}

	p.tracer = p.tracerProvider.Tracer(instrumentationName, trace.WithInstrumentationVersion(config.ServiceVersion))
	p.meter = p.meterProvider.Meter(instrumentationName, metric.WithInstrumentationVersion(config.ServiceVersion))

	if err := p.initREDMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init RED metrics: %w", err)
	}

	p.logger.InfoContext(ctx, "observability initialized",
		"service", config.ServiceName,
		"environment", config.Environment,
		"endpoint", config.OTLPEndpoint,
		"sample_rate", config.SampleRate,
	)
	return p, nil
}

// NewWithProviders builds a Provider on caller-owned providers. Shutdown
// leaves them alone.
func NewWithProviders(tp trace.TracerProvider, mp metric.MeterProvider) (*Provider, error) {
	p := &Provider{
		config: DefaultConfig(),
		tracer: tp.Tracer(instrumentationName),
		meter:  mp.Meter(instrumentationName),
		logger: slog.Default().With("component", "observability"),
	}
	if err := p.initREDMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init RED metrics: %w", err)
	}
	return p, nil
}

// Propagator carries W3C trace context, baggage and B3 multi-header
// context. Execution envelopes persist the B3 form.
func Propagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
		b3.New(b3.WithInjectEncoding(b3.B3MultipleHeader)),
	)
}

func (p *Provider) initTraceProvider(ctx context.Context, res *resource.Resource) error {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(p.config.OTLPEndpoint),
	}
	if p.config.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case p.config.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case p.config.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(p.config.SampleRate)
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(p.config.BatchTimeout)),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	)

	otel.SetTracerProvider(p.tracerProvider)
	otel.SetTextMapPropagator(Propagator())
	return nil
}

func (p *Provider) initMetricProvider(ctx context.Context, res *resource.Resource) error {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(p.config.OTLPEndpoint),
	}
	if p.config.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create metric exporter: %w", err)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))),
	)
	otel.SetMeterProvider(p.meterProvider)
	return nil
}

func (p *Provider) initREDMetrics() error {
	var err error

	p.executionCounter, err = p.meter.Int64Counter("uow.executions.total",
		metric.WithDescription("Total number of unit-of-work executions"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return err
	}

	p.errorCounter, err = p.meter.Int64Counter("uow.errors.total",
		metric.WithDescription("Total number of failed unit-of-work executions"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	p.durationHist, err = p.meter.Float64Histogram("uow.execution.duration",
		metric.WithDescription("Unit-of-work execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return err
	}

	p.activeExecutions, err = p.meter.Int64UpDownCounter("uow.executions.active",
		metric.WithDescription("Number of unit-of-work executions in flight"),
		metric.WithUnit("{execution}"),
	)
	return err
}

// Shutdown flushes and stops providers created by New.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			p.logger.ErrorContext(ctx, "failed to shutdown trace provider", "error", err)
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			p.logger.ErrorContext(ctx, "failed to shutdown metric provider", "error", err)
		}
	}
	return nil
}

func (p *Provider) Tracer() trace.Tracer {
	if p.tracer == nil {
		return otel.Tracer(instrumentationName)
	}
	return p.tracer
}

func (p *Provider) Meter() metric.Meter {
	if p.meter == nil {
		return otel.Meter(instrumentationName)
	}
	return p.meter
}

func (p *Provider) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return p.Tracer().Start(ctx, name, opts...)
}

func (p *Provider) RecordExecution(ctx context.Context, attrs ...attribute.KeyValue) {
	if p.executionCounter != nil {
		p.executionCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (p *Provider) RecordError(ctx context.Context, err error, attrs ...attribute.KeyValue) {
	if p.errorCounter != nil {
		all := append(attrs, attribute.String("error.type", fmt.Sprintf("%T", err)))
		p.errorCounter.Add(ctx, 1, metric.WithAttributes(all...))
	}
}

func (p *Provider) RecordDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	if p.durationHist != nil {
		p.durationHist.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
	}
}

// TrackOperation starts a span and the RED bookkeeping for one operation.
// The returned function must be called exactly once with the outcome.
func (p *Provider) TrackOperation(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()

	ctx, span := p.StartSpan(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)

	if p.activeExecutions != nil {
		p.activeExecutions.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	p.RecordExecution(ctx, attrs...)

	return ctx, func(err error) {
		if p.activeExecutions != nil {
			p.activeExecutions.Add(ctx, -1, metric.WithAttributes(attrs...))
		}
		p.RecordDuration(ctx, time.Since(start), attrs...)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			p.RecordError(ctx, err, attrs...)
		}
		span.End()
	}
}
