package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// ProviderOption configures NewTracerProvider and NewMeterProvider.
type ProviderOption func(*providerSettings)

type providerSettings struct {
	service    string
	version    string
	endpoint   string
	insecure   bool
	headers    map[string]string
	tracing    *TracingConfig
	metrics    *MetricsConfig
	registerer prometheus.Registerer
}

func newProviderSettings(opts []ProviderOption) *providerSettings {
	s := &providerSettings{
		service:  DefaultServiceName,
		version:  DefaultServiceVersion,
		endpoint: DefaultEndpoint,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithService sets the service.name and service.version resource attributes.
func WithService(name, version string) ProviderOption {
	return func(s *providerSettings) {
		s.service = name
		s.version = version
	}
}

// WithCollector points OTLP exporters at a collector.
func WithCollector(endpoint string, insecure bool, headers map[string]string) ProviderOption {
	return func(s *providerSettings) {
		s.endpoint = endpoint
		s.insecure = insecure
		s.headers = headers
	}
}

// WithTracing enables span export when tc.Enabled is set.
func WithTracing(tc *TracingConfig) ProviderOption {
	return func(s *providerSettings) {
		s.tracing = tc
	}
}

// WithMetrics enables metric export when mc.Enabled is set.
func WithMetrics(mc *MetricsConfig) ProviderOption {
	return func(s *providerSettings) {
		s.metrics = mc
	}
}

// WithPrometheusRegisterer sets where the prometheus exporter registers its
// collector. prometheus.DefaultRegisterer is used otherwise.
func WithPrometheusRegisterer(reg prometheus.Registerer) ProviderOption {
	return func(s *providerSettings) {
		s.registerer = reg
	}
}

func (s *providerSettings) resource(ctx context.Context) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(s.service),
			semconv.ServiceVersion(s.version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}
	return res, nil
}

// NewTracerProvider returns an SDK tracer provider exporting over OTLP/HTTP,
// installed as the global provider together with the W3C propagators.
// Without an enabled tracing section it returns a no-op provider.
func NewTracerProvider(ctx context.Context, opts ...ProviderOption) (trace.TracerProvider, error) {
	s := newProviderSettings(opts)
	if s.tracing == nil || !s.tracing.Enabled {
		slog.Debug("Tracing disabled")
		return tracenoop.NewTracerProvider(), nil
	}

	res, err := s.resource(ctx)
	if err != nil {
		return nil, err
	}

	exportOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(s.endpoint)}
	if s.insecure {
		exportOpts = append(exportOpts, otlptracehttp.WithInsecure())
	}
	if len(s.headers) > 0 {
		exportOpts = append(exportOpts, otlptracehttp.WithHeaders(s.headers))
	}
	exporter, err := otlptracehttp.New(ctx, exportOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	ratio := s.tracing.GetSampling()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if s.insecure {
		slog.Warn("Spans are exported over unencrypted HTTP", "endpoint", s.endpoint)
	}
	slog.Info("Tracing enabled", "endpoint", s.endpoint, "sampling", ratio)
	return tp, nil
}

// NewMeterProvider returns an SDK meter provider installed as the global
// provider. Without an enabled metrics section it returns a no-op provider.
func NewMeterProvider(ctx context.Context, opts ...ProviderOption) (metric.MeterProvider, error) {
	s := newProviderSettings(opts)
	if s.metrics == nil || !s.metrics.Enabled {
		slog.Debug("Metrics disabled")
		return metricnoop.NewMeterProvider(), nil
	}

	res, err := s.resource(ctx)
	if err != nil {
		return nil, err
	}

	var reader sdkmetric.Reader
	switch s.metrics.GetExporter() {
	case ExporterPrometheus:
		reader, err = s.prometheusReader()
	default:
		reader, err = s.otlpReader(ctx)
	}
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)

	slog.Info("Metrics enabled", "exporter", s.metrics.GetExporter(), "endpoint", s.endpoint)
	return mp, nil
}

func (s *providerSettings) prometheusReader() (sdkmetric.Reader, error) {
	reg := s.registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	return exporter, nil
}

func (s *providerSettings) otlpReader(ctx context.Context) (sdkmetric.Reader, error) {
	exportOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(s.endpoint)}
	if s.insecure {
		exportOpts = append(exportOpts, otlpmetrichttp.WithInsecure())
	}
	if len(s.headers) > 0 {
		exportOpts = append(exportOpts, otlpmetrichttp.WithHeaders(s.headers))
	}
	exporter, err := otlpmetrichttp.New(ctx, exportOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}
	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(s.metrics.GetInterval())), nil
}
