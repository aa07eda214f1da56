package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry owns the process-wide tracer and meter providers.
type Telemetry struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	registry       *prometheus.Registry
	shutdown       []func(context.Context) error
}

// Option configures New.
type Option func(*options)

type options struct {
	config *Config
}

// WithTelemetryConfig supplies the telemetry section of the config file.
func WithTelemetryConfig(cfg *Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

type shutdowner interface {
	Shutdown(context.Context) error
}

// New builds the providers described by the config. A missing or disabled
// config yields no-op providers. Call Shutdown to flush pending exports.
func New(ctx context.Context, opts ...Option) (*Telemetry, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	cfg := o.config

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry configuration: %w", err)
	}

	t := &Telemetry{}
	providerOpts := []ProviderOption{}
	if cfg != nil && cfg.Enabled {
		slog.Info("Initializing telemetry",
			"service_name", cfg.GetServiceName(),
			"service_version", cfg.GetServiceVersion(),
		)
		providerOpts = append(providerOpts,
			WithService(cfg.GetServiceName(), cfg.GetServiceVersion()),
			WithCollector(cfg.GetEndpoint(), cfg.GetInsecure(), cfg.Headers),
		)
		if cfg.tracingEnabled() {
			providerOpts = append(providerOpts, WithTracing(cfg.Tracing))
		}
		if cfg.metricsEnabled() {
			providerOpts = append(providerOpts, WithMetrics(cfg.Metrics))
			if cfg.Metrics.GetExporter() == ExporterPrometheus {
				t.registry = prometheus.NewRegistry()
				providerOpts = append(providerOpts, WithPrometheusRegisterer(t.registry))
			}
		}
	}

	tp, err := NewTracerProvider(ctx, providerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer provider: %w", err)
	}
	t.tracerProvider = tp
	t.track(tp)

	mp, err := NewMeterProvider(ctx, providerOpts...)
	if err != nil {
		_ = t.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create meter provider: %w", err)
	}
	t.meterProvider = mp
	t.track(mp)

	return t, nil
}

// track registers SDK providers for Shutdown. No-op providers have nothing to flush.
func (t *Telemetry) track(p any) {
	if s, ok := p.(shutdowner); ok {
		t.shutdown = append(t.shutdown, s.Shutdown)
	}
}

// TracerProvider returns the tracer provider.
func (t *Telemetry) TracerProvider() trace.TracerProvider {
	return t.tracerProvider
}

// MeterProvider returns the meter provider.
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	return t.meterProvider
}

// MetricsHandler serves the prometheus registry, or nil when metrics are not scraped.
func (t *Telemetry) MetricsHandler() http.Handler {
	if t.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{Registry: t.registry})
}

// Tracer is shorthand for TracerProvider().Tracer.
func (t *Telemetry) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	return t.tracerProvider.Tracer(name, opts...)
}

// Meter is shorthand for MeterProvider().Meter.
func (t *Telemetry) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	return t.meterProvider.Meter(name, opts...)
}

// Shutdown flushes and stops the SDK providers in reverse creation order.
// Later calls are no-ops.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	fns := t.shutdown
	t.shutdown = nil

	var errs []error
	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("telemetry shutdown: %w", errors.Join(errs...))
	}
	if len(fns) > 0 {
		slog.Debug("Telemetry flushed")
	}
	return nil
}
