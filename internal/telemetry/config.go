// Package telemetry wires OpenTelemetry traces and metrics for ledgersync.
// Traces are pushed over OTLP/HTTP. Metrics are either pushed over OTLP/HTTP
// or exposed for scraping through a private prometheus registry.
package telemetry

import (
	"errors"
	"fmt"
	"time"
)

// Defaults applied when the corresponding field is left empty.
const (
	DefaultServiceName     = "ledgersync"
	DefaultServiceVersion  = "unknown"
	DefaultEndpoint        = "localhost:4318"
	DefaultSampling        = 0.05
	DefaultMetricsInterval = 60 * time.Second
)

// Metric exporters.
const (
	ExporterOTLP       = "otlp"
	ExporterPrometheus = "prometheus"
)

// Config is the telemetry section of the ledgersync config file.
type Config struct {
	// Enabled is the master switch. Sections below are ignored while it is false.
	Enabled bool `yaml:"enabled"`

	ServiceName    string `yaml:"serviceName,omitempty"`
	ServiceVersion string `yaml:"serviceVersion,omitempty"`

	// Endpoint is the OTLP/HTTP collector as host:port.
	Endpoint string `yaml:"endpoint,omitempty"`
	// Insecure sends OTLP over plain HTTP.
	Insecure bool `yaml:"insecure,omitempty"`
	// Headers are attached to every OTLP export request, e.g. collector API keys.
	Headers map[string]string `yaml:"headers,omitempty"`

	Tracing *TracingConfig `yaml:"tracing,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig controls span export.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
	// Sampling is the head sampling ratio for root spans. Zero means DefaultSampling.
	Sampling float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig controls metric export.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Exporter is "otlp" (default) or "prometheus".
	Exporter string `yaml:"exporter,omitempty"`
	// Interval is the OTLP push period, e.g. "30s". Unused by the prometheus exporter.
	Interval string `yaml:"interval,omitempty"`
}

// GetServiceName returns the configured service name or DefaultServiceName.
func (c *Config) GetServiceName() string {
	return valueOr(c.ServiceName, DefaultServiceName)
}

// GetServiceVersion returns the configured service version or DefaultServiceVersion.
func (c *Config) GetServiceVersion() string {
	return valueOr(c.ServiceVersion, DefaultServiceVersion)
}

// GetEndpoint returns the configured collector endpoint or DefaultEndpoint.
func (c *Config) GetEndpoint() string {
	return valueOr(c.Endpoint, DefaultEndpoint)
}

// GetInsecure reports whether OTLP exports skip TLS.
func (c *Config) GetInsecure() bool {
	return c.Insecure
}

func (c *Config) tracingEnabled() bool {
	return c != nil && c.Enabled && c.Tracing != nil && c.Tracing.Enabled
}

func (c *Config) metricsEnabled() bool {
	return c != nil && c.Enabled && c.Metrics != nil && c.Metrics.Enabled
}

// GetSampling returns the sampling ratio. An unset (zero) ratio cannot be told
// apart from an explicit zero in YAML, so both map to DefaultSampling.
func (c *TracingConfig) GetSampling() float64 {
	if c.Sampling == 0 {
		return DefaultSampling
	}
	return c.Sampling
}

// GetExporter returns the metrics exporter, ExporterOTLP when unset.
func (c *MetricsConfig) GetExporter() string {
	if c == nil {
		return ExporterOTLP
	}
	return valueOr(c.Exporter, ExporterOTLP)
}

// GetInterval returns the OTLP push period. Call Validate first; an
// unparsable value falls back to DefaultMetricsInterval.
func (c *MetricsConfig) GetInterval() time.Duration {
	if c == nil || c.Interval == "" {
		return DefaultMetricsInterval
	}
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return DefaultMetricsInterval
	}
	return d
}

// Validate checks the enabled sections. A nil or disabled config is valid.
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error
	if err := c.Tracing.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}
	if err := c.Metrics.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("metrics: %w", err))
	}
	for k := range c.Headers {
		if k == "" {
			errs = append(errs, errors.New("headers: empty header name"))
			break
		}
	}
	return errors.Join(errs...)
}

// Validate checks the sampling ratio of an enabled tracing section.
func (c *TracingConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}
	if c.Sampling < 0 || c.Sampling > 1 {
		return fmt.Errorf("sampling must be between 0.0 and 1.0, got %f", c.Sampling)
	}
	return nil
}

// Validate checks the exporter and interval of an enabled metrics section.
func (c *MetricsConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	exporter := c.GetExporter()
	if exporter != ExporterOTLP && exporter != ExporterPrometheus {
		return fmt.Errorf("exporter must be %q or %q, got %q", ExporterOTLP, ExporterPrometheus, c.Exporter)
	}
	if c.Interval != "" {
		d, err := time.ParseDuration(c.Interval)
		if err != nil {
			return fmt.Errorf("invalid interval %q: %w", c.Interval, err)
		}
		if d <= 0 {
			return fmt.Errorf("interval must be positive, got %s", c.Interval)
		}
	}
	return nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
