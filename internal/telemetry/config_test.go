package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	assert.Equal(t, "ledgersync", cfg.GetServiceName())
	assert.Equal(t, "unknown", cfg.GetServiceVersion())
	assert.Equal(t, DefaultEndpoint, cfg.GetEndpoint())
	assert.False(t, cfg.GetInsecure())

	cfg = &Config{ServiceName: "sync-worker", ServiceVersion: "1.4.0", Endpoint: "otel:4318", Insecure: true}
	assert.Equal(t, "sync-worker", cfg.GetServiceName())
	assert.Equal(t, "1.4.0", cfg.GetServiceVersion())
	assert.Equal(t, "otel:4318", cfg.GetEndpoint())
	assert.True(t, cfg.GetInsecure())

	assert.Equal(t, DefaultSampling, (&TracingConfig{}).GetSampling())
	assert.Equal(t, 0.25, (&TracingConfig{Sampling: 0.25}).GetSampling())

	var metrics *MetricsConfig
	assert.Equal(t, ExporterOTLP, metrics.GetExporter())
	assert.Equal(t, DefaultMetricsInterval, metrics.GetInterval())
	assert.Equal(t, 15*time.Second, (&MetricsConfig{Interval: "15s"}).GetInterval())
	assert.Equal(t, DefaultMetricsInterval, (&MetricsConfig{Interval: "soon"}).GetInterval())
	assert.Equal(t, ExporterPrometheus, (&MetricsConfig{Exporter: ExporterPrometheus}).GetExporter())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config *Config
		errMsg string
	}{
		{
			name:   "nil config is valid",
			config: nil,
		},
		{
			name:   "disabled config skips section validation",
			config: &Config{Tracing: &TracingConfig{Enabled: true, Sampling: 7}},
		},
		{
			name: "full valid config",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: 1},
				Metrics: &MetricsConfig{Enabled: true, Exporter: ExporterPrometheus},
			},
		},
		{
			name: "sampling above one",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: 1.5},
			},
			errMsg: "tracing: sampling must be between 0.0 and 1.0",
		},
		{
			name: "negative sampling",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: -0.1},
			},
			errMsg: "sampling must be between",
		},
		{
			name: "unknown exporter",
			config: &Config{
				Enabled: true,
				Metrics: &MetricsConfig{Enabled: true, Exporter: "statsd"},
			},
			errMsg: `metrics: exporter must be "otlp" or "prometheus", got "statsd"`,
		},
		{
			name: "bad push interval",
			config: &Config{
				Enabled: true,
				Metrics: &MetricsConfig{Enabled: true, Interval: "often"},
			},
			errMsg: `metrics: invalid interval "often"`,
		},
		{
			name: "negative push interval",
			config: &Config{
				Enabled: true,
				Metrics: &MetricsConfig{Enabled: true, Interval: "-1s"},
			},
			errMsg: "interval must be positive",
		},
		{
			name: "empty header name",
			config: &Config{
				Enabled: true,
				Headers: map[string]string{"": "v"},
			},
			errMsg: "headers: empty header name",
		},
		{
			name: "unknown exporter ignored when metrics disabled",
			config: &Config{
				Enabled: true,
				Metrics: &MetricsConfig{Exporter: "statsd"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.config.Validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
