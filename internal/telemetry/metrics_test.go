package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, scope := range rm.ScopeMetrics {
		if scope.Scope.Name != SyncMetricsMeterName {
			continue
		}
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestNewSyncMetrics(t *testing.T) {
	t.Parallel()

	t.Run("returns nil when provider is nil", func(t *testing.T) {
		t.Parallel()

		metrics, err := NewSyncMetrics(nil)
		require.NoError(t, err)
		assert.Nil(t, metrics)
	})

	t.Run("creates metrics with SDK provider", func(t *testing.T) {
		t.Parallel()

		mp := sdkmetric.NewMeterProvider()
		defer func() { _ = mp.Shutdown(context.Background()) }()

		metrics, err := NewSyncMetrics(mp)
		require.NoError(t, err)
		require.NotNil(t, metrics)
		assert.NotNil(t, metrics.syncDuration)
		assert.NotNil(t, metrics.pagesTotal)
		assert.NotNil(t, metrics.mutationsTotal)
		assert.NotNil(t, metrics.retriesTotal)
	})
}

func TestSyncMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var metrics *SyncMetrics
	// Should not panic
	metrics.RecordSyncDuration(context.Background(), "conn-1", 5*time.Second, OutcomeSuccess)
	metrics.RecordPage(context.Background(), "conn-1", 1, 2, 3)
	metrics.RecordRetry(context.Background(), "transactions/sync", "ProviderUnavailable")
}

func TestSyncMetrics_RecordSyncDuration(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewSyncMetrics(mp)
	require.NoError(t, err)

	metrics.RecordSyncDuration(context.Background(), "conn-1", 2500*time.Millisecond, OutcomeSuccess)
	metrics.RecordSyncDuration(context.Background(), "conn-2", 500*time.Millisecond, OutcomeFailed)

	got := collect(t, reader)
	duration, ok := got["ledgersync_sync_duration_seconds"]
	require.True(t, ok, "expected duration histogram")
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, hist.DataPoints, 2)

	for _, dp := range hist.DataPoints {
		conn, _ := dp.Attributes.Value(attribute.Key("connection"))
		outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
		switch conn.AsString() {
		case "conn-1":
			assert.Equal(t, OutcomeSuccess, outcome.AsString())
			assert.InDelta(t, 2.5, dp.Sum, 0.001)
		case "conn-2":
			assert.Equal(t, OutcomeFailed, outcome.AsString())
		default:
			t.Fatalf("unexpected connection %s", conn.AsString())
		}
	}

	_, ok = got["ledgersync_sync_last_success_timestamp_seconds"]
	assert.True(t, ok, "expected last success gauge")
}

func TestSyncMetrics_RecordPage(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewSyncMetrics(mp)
	require.NoError(t, err)

	metrics.RecordPage(context.Background(), "conn-1", 2, 0, 1)
	metrics.RecordPage(context.Background(), "conn-1", 0, 1, 0)
	metrics.RecordRetry(context.Background(), "transactions/sync", "ProviderRateLimited")

	got := collect(t, reader)

	pages := got["ledgersync_sync_pages_total"].Data.(metricdata.Sum[int64])
	require.Len(t, pages.DataPoints, 1)
	assert.Equal(t, int64(2), pages.DataPoints[0].Value)

	mutations := got["ledgersync_sync_mutations_total"].Data.(metricdata.Sum[int64])
	byKind := make(map[string]int64)
	for _, dp := range mutations.DataPoints {
		kind, _ := dp.Attributes.Value(attribute.Key("kind"))
		byKind[kind.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"added": 2, "modified": 1, "removed": 1}, byKind)

	retries := got["ledgersync_provider_retries_total"].Data.(metricdata.Sum[int64])
	require.Len(t, retries.DataPoints, 1)
	assert.Equal(t, int64(1), retries.DataPoints[0].Value)
}
