// Package telemetry provides OpenTelemetry instrumentation for the sync service.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SyncMetricsMeterName is the name used for the sync metrics meter
	SyncMetricsMeterName = "github.com/stacklok/ledgersync/sync"
)

// Sync outcomes recorded on the duration histogram
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// SyncMetrics holds the OpenTelemetry instruments for sync runs
type SyncMetrics struct {
	syncDuration   metric.Float64Histogram
	pagesTotal     metric.Int64Counter
	mutationsTotal metric.Int64Counter
	retriesTotal   metric.Int64Counter
	lastSuccess    metric.Float64Gauge
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	syncDuration, err := meter.Float64Histogram(
		"ledgersync_sync_duration_seconds",
		metric.WithDescription("Duration of connection sync runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600),
	)
	if err != nil {
		return nil, err
	}

	pagesTotal, err := meter.Int64Counter(
		"ledgersync_sync_pages_total",
		metric.WithDescription("Number of transaction pages committed"),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, err
	}

	mutationsTotal, err := meter.Int64Counter(
		"ledgersync_sync_mutations_total",
		metric.WithDescription("Number of committed transaction mutations by kind"),
		metric.WithUnit("{transaction}"),
	)
	if err != nil {
		return nil, err
	}

	retriesTotal, err := meter.Int64Counter(
		"ledgersync_provider_retries_total",
		metric.WithDescription("Number of retried provider calls by failure kind"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	lastSuccess, err := meter.Float64Gauge(
		"ledgersync_sync_last_success_timestamp_seconds",
		metric.WithDescription("Unix time of the last successful sync of a connection"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		syncDuration:   syncDuration,
		pagesTotal:     pagesTotal,
		mutationsTotal: mutationsTotal,
		retriesTotal:   retriesTotal,
		lastSuccess:    lastSuccess,
	}, nil
}

// RecordSyncDuration records the duration and outcome of one connection run
func (m *SyncMetrics) RecordSyncDuration(ctx context.Context, connectionID string, duration time.Duration, outcome string) {
	if m == nil || m.syncDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("connection", connectionID),
		attribute.String("outcome", outcome),
	}

	m.syncDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	if outcome == OutcomeSuccess {
		m.lastSuccess.Record(ctx, float64(time.Now().Unix()), metric.WithAttributes(attrs[0]))
	}
}

// RecordPage records one committed page and its mutation counts
func (m *SyncMetrics) RecordPage(ctx context.Context, connectionID string, added, modified, removed int) {
	if m == nil || m.pagesTotal == nil {
		return
	}

	conn := attribute.String("connection", connectionID)
	m.pagesTotal.Add(ctx, 1, metric.WithAttributes(conn))
	for kind, n := range map[string]int{"added": added, "modified": modified, "removed": removed} {
		if n == 0 {
			continue
		}
		m.mutationsTotal.Add(ctx, int64(n), metric.WithAttributes(conn, attribute.String("kind", kind)))
	}
}

// RecordRetry records a provider call that is about to be retried
func (m *SyncMetrics) RecordRetry(ctx context.Context, operation, kind string) {
	if m == nil || m.retriesTotal == nil {
		return
	}

	m.retriesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("kind", kind),
	))
}
