package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/stacklok/ledgersync/internal/config"
	"github.com/stacklok/ledgersync/internal/provider"
	"github.com/stacklok/ledgersync/internal/telemetry"
)

// RetryPolicy bounds retries of transient provider failures
type RetryPolicy struct {
	// MaxAttempts counts the first call
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns the policy used when nothing is configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicyFromConfig(nil)
}

// RetryPolicyFromConfig builds a policy from the sync section
func RetryPolicyFromConfig(cfg *config.SyncConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     cfg.GetMaxAttempts(),
		InitialInterval: cfg.GetInitialInterval(),
		MaxInterval:     cfg.GetMaxInterval(),
	}
}

func (p RetryPolicy) newBackOff() *floorBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = 2
	return &floorBackOff{BackOff: b}
}

// floorBackOff raises the next delay to the provider's retry-after hint
type floorBackOff struct {
	backoff.BackOff
	floor time.Duration
}

func (f *floorBackOff) NextBackOff() time.Duration {
	next := f.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if f.floor > next {
		next = f.floor
	}
	f.floor = 0
	return next
}

func (f *floorBackOff) Reset() {
	f.floor = 0
	f.BackOff.Reset()
}

// retryProvider calls fn until it succeeds, fails with a non-retryable error,
// runs out of attempts or ctx ends
func retryProvider[T any](
	ctx context.Context,
	policy RetryPolicy,
	operation string,
	metrics *telemetry.SyncMetrics,
	fn func(ctx context.Context, attempt int) (T, error),
) (T, error) {
	b := policy.newBackOff()
	attempt := 0

	op := func() (T, error) {
		attempt++
		v, err := fn(ctx, attempt)
		if err == nil {
			return v, nil
		}
		var perr *provider.Error
		if ctx.Err() != nil || !errors.As(err, &perr) || !perr.Retryable() {
			return v, backoff.Permanent(err)
		}
		b.floor = perr.RetryAfter
		return v, err
	}

	notify := func(err error, next time.Duration) {
		kind, _ := provider.KindOf(err)
		slog.Warn("Provider call failed, retrying",
			"operation", operation,
			"attempt", attempt,
			"kind", kind,
			"next_delay", next,
			"error", err)
		metrics.RecordRetry(ctx, operation, string(kind))
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(max(policy.MaxAttempts, 1))), //nolint:gosec // bounded by config validation
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
}
