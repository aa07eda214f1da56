// Package sync runs the incremental sync of one connection: an account refresh
// followed by cursor-paginated transaction pages until the provider reports no
// more changes.
//
// Each page is reconciled into a MutationSet, applied in one storage
// transaction, and only then is its cursor persisted. A crash between the two
// replays the page on the next run, which is safe because applying a page is
// idempotent.
package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/ledgersync/internal/ledger"
	"github.com/stacklok/ledgersync/internal/otel"
	"github.com/stacklok/ledgersync/internal/provider"
	"github.com/stacklok/ledgersync/internal/sync/cursor"
	"github.com/stacklok/ledgersync/internal/sync/reconciler"
	"github.com/stacklok/ledgersync/internal/sync/writer"
	"github.com/stacklok/ledgersync/internal/telemetry"
)

// Runner syncs a single connection
//
//go:generate mockgen -destination=mocks/mock_runner.go -package=mocks github.com/stacklok/ledgersync/internal/sync Runner
type Runner interface {
	// Run always returns a non-nil Result. Failures are reported in Result.Err.
	Run(ctx context.Context, conn *ledger.Connection) *Result
}

// Orchestrator is the default Runner
type Orchestrator struct {
	client  provider.Client
	store   writer.Writer
	cursors cursor.Store
	policy  RetryPolicy
	metrics *telemetry.SyncMetrics
	tracer  trace.Tracer
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithRetryPolicy overrides the default retry policy
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *Orchestrator) {
		o.policy = p
	}
}

// WithMetrics sets the sync metrics
func WithMetrics(m *telemetry.SyncMetrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithTracer sets the tracer used for run and page spans
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = t
	}
}

// NewOrchestrator creates an Orchestrator
func NewOrchestrator(client provider.Client, store writer.Writer, cursors cursor.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:  client,
		store:   store,
		cursors: cursors,
		policy:  DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run syncs conn until the provider has no more pages or a failure stops the run
func (o *Orchestrator) Run(ctx context.Context, conn *ledger.Connection) *Result {
	start := time.Now()
	result := &Result{ConnectionID: conn.ID}

	ctx, span := otel.StartSpan(ctx, o.tracer, "sync.run",
		trace.WithAttributes(otel.AttrConnectionID.String(conn.ID)))
	defer span.End()

	slog.Info("Starting sync run", "connection_id", conn.ID)

	outcome := telemetry.OutcomeSuccess
	if err := o.run(ctx, conn, result); err != nil {
		err.Committed = result.Pages > 0 || err.Committed
		result.Err = err
		outcome = telemetry.OutcomeFailed

		span.SetAttributes(otel.AttrErrorKind.String(string(err.Kind)))
		otel.RecordError(span, err)
		slog.Error("Sync run failed",
			"connection_id", conn.ID,
			"kind", err.Kind,
			"stage", err.Stage,
			"pages", result.Pages,
			"committed", err.Committed,
			"error", err.Err)
	} else {
		slog.Info("Sync run completed",
			"connection_id", conn.ID,
			"pages", result.Pages,
			"added", result.Added,
			"modified", result.Modified,
			"removed", result.Removed)
	}

	span.SetAttributes(
		otel.AttrAdded.Int(result.Added),
		otel.AttrModified.Int(result.Modified),
		otel.AttrRemoved.Int(result.Removed),
	)
	o.metrics.RecordSyncDuration(ctx, conn.ID, time.Since(start), outcome)
	return result
}

func (o *Orchestrator) run(ctx context.Context, conn *ledger.Connection, result *Result) *Error {
	if ctx.Err() != nil {
		return NewError(KindCanceled, StageIdle, context.Cause(ctx))
	}

	if err := o.refreshAccounts(ctx, conn); err != nil {
		return err
	}

	for page := 1; ; page++ {
		if ctx.Err() != nil {
			return NewError(KindCanceled, StageSyncingPage, context.Cause(ctx))
		}

		hasMore, err := o.syncPage(ctx, conn, page, result)
		if err != nil {
			return err
		}
		if !hasMore {
			return nil
		}
	}
}

// refreshAccounts fetches the account list and stores it in one transaction
func (o *Orchestrator) refreshAccounts(ctx context.Context, conn *ledger.Connection) *Error {
	ctx, span := otel.StartSpan(ctx, o.tracer, "sync.refresh_accounts")
	defer span.End()

	accounts, err := retryProvider(ctx, o.policy, "accounts/get", o.metrics,
		func(ctx context.Context, attempt int) ([]ledger.AccountSnapshot, error) {
			span.SetAttributes(otel.AttrAttempt.Int(attempt))
			return o.client.FetchAccounts(ctx, conn)
		})
	if err != nil {
		otel.RecordError(span, err)
		return providerError(ctx, StageRefreshingAccounts, err)
	}

	if err := o.store.UpsertAccounts(ctx, conn.ID, accounts); err != nil {
		otel.RecordError(span, err)
		return NewError(KindStorageCommit, StageRefreshingAccounts, err)
	}

	slog.Debug("Accounts refreshed", "connection_id", conn.ID, "account_count", len(accounts))
	return nil
}

// syncPage fetches, reconciles and commits the page after the stored cursor
func (o *Orchestrator) syncPage(ctx context.Context, conn *ledger.Connection, page int, result *Result) (bool, *Error) {
	ctx, span := otel.StartSpan(ctx, o.tracer, "sync.page",
		trace.WithAttributes(otel.AttrPage.Int(page)))
	defer span.End()

	current, found, err := o.cursors.Get(ctx, conn.ID)
	if err != nil {
		otel.RecordError(span, err)
		return false, NewError(KindCursorPersist, StageSyncingPage, err)
	}
	span.SetAttributes(otel.AttrHasCursor.Bool(found && current != ""))
	if page == 1 {
		result.Cursor = current
	}

	syncPage, err := retryProvider(ctx, o.policy, "transactions/sync", o.metrics,
		func(ctx context.Context, attempt int) (*ledger.SyncPage, error) {
			span.SetAttributes(otel.AttrAttempt.Int(attempt))
			return o.client.FetchTransactionPage(ctx, conn, current)
		})
	if err != nil {
		otel.RecordError(span, err)
		return false, providerError(ctx, StageSyncingPage, err)
	}

	// A fetched page is processed to completion even if ctx ends mid-way
	commitCtx := context.WithoutCancel(ctx)

	mutations, serr := o.reconcile(commitCtx, conn, syncPage)
	if serr != nil {
		otel.RecordError(span, serr)
		return false, serr
	}

	if err := o.store.ApplyPage(commitCtx, conn.ID, mutations); err != nil {
		otel.RecordError(span, err)
		return false, NewError(KindStorageCommit, StageSyncingPage, err)
	}
	if err := o.cursors.Set(commitCtx, conn.ID, syncPage.NextCursor); err != nil {
		otel.RecordError(span, err)
		serr := NewError(KindCursorPersist, StageCommitting, err)
		serr.Committed = true
		return false, serr
	}

	added, modified, removed := len(syncPage.Added), len(syncPage.Modified), len(syncPage.Removed)
	result.Pages++
	result.Added += added
	result.Modified += modified
	result.Removed += removed
	result.Cursor = syncPage.NextCursor

	span.SetAttributes(
		otel.AttrAdded.Int(added),
		otel.AttrModified.Int(modified),
		otel.AttrRemoved.Int(removed),
		otel.AttrHasMore.Bool(syncPage.HasMore),
	)
	o.metrics.RecordPage(ctx, conn.ID, added, modified, removed)
	slog.Debug("Page committed",
		"connection_id", conn.ID,
		"page", page,
		"added", added,
		"modified", modified,
		"removed", removed,
		"has_more", syncPage.HasMore)

	return syncPage.HasMore, nil
}

// reconcile merges the page, refreshing accounts once if it references an unknown account
func (o *Orchestrator) reconcile(
	ctx context.Context, conn *ledger.Connection, page *ledger.SyncPage,
) (*ledger.MutationSet, *Error) {
	mutations, err := reconciler.Apply(ctx, conn.ID, page, o.store)

	var dangling *reconciler.DanglingAccountReferenceError
	if errors.As(err, &dangling) {
		slog.Warn("Page references unknown accounts, refreshing accounts",
			"connection_id", conn.ID,
			"account_ids", dangling.AccountIDs)
		if rerr := o.refreshAccounts(ctx, conn); rerr != nil {
			return nil, rerr
		}
		mutations, err = reconciler.Apply(ctx, conn.ID, page, o.store)
		if errors.As(err, &dangling) {
			return nil, NewError(KindDanglingAccountReference, StageSyncingPage, err)
		}
	}
	if err != nil {
		return nil, NewError(KindStorageCommit, StageSyncingPage, err)
	}
	return mutations, nil
}
