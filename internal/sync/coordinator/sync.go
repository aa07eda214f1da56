package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stacklok/ledgersync/internal/connection"
	"github.com/stacklok/ledgersync/internal/events"
	"github.com/stacklok/ledgersync/internal/ledger"
	"github.com/stacklok/ledgersync/internal/status"
	pkgsync "github.com/stacklok/ledgersync/internal/sync"
	"github.com/stacklok/ledgersync/internal/sync/lock"
	"github.com/stacklok/ledgersync/internal/sync/state"
	"github.com/stacklok/ledgersync/internal/telemetry"
)

const (
	messageInProgress = "Sync in progress"
	messageCompleted  = "Sync completed successfully"
	messageSkipped    = "already syncing"
)

// RunSync syncs one connection
func (c *defaultCoordinator) RunSync(ctx context.Context, connectionID string) (*pkgsync.Result, error) {
	conn, err := c.connections.Get(ctx, connectionID)
	switch {
	case errors.Is(err, connection.ErrConnectionNotFound):
		return notRun(connectionID, pkgsync.KindConnectionNotFound, err)
	case err != nil:
		return nil, fmt.Errorf("failed to get connection %s: %w", connectionID, err)
	case !conn.Active:
		return notRun(connectionID, pkgsync.KindConnectionNotFound,
			fmt.Errorf("connection %s is inactive: %w", connectionID, connection.ErrConnectionNotFound))
	}

	result := c.runConnection(ctx, conn)
	switch pkgsync.KindOf(result.Err) {
	case pkgsync.KindLockHeld, pkgsync.KindLockFailed:
		return result, result.Err
	default:
		return result, nil
	}
}

// RunSyncAll syncs every active connection
func (c *defaultCoordinator) RunSyncAll(ctx context.Context) ([]*pkgsync.Result, error) {
	conns, err := c.connections.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active connections: %w", err)
	}
	return c.runAll(ctx, conns), nil
}

// runAll runs one sync per connection with bounded concurrency.
// results[i] belongs to conns[i].
func (c *defaultCoordinator) runAll(ctx context.Context, conns []*ledger.Connection) []*pkgsync.Result {
	results := make([]*pkgsync.Result, len(conns))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, conn := range conns {
		g.Go(func() error {
			results[i] = c.runConnection(ctx, conn)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// runConnection holds the connection lock around one orchestrator run and
// records its outcome
func (c *defaultCoordinator) runConnection(ctx context.Context, conn *ledger.Connection) *pkgsync.Result {
	unlocker, err := c.locker.TryLock(ctx, conn.ID)
	if errors.Is(err, lock.ErrLocked) {
		slog.Info("Skipping sync, connection is already syncing", "connection_id", conn.ID)
		c.syncMetrics.RecordSyncDuration(ctx, conn.ID, 0, telemetry.OutcomeSkipped)
		serr := pkgsync.NewError(pkgsync.KindLockHeld, pkgsync.StageIdle, err)
		serr.Message = messageSkipped
		return pkgsync.FailedResult(conn.ID, serr)
	}
	if err != nil {
		slog.Error("Failed to acquire connection lock", "connection_id", conn.ID, "error", err)
		return pkgsync.FailedResult(conn.ID, pkgsync.NewError(pkgsync.KindLockFailed, pkgsync.StageIdle, err))
	}
	defer func() {
		if err := unlocker.Unlock(context.WithoutCancel(ctx)); err != nil {
			slog.Error("Failed to release connection lock", "connection_id", conn.ID, "error", err)
		}
	}()

	c.markSyncing(ctx, conn.ID)

	result := c.runner.Run(ctx, conn)

	// Outcome bookkeeping must survive a cancelled trigger
	finishCtx := context.WithoutCancel(ctx)
	now := time.Now().UTC()
	c.markFinished(finishCtx, conn.ID, result, now)
	if result.Err == nil {
		if err := c.connections.MarkSynced(finishCtx, conn.ID, now); err != nil {
			slog.Error("Failed to record last sync time", "connection_id", conn.ID, "error", err)
		}
	}
	if err := c.publisher.Publish(finishCtx, events.NewSyncEvent(result, now)); err != nil {
		slog.Warn("Failed to publish sync event", "connection_id", conn.ID, "error", err)
	}

	return result
}

func (c *defaultCoordinator) markSyncing(ctx context.Context, connectionID string) {
	now := time.Now().UTC()
	_, err := c.statusSvc.UpdateStatusAtomically(ctx, connectionID, func(s *status.SyncStatus) bool {
		s.Phase = status.SyncPhaseSyncing
		s.Stage = ""
		s.ErrorKind = ""
		s.Message = messageInProgress
		s.LastAttempt = &now
		s.AttemptCount++
		return true
	})
	if errors.Is(err, state.ErrConnectionNotTracked) {
		err = c.statusSvc.UpdateSyncStatus(ctx, connectionID, &status.SyncStatus{
			Phase:        status.SyncPhaseSyncing,
			Message:      messageInProgress,
			LastAttempt:  &now,
			AttemptCount: 1,
		})
	}
	if err != nil {
		slog.Warn("Failed to persist syncing status", "connection_id", connectionID, "error", err)
	}
}

func (c *defaultCoordinator) markFinished(ctx context.Context, connectionID string, result *pkgsync.Result, now time.Time) {
	update := func(s *status.SyncStatus) bool {
		s.Added = result.Added
		s.Modified = result.Modified
		s.Removed = result.Removed

		var serr *pkgsync.Error
		if errors.As(result.Err, &serr) {
			s.Phase = status.SyncPhaseFailed
			s.Stage = string(serr.Stage)
			s.ErrorKind = string(serr.Kind)
			s.Message = serr.Message
			return true
		}

		s.Phase = status.SyncPhaseComplete
		s.Stage = ""
		s.ErrorKind = ""
		s.Message = messageCompleted
		s.LastSyncTime = &now
		s.AttemptCount = 0
		return true
	}

	_, err := c.statusSvc.UpdateStatusAtomically(ctx, connectionID, update)
	if errors.Is(err, state.ErrConnectionNotTracked) {
		s := &status.SyncStatus{}
		update(s)
		err = c.statusSvc.UpdateSyncStatus(ctx, connectionID, s)
	}
	if err != nil {
		slog.Error("Failed to persist final sync status", "connection_id", connectionID, "error", err)
	}
}

func notRun(connectionID string, kind pkgsync.Kind, err error) (*pkgsync.Result, error) {
	serr := pkgsync.NewError(kind, pkgsync.StageIdle, err)
	return pkgsync.FailedResult(connectionID, serr), serr
}
