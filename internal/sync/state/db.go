package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/ledgersync/internal/db/sqlc"
	"github.com/stacklok/ledgersync/internal/status"
)

type dbStateService struct {
	pool *pgxpool.Pool
}

// NewDBStateService creates a new database-backed connection state service.
// Connections must already exist in the connections table.
func NewDBStateService(pool *pgxpool.Pool) ConnectionStateService {
	return &dbStateService{
		pool: pool,
	}
}

func (d *dbStateService) Initialize(ctx context.Context, connectionIDs []string) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("Failed to roll back state initialization", "error", err)
		}
	}()

	queries := sqlc.New(d.pool).WithTx(tx)
	msg := messageNeverSynced
	for _, id := range connectionIDs {
		err := queries.InitializeConnectionSync(ctx, sqlc.InitializeConnectionSyncParams{
			ConnectionID: id,
			SyncStatus:   sqlc.SyncStatusFAILED,
			ErrorMsg:     &msg,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize sync status for %s: %w", id, err)
		}
	}

	now := time.Now()
	reset, err := queries.ResetInterruptedSyncs(ctx, &now)
	if err != nil {
		return fmt.Errorf("failed to reset interrupted syncs: %w", err)
	}
	for _, id := range reset {
		slog.Warn("Previous sync was interrupted, resetting to Failed", "connection_id", id)
	}

	return tx.Commit(ctx)
}

func (d *dbStateService) ListSyncStatuses(ctx context.Context) (map[string]*status.SyncStatus, error) {
	rows, err := sqlc.New(d.pool).ListConnectionSyncs(ctx)
	if err != nil {
		return nil, err
	}

	result := make(map[string]*status.SyncStatus, len(rows))
	for _, row := range rows {
		result[row.ConnectionID] = dbSyncToStatus(row)
	}
	return result, nil
}

func (d *dbStateService) GetSyncStatus(ctx context.Context, connectionID string) (*status.SyncStatus, error) {
	row, err := sqlc.New(d.pool).GetConnectionSync(ctx, connectionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConnectionNotTracked
		}
		return nil, err
	}
	return dbSyncToStatus(row), nil
}

func (d *dbStateService) UpdateSyncStatus(ctx context.Context, connectionID string, syncStatus *status.SyncStatus) error {
	return sqlc.New(d.pool).UpsertConnectionSync(ctx, statusToParams(connectionID, syncStatus))
}

func (d *dbStateService) UpdateStatusAtomically(
	ctx context.Context,
	connectionID string,
	testAndUpdateFn func(syncStatus *status.SyncStatus) bool,
) (bool, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("Failed to roll back status update", "connection_id", connectionID, "error", err)
		}
	}()

	queries := sqlc.New(d.pool).WithTx(tx)

	// FOR UPDATE serializes concurrent updaters across processes
	row, err := queries.GetConnectionSyncForUpdate(ctx, connectionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrConnectionNotTracked
		}
		return false, err
	}

	syncStatus := dbSyncToStatus(row)
	if !testAndUpdateFn(syncStatus) {
		return false, tx.Commit(ctx)
	}

	if err := queries.UpsertConnectionSync(ctx, statusToParams(connectionID, syncStatus)); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func dbSyncToStatus(row sqlc.ConnectionSync) *status.SyncStatus {
	return &status.SyncStatus{
		Phase:        dbSyncStatusToPhase(row.SyncStatus),
		Stage:        deref(row.Stage),
		ErrorKind:    deref(row.ErrorKind),
		Message:      deref(row.ErrorMsg),
		LastAttempt:  row.StartedAt,
		AttemptCount: int(row.AttemptCount),
		LastSyncTime: row.LastSuccess,
		Added:        int(row.Added),
		Modified:     int(row.Modified),
		Removed:      int(row.Removed),
	}
}

func statusToParams(connectionID string, s *status.SyncStatus) sqlc.UpsertConnectionSyncParams {
	var endedAt *time.Time
	if s.Phase != status.SyncPhaseSyncing {
		now := time.Now()
		endedAt = &now
	}
	return sqlc.UpsertConnectionSyncParams{
		ConnectionID: connectionID,
		SyncStatus:   syncPhaseToDBStatus(s.Phase),
		Stage:        nilIfEmpty(s.Stage),
		ErrorKind:    nilIfEmpty(s.ErrorKind),
		ErrorMsg:     nilIfEmpty(s.Message),
		AttemptCount: int32(s.AttemptCount), // #nosec G115 -- attempt counts are small
		Added:        int32(s.Added),        // #nosec G115 -- per-run counts fit in int32
		Modified:     int32(s.Modified),     // #nosec G115
		Removed:      int32(s.Removed),      // #nosec G115
		StartedAt:    s.LastAttempt,
		EndedAt:      endedAt,
		LastSuccess:  s.LastSyncTime,
	}
}

// dbSyncStatusToPhase converts database sync_status enum to status.SyncPhase
func dbSyncStatusToPhase(dbStatus sqlc.SyncStatus) status.SyncPhase {
	switch dbStatus {
	case sqlc.SyncStatusINPROGRESS:
		return status.SyncPhaseSyncing
	case sqlc.SyncStatusCOMPLETED:
		return status.SyncPhaseComplete
	default:
		return status.SyncPhaseFailed
	}
}

// syncPhaseToDBStatus converts status.SyncPhase to database sync_status enum
func syncPhaseToDBStatus(phase status.SyncPhase) sqlc.SyncStatus {
	switch phase {
	case status.SyncPhaseSyncing:
		return sqlc.SyncStatusINPROGRESS
	case status.SyncPhaseComplete:
		return sqlc.SyncStatusCOMPLETED
	default:
		return sqlc.SyncStatusFAILED
	}
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
