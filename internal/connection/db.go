package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/ledgersync/internal/config"
	"github.com/stacklok/ledgersync/internal/db/sqlc"
	"github.com/stacklok/ledgersync/internal/ledger"
)

// DBStore reads connections from the connections table
type DBStore struct {
	pool *pgxpool.Pool
}

// NewDBStore creates a database-backed Store
func NewDBStore(pool *pgxpool.Pool) *DBStore {
	return &DBStore{pool: pool}
}

// Seed upserts the given connections in one transaction
func (d *DBStore) Seed(ctx context.Context, conns []config.ConnectionConfig) error {
	if len(conns) == 0 {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			slog.Error("Failed to roll back transaction", "error", rollbackErr)
		}
	}()

	q := sqlc.New(tx)
	now := time.Now().UTC()
	for _, c := range conns {
		conn := fromConfig(c, now)
		params := sqlc.UpsertConnectionParams{
			ID:          conn.ID,
			UserID:      conn.UserID,
			AccessToken: conn.AccessToken,
			IsActive:    conn.Active,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if conn.Institution != nil {
			params.InstitutionID = nilIfEmpty(conn.Institution.ID)
			params.InstitutionName = nilIfEmpty(conn.Institution.Name)
		}
		if err := q.UpsertConnection(ctx, params); err != nil {
			return fmt.Errorf("failed to seed connection %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get implements Store
func (d *DBStore) Get(ctx context.Context, id string) (*ledger.Connection, error) {
	row, err := sqlc.New(d.pool).GetConnection(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection %s: %w", id, err)
	}
	return toLedger(row), nil
}

// ListActive implements Store
func (d *DBStore) ListActive(ctx context.Context) ([]*ledger.Connection, error) {
	rows, err := sqlc.New(d.pool).ListActiveConnections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active connections: %w", err)
	}
	out := make([]*ledger.Connection, 0, len(rows))
	for _, row := range rows {
		out = append(out, toLedger(row))
	}
	return out, nil
}

// MarkSynced implements Store
func (d *DBStore) MarkSynced(ctx context.Context, id string, at time.Time) error {
	at = at.UTC()
	if err := sqlc.New(d.pool).SetConnectionLastSync(ctx, sqlc.SetConnectionLastSyncParams{
		ID:       id,
		LastSync: &at,
	}); err != nil {
		return fmt.Errorf("failed to mark connection %s synced: %w", id, err)
	}
	return nil
}

// Deactivate implements Store. The connection stays inactive when
// configuration is seeded again.
func (d *DBStore) Deactivate(ctx context.Context, id string, at time.Time) (*ledger.Connection, error) {
	at = at.UTC()
	row, err := sqlc.New(d.pool).DeactivateConnection(ctx, sqlc.DeactivateConnectionParams{
		ID:            id,
		DeactivatedAt: &at,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate connection %s: %w", id, err)
	}
	return toLedger(row), nil
}

func toLedger(row sqlc.Connection) *ledger.Connection {
	conn := &ledger.Connection{
		ID:          row.ID,
		UserID:      row.UserID,
		AccessToken: row.AccessToken,
		Active:      row.IsActive,
		LastSync:    row.LastSync,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.InstitutionID != nil || row.InstitutionName != nil {
		conn.Institution = &ledger.Institution{}
		if row.InstitutionID != nil {
			conn.Institution.ID = *row.InstitutionID
		}
		if row.InstitutionName != nil {
			conn.Institution.Name = *row.InstitutionName
		}
	}
	return conn
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
