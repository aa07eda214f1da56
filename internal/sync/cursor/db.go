package cursor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/ledgersync/internal/db/sqlc"
	"github.com/stacklok/ledgersync/internal/ledger"
)

type dbStore struct {
	queries *sqlc.Queries
}

// NewDBStore creates a Store backed by the sync_cursors table
func NewDBStore(pool *pgxpool.Pool) Store {
	return &dbStore{queries: sqlc.New(pool)}
}

func (d *dbStore) Get(ctx context.Context, connectionID string) (ledger.Cursor, bool, error) {
	row, err := d.queries.GetSyncCursor(ctx, connectionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to load cursor for connection %s: %w", connectionID, err)
	}
	return ledger.Cursor(row.Cursor), true, nil
}

func (d *dbStore) Set(ctx context.Context, connectionID string, cursor ledger.Cursor) error {
	err := d.queries.UpsertSyncCursor(ctx, sqlc.UpsertSyncCursorParams{
		ConnectionID: connectionID,
		Cursor:       string(cursor),
		UpdatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to save cursor for connection %s: %w", connectionID, err)
	}
	return nil
}
