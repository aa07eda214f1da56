// Package cursor persists the last committed provider cursor of each connection.
package cursor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/ledgersync/internal/config"
	"github.com/stacklok/ledgersync/internal/ledger"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store

// Store maps a connection id to its last committed cursor
type Store interface {
	// Get returns the stored cursor. ok is false when the connection has never committed a page.
	Get(ctx context.Context, connectionID string) (cursor ledger.Cursor, ok bool, err error)

	// Set durably records cursor as the connection's position
	Set(ctx context.Context, connectionID string, cursor ledger.Cursor) error
}

// NewStore creates a Store based on the configured storage type.
// The pool must not be nil when database storage is configured.
func NewStore(cfg *config.Config, pool *pgxpool.Pool) (Store, error) {
	switch cfg.Storage.GetType() {
	case config.StorageTypeDatabase:
		if pool == nil {
			return nil, fmt.Errorf("database pool is required when storage type is database")
		}
		return NewDBStore(pool), nil
	default:
		return NewFileStore(cfg.Storage.GetDataDir()), nil
	}
}
