// Package connection looks up the connections the sync engine runs against.
package connection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/ledgersync/internal/config"
	"github.com/stacklok/ledgersync/internal/ledger"
)

// ErrConnectionNotFound is returned when a connection id is unknown
var ErrConnectionNotFound = errors.New("connection not found")

// Store provides read access to connections and records sync completion
//
//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store
type Store interface {
	// Get returns the connection with id, active or not
	Get(ctx context.Context, id string) (*ledger.Connection, error)

	// ListActive returns every active connection ordered by id
	ListActive(ctx context.Context) ([]*ledger.Connection, error)

	// MarkSynced records the completion time of a successful run
	MarkSynced(ctx context.Context, id string, at time.Time) error

	// Deactivate switches a connection off so no trigger runs it again. Its
	// stored ledger is kept. Deactivating an inactive connection is a no-op.
	Deactivate(ctx context.Context, id string, at time.Time) (*ledger.Connection, error)
}

// NewStore creates the Store for the configured storage type. With database
// storage the connections declared in configuration are upserted first.
func NewStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (Store, error) {
	switch cfg.Storage.GetType() {
	case config.StorageTypeDatabase:
		if pool == nil {
			return nil, fmt.Errorf("database pool is required when storage type is database")
		}
		store := NewDBStore(pool)
		if err := store.Seed(ctx, cfg.Connections); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return NewConfigStore(cfg.Connections), nil
	}
}

func fromConfig(c config.ConnectionConfig, now time.Time) *ledger.Connection {
	conn := &ledger.Connection{
		ID:          c.ID,
		UserID:      c.UserID,
		AccessToken: c.AccessToken,
		Active:      c.IsActive(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if c.InstitutionID != "" || c.InstitutionName != "" {
		conn.Institution = &ledger.Institution{ID: c.InstitutionID, Name: c.InstitutionName}
	}
	return conn
}

func clone(c *ledger.Connection) *ledger.Connection {
	out := *c
	if c.Institution != nil {
		inst := *c.Institution
		out.Institution = &inst
	}
	if c.LastSync != nil {
		t := *c.LastSync
		out.LastSync = &t
	}
	return &out
}
