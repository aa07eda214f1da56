// Package storage creates the storage-dependent components of the sync engine as
// one family, so that ledger data, cursors, connections and status all live in
// the same backend.
package storage

import (
	"context"
	"fmt"

	"github.com/stacklok/ledgersync/internal/config"
	"github.com/stacklok/ledgersync/internal/connection"
	"github.com/stacklok/ledgersync/internal/sync/cursor"
	"github.com/stacklok/ledgersync/internal/sync/lock"
	"github.com/stacklok/ledgersync/internal/sync/state"
	"github.com/stacklok/ledgersync/internal/sync/writer"
)

//go:generate mockgen -destination=mocks/mock_factory.go -package=mocks -source=factory.go Factory

// Factory creates storage-dependent components.
// Implementations make sure all components share one backend.
type Factory interface {
	// CreateStateService creates the per-connection sync status service
	CreateStateService(ctx context.Context) (state.ConnectionStateService, error)

	// CreateLedgerStore creates the account and transaction store
	CreateLedgerStore(ctx context.Context) (writer.Store, error)

	// CreateCursorStore creates the cursor store
	CreateCursorStore(ctx context.Context) (cursor.Store, error)

	// CreateConnectionStore creates the connection store, seeding it from
	// configuration where the backend requires it
	CreateConnectionStore(ctx context.Context) (connection.Store, error)

	// CreateLocker creates the per-connection run lock selected by lock.type
	CreateLocker(ctx context.Context) (lock.Locker, error)

	// Ping reports whether the backend can serve requests
	Ping(ctx context.Context) error

	// Cleanup releases pools and clients held by the factory.
	// Should be called when the application shuts down.
	Cleanup()
}

// NewStorageFactory creates a storage factory based on the configured storage type
func NewStorageFactory(ctx context.Context, cfg *config.Config) (Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	switch cfg.Storage.GetType() {
	case config.StorageTypeDatabase:
		return NewDatabaseFactory(ctx, cfg)
	case config.StorageTypeFile:
		return NewFileFactory(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.GetType())
	}
}
