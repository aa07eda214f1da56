package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/ledgersync/internal/config"
	"github.com/stacklok/ledgersync/internal/connection"
	"github.com/stacklok/ledgersync/internal/db"
	"github.com/stacklok/ledgersync/internal/status"
	"github.com/stacklok/ledgersync/internal/sync/cursor"
	"github.com/stacklok/ledgersync/internal/sync/lock"
	"github.com/stacklok/ledgersync/internal/sync/state"
	"github.com/stacklok/ledgersync/internal/sync/writer"
)

// FileFactory creates file-based storage components under the data directory
type FileFactory struct {
	config  *config.Config
	dataDir string

	statusPersistence status.StatusPersistence

	mu sync.Mutex
	// lockDB is opened only for the postgres lock type
	lockDB  *db.Connection
	closers []func() error
}

var _ Factory = (*FileFactory)(nil)

// NewFileFactory creates a file-based storage factory, creating the data directory if needed
func NewFileFactory(cfg *config.Config) (*FileFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	dataDir := cfg.Storage.GetDataDir()
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	slog.Info("Creating file-based storage factory", "data_dir", dataDir)

	return &FileFactory{
		config:            cfg,
		dataDir:           dataDir,
		statusPersistence: status.NewFileStatusPersistence(dataDir),
	}, nil
}

// CreateStateService creates a file-based state service
func (f *FileFactory) CreateStateService(_ context.Context) (state.ConnectionStateService, error) {
	slog.Debug("Creating file-based state service")
	return state.NewStateService(f.config, f.statusPersistence, nil)
}

// CreateLedgerStore creates a file-based ledger store
func (f *FileFactory) CreateLedgerStore(_ context.Context) (writer.Store, error) {
	slog.Debug("Creating file-based ledger store")
	return writer.NewStore(f.config, nil)
}

// CreateCursorStore creates a file-based cursor store
func (f *FileFactory) CreateCursorStore(_ context.Context) (cursor.Store, error) {
	slog.Debug("Creating file-based cursor store")
	return cursor.NewStore(f.config, nil)
}

// CreateConnectionStore serves the connections declared in configuration
func (f *FileFactory) CreateConnectionStore(ctx context.Context) (connection.Store, error) {
	slog.Debug("Creating configuration-backed connection store", "connections", len(f.config.Connections))
	return connection.NewStore(ctx, f.config, nil)
}

// CreateLocker creates the configured lock. The postgres lock opens its own pool.
func (f *FileFactory) CreateLocker(ctx context.Context) (lock.Locker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.config.Lock.GetType() == config.LockTypePostgres && f.lockDB == nil {
		conn, err := db.NewConnection(ctx, f.config.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to lock database: %w", err)
		}
		f.lockDB = conn
	}

	var pool *pgxpool.Pool
	if f.lockDB != nil {
		pool = f.lockDB.Pool
	}
	locker, closer, err := newLocker(ctx, f.config, pool)
	if err != nil {
		return nil, err
	}
	f.closers = append(f.closers, closer)
	return locker, nil
}

// Ping checks that the data directory is still reachable
func (f *FileFactory) Ping(_ context.Context) error {
	if _, err := os.Stat(f.dataDir); err != nil {
		return fmt.Errorf("data directory unavailable: %w", err)
	}
	return nil
}

// Cleanup closes lock clients and the lock database pool, if any
func (f *FileFactory) Cleanup() {
	f.mu.Lock()
	defer f.mu.Unlock()

	runClosers(f.closers)
	f.closers = nil
	if f.lockDB != nil {
		f.lockDB.Close()
		f.lockDB = nil
	}
}
