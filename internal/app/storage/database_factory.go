package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/ledgersync/internal/config"
	"github.com/stacklok/ledgersync/internal/connection"
	"github.com/stacklok/ledgersync/internal/db"
	"github.com/stacklok/ledgersync/internal/sync/cursor"
	"github.com/stacklok/ledgersync/internal/sync/lock"
	"github.com/stacklok/ledgersync/internal/sync/state"
	"github.com/stacklok/ledgersync/internal/sync/writer"
)

// DatabaseFactory creates PostgreSQL-backed storage components sharing one pool
type DatabaseFactory struct {
	config *config.Config
	pool   *pgxpool.Pool

	mu      sync.Mutex
	closers []func() error
}

var _ Factory = (*DatabaseFactory)(nil)

// DatabaseFactoryOption is a functional option for configuring the DatabaseFactory
type DatabaseFactoryOption func(*DatabaseFactory)

// WithPool uses an existing pool instead of connecting from configuration.
// The factory takes ownership and closes it on Cleanup.
func WithPool(pool *pgxpool.Pool) DatabaseFactoryOption {
	return func(f *DatabaseFactory) {
		f.pool = pool
	}
}

// NewDatabaseFactory creates a database-backed storage factory.
// It connects to the configured database unless WithPool is given.
func NewDatabaseFactory(ctx context.Context, cfg *config.Config, opts ...DatabaseFactoryOption) (*DatabaseFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	factory := &DatabaseFactory{config: cfg}
	for _, opt := range opts {
		opt(factory)
	}

	if factory.pool == nil {
		if cfg.Database == nil {
			return nil, fmt.Errorf("database configuration is required for database storage type")
		}

		slog.Info("Creating database-backed storage factory")
		conn, err := db.NewConnection(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to create database connection pool: %w", err)
		}
		factory.pool = conn.Pool
	}

	return factory, nil
}

// CreateStateService creates a database-backed state service
func (d *DatabaseFactory) CreateStateService(_ context.Context) (state.ConnectionStateService, error) {
	slog.Debug("Creating database-backed state service")
	return state.NewStateService(d.config, nil, d.pool)
}

// CreateLedgerStore creates a database-backed ledger store
func (d *DatabaseFactory) CreateLedgerStore(_ context.Context) (writer.Store, error) {
	slog.Debug("Creating database-backed ledger store")
	return writer.NewStore(d.config, d.pool)
}

// CreateCursorStore creates a database-backed cursor store
func (d *DatabaseFactory) CreateCursorStore(_ context.Context) (cursor.Store, error) {
	slog.Debug("Creating database-backed cursor store")
	return cursor.NewStore(d.config, d.pool)
}

// CreateConnectionStore creates the database connection store and seeds it
// with the connections declared in configuration
func (d *DatabaseFactory) CreateConnectionStore(ctx context.Context) (connection.Store, error) {
	slog.Debug("Creating database-backed connection store", "seeded", len(d.config.Connections))
	return connection.NewStore(ctx, d.config, d.pool)
}

// CreateLocker creates the configured lock, sharing the pool for postgres locks
func (d *DatabaseFactory) CreateLocker(ctx context.Context) (lock.Locker, error) {
	locker, closer, err := newLocker(ctx, d.config, d.pool)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.closers = append(d.closers, closer)
	d.mu.Unlock()
	return locker, nil
}

// Ping checks that the database answers
func (d *DatabaseFactory) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Cleanup closes lock clients and the connection pool
func (d *DatabaseFactory) Cleanup() {
	d.mu.Lock()
	runClosers(d.closers)
	d.closers = nil
	d.mu.Unlock()

	if d.pool != nil {
		slog.Info("Closing database connection pool")
		d.pool.Close()
	}
}

func newLocker(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (lock.Locker, func() error, error) {
	slog.Debug("Creating connection lock", "type", cfg.Lock.GetType())
	locker, closer, err := lock.New(ctx, cfg, pool)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection lock: %w", err)
	}
	return locker, closer, nil
}

func runClosers(closers []func() error) {
	for _, closer := range closers {
		if closer == nil {
			continue
		}
		if err := closer(); err != nil {
			slog.Warn("Failed to close storage resource", "error", err)
		}
	}
}
