// Package db contains code for connecting to the database.
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/ledgersync/internal/config"
	"github.com/stacklok/ledgersync/internal/db/sqlc"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnectTimeout  = 10 * time.Second
)

// Connection wraps the connection pool and query interface
type Connection struct {
	Pool    *pgxpool.Pool
	Queries *sqlc.Queries
}

// NewConnection creates a new connection pool from the provided configuration
func NewConnection(ctx context.Context, cfg *config.DatabaseConfig) (*Connection, error) {
	poolCfg, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Database connection established",
		"user", cfg.User,
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Database,
	)

	return &Connection{
		Pool:    pool,
		Queries: sqlc.New(pool),
	}, nil
}

// PoolConfig validates cfg and turns it into a pgxpool configuration
func PoolConfig(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	if cfg == nil {
		return nil, errors.New("database configuration is required")
	}
	if cfg.Host == "" {
		return nil, errors.New("database host is required")
	}
	if cfg.Port == 0 {
		return nil, errors.New("database port is required")
	}
	if cfg.User == "" {
		return nil, errors.New("database user is required")
	}
	if cfg.Database == "" {
		return nil, errors.New("database name is required")
	}

	connStr, err := cfg.GetConnectionString()
	if err != nil {
		return nil, fmt.Errorf("failed to get database password: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	poolCfg.MaxConns = defaultMaxOpenConns
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = cfg.MaxOpenConns
	}
	poolCfg.MinConns = defaultMaxIdleConns
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = cfg.MaxIdleConns
	}
	if poolCfg.MinConns > poolCfg.MaxConns {
		poolCfg.MinConns = poolCfg.MaxConns
	}

	poolCfg.MaxConnLifetime = defaultConnMaxLifetime
	if cfg.ConnMaxLifetime != "" {
		d, err := time.ParseDuration(cfg.ConnMaxLifetime)
		if err != nil {
			return nil, fmt.Errorf("invalid connection max lifetime: %w", err)
		}
		poolCfg.MaxConnLifetime = d
	}
	poolCfg.ConnConfig.ConnectTimeout = defaultConnectTimeout

	return poolCfg, nil
}

// Close closes the pool
func (c *Connection) Close() {
	if c.Pool != nil {
		slog.Info("Closing database connection")
		c.Pool.Close()
	}
}

// Ping verifies the database is reachable
func (c *Connection) Ping(ctx context.Context) error {
	if c.Pool == nil {
		return errors.New("database connection is nil")
	}
	return c.Pool.Ping(ctx)
}
