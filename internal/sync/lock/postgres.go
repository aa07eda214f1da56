package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const keyPrefix = "ledgersync:"

// ErrNoLockSession is returned when every advisory lock session is in use
var ErrNoLockSession = errors.New("no advisory lock session available")

type postgresLocker struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

// NewPostgresLockPool opens the pool advisory locks are held on. It reuses the
// connection settings of base but never shares connections with it, so held
// locks cannot starve the queries of the runs they protect.
func NewPostgresLockPool(ctx context.Context, base *pgxpool.Pool, maxConns int) (*pgxpool.Pool, error) {
	cfg := base.Config()
	cfg.MaxConns = int32(max(maxConns, 1)) //nolint:gosec // bounded by config validation
	cfg.MinConns = 0
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create lock pool: %w", err)
	}
	return pool, nil
}

// NewPostgresLocker returns a Locker backed by PostgreSQL session advisory locks.
// Each held lock pins one connection of pool until it is released. Waiting for
// a free connection is bounded by acquireTimeout, after which TryLock fails
// with ErrNoLockSession.
func NewPostgresLocker(pool *pgxpool.Pool, acquireTimeout time.Duration) Locker {
	return &postgresLocker{pool: pool, acquireTimeout: acquireTimeout}
}

func (p *postgresLocker) TryLock(ctx context.Context, key string) (Unlocker, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	conn, err := p.pool.Acquire(acquireCtx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(acquireCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrNoLockSession, p.acquireTimeout)
		}
		return nil, fmt.Errorf("failed to acquire connection for lock: %w", err)
	}

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock(hashtextextended($1, 0))", keyPrefix+key).Scan(&locked); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to acquire advisory lock: %w", err)
	}
	if !locked {
		conn.Release()
		return nil, ErrLocked
	}

	var once sync.Once
	var unlockErr error
	return UnlockFunc(func(ctx context.Context) error {
		once.Do(func() {
			defer conn.Release()

			var released bool
			err := conn.QueryRow(ctx, "SELECT pg_advisory_unlock(hashtextextended($1, 0))", keyPrefix+key).Scan(&released)
			if err == nil && released {
				return
			}
			// Closing the session drops every advisory lock it holds
			slog.Warn("Advisory unlock failed, closing session", "key", key, "error", err)
			if closeErr := conn.Conn().Close(context.WithoutCancel(ctx)); closeErr != nil {
				unlockErr = fmt.Errorf("failed to release advisory lock: %w", closeErr)
			}
		})
		return unlockErr
	}), nil
}
