package lock

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/stacklok/ledgersync/internal/config"
)

// New creates the Locker selected by cfg.Lock. The returned close function
// releases backend clients and is never nil.
func New(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (Locker, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Lock.GetType() {
	case config.LockTypeMemory:
		return NewMemoryLocker(), noop, nil
	case config.LockTypeFile:
		dir := cfg.Lock.Dir
		if dir == "" {
			dir = filepath.Join(cfg.Storage.GetDataDir(), "locks")
		}
		return NewFileLocker(dir), noop, nil
	case config.LockTypePostgres:
		if pool == nil {
			return nil, nil, fmt.Errorf("database pool is required for lock type %q", config.LockTypePostgres)
		}
		lockPool, err := NewPostgresLockPool(ctx, pool, cfg.Lock.GetMaxConns())
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() error {
			lockPool.Close()
			return nil
		}
		return NewPostgresLocker(lockPool, cfg.Lock.GetAcquireTimeout()), closeFn, nil
	case config.LockTypeRedis:
		if cfg.Lock.Redis == nil {
			return nil, nil, fmt.Errorf("redis configuration is required for lock type %q", config.LockTypeRedis)
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Lock.Redis.Address,
			Password: cfg.Lock.Redis.GetRedisPassword(),
			DB:       cfg.Lock.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return NewRedisLocker(client, cfg.Lock.GetTTL()), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown lock type %q", cfg.Lock.Type)
	}
}
