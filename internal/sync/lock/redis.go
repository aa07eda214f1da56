package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ledgersync:lock:"

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisLocker returns a Locker backed by Redis keys that expire after ttl.
// A run that outlives ttl may be overlapped by another holder.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) Locker {
	return &redisLocker{client: client, ttl: ttl}
}

func (r *redisLocker) TryLock(ctx context.Context, key string) (Unlocker, error) {
	redisKey := redisKeyPrefix + key
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire redis lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return UnlockFunc(func(ctx context.Context) error {
		if err := releaseScript.Run(context.WithoutCancel(ctx), r.client, []string{redisKey}, token).Err(); err != nil {
			return fmt.Errorf("failed to release redis lock: %w", err)
		}
		return nil
	}), nil
}
