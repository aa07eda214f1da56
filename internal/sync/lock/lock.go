// Package lock provides the per-connection mutual exclusion used to make sure
// at most one sync run per connection is in flight.
package lock

import (
	"context"
	"errors"
)

// ErrLocked is returned by TryLock when another run holds the key
var ErrLocked = errors.New("lock is held by another run")

// Unlocker releases a held lock
type Unlocker interface {
	Unlock(ctx context.Context) error
}

// UnlockFunc adapts a function to Unlocker
type UnlockFunc func(ctx context.Context) error

// Unlock calls f(ctx)
func (f UnlockFunc) Unlock(ctx context.Context) error {
	return f(ctx)
}

// Locker acquires exclusive locks by key without waiting
type Locker interface {
	// TryLock acquires the lock for key or returns ErrLocked immediately
	TryLock(ctx context.Context, key string) (Unlocker, error)
}
