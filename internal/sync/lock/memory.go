package lock

import (
	"context"
	"sync"
)

type memoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryLocker returns a Locker scoped to the current process
func NewMemoryLocker() Locker {
	return &memoryLocker{held: make(map[string]struct{})}
}

func (m *memoryLocker) TryLock(_ context.Context, key string) (Unlocker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.held[key]; ok {
		return nil, ErrLocked
	}
	m.held[key] = struct{}{}

	var once sync.Once
	return UnlockFunc(func(context.Context) error {
		once.Do(func() {
			m.mu.Lock()
			delete(m.held, key)
			m.mu.Unlock()
		})
		return nil
	}), nil
}
