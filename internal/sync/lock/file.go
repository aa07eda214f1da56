package lock

import (
	"context"
	"fmt"
	"os"

	"github.com/gofrs/flock"

	"github.com/stacklok/ledgersync/internal/fileutil"
)

type fileLocker struct {
	dir string
}

// NewFileLocker returns a Locker backed by advisory file locks in dir.
// Locks are visible to every process on the host that uses the same dir.
func NewFileLocker(dir string) Locker {
	return &fileLocker{dir: dir}
}

func (f *fileLocker) TryLock(_ context.Context, key string) (Unlocker, error) {
	path, err := fileutil.ConnectionDir(f.dir, key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(f.dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(path + ".lock")
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire file lock %s: %w", fl.Path(), err)
	}
	if !locked {
		return nil, ErrLocked
	}

	return UnlockFunc(func(context.Context) error {
		if err := fl.Unlock(); err != nil {
			return fmt.Errorf("failed to release file lock %s: %w", fl.Path(), err)
		}
		return nil
	}), nil
}
