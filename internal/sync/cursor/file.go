package cursor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/stacklok/ledgersync/internal/fileutil"
	"github.com/stacklok/ledgersync/internal/ledger"
)

// FileName is the name of the per-connection cursor document
const FileName = "cursor.json"

type fileStore struct {
	basePath string
}

// NewFileStore creates a Store keeping one JSON document per connection under basePath
func NewFileStore(basePath string) Store {
	return &fileStore{basePath: basePath}
}

func (f *fileStore) path(connectionID string) (string, error) {
	dir, err := fileutil.ConnectionDir(f.basePath, connectionID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

func (f *fileStore) Get(_ context.Context, connectionID string) (ledger.Cursor, bool, error) {
	path, err := f.path(connectionID)
	if err != nil {
		return "", false, err
	}

	var pos ledger.SyncPosition
	ok, err := fileutil.ReadJSON(path, &pos)
	if err != nil {
		return "", false, fmt.Errorf("failed to load cursor for connection %s: %w", connectionID, err)
	}
	if !ok {
		return "", false, nil
	}
	return pos.Cursor, true, nil
}

func (f *fileStore) Set(_ context.Context, connectionID string, cursor ledger.Cursor) error {
	path, err := f.path(connectionID)
	if err != nil {
		return err
	}

	pos := ledger.SyncPosition{
		ConnectionID: connectionID,
		Cursor:       cursor,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := fileutil.WriteJSON(path, pos); err != nil {
		return fmt.Errorf("failed to save cursor for connection %s: %w", connectionID, err)
	}
	return nil
}
