// Package status provides per-connection sync status tracking and persistence.
package status

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/stacklok/ledgersync/internal/fileutil"
)

//go:generate mockgen -destination=mocks/mock_status_persistence.go -package=mocks -source=persistence.go StatusPersistence

const (
	// StatusFileName is the name of the status file
	StatusFileName = "status.json"
)

// StatusPersistence defines the interface for sync status persistence
//
//nolint:revive // This name is fine
type StatusPersistence interface {
	// SaveStatus saves the sync status of a connection
	SaveStatus(ctx context.Context, connectionID string, status *SyncStatus) error

	// LoadStatus loads the sync status of a connection.
	// Returns an empty SyncStatus if nothing was stored yet (first run).
	LoadStatus(ctx context.Context, connectionID string) (*SyncStatus, error)

	// LoadAllStatus loads sync status for all connections
	LoadAllStatus(ctx context.Context) (map[string]*SyncStatus, error)
}

// fileStatusPersistence implements StatusPersistence using local filesystem
type fileStatusPersistence struct {
	basePath string
}

// NewFileStatusPersistence creates a new file-based status persistence.
// basePath is the data directory holding one subdirectory per connection.
func NewFileStatusPersistence(basePath string) StatusPersistence {
	return &fileStatusPersistence{
		basePath: basePath,
	}
}

func (f *fileStatusPersistence) path(connectionID string) (string, error) {
	dir, err := fileutil.ConnectionDir(f.basePath, connectionID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, StatusFileName), nil
}

// SaveStatus saves the sync status to a JSON file in the connection directory
func (f *fileStatusPersistence) SaveStatus(_ context.Context, connectionID string, status *SyncStatus) error {
	path, err := f.path(connectionID)
	if err != nil {
		return err
	}
	if err := fileutil.WriteJSON(path, status); err != nil {
		return fmt.Errorf("failed to save status for connection '%s': %w", connectionID, err)
	}
	return nil
}

// LoadStatus loads the sync status from the connection directory
func (f *fileStatusPersistence) LoadStatus(_ context.Context, connectionID string) (*SyncStatus, error) {
	path, err := f.path(connectionID)
	if err != nil {
		return nil, err
	}

	var status SyncStatus
	if _, err := fileutil.ReadJSON(path, &status); err != nil {
		return nil, fmt.Errorf("failed to load status for connection '%s': %w", connectionID, err)
	}
	return &status, nil
}

// LoadAllStatus loads sync status for every connection directory that has one
func (f *fileStatusPersistence) LoadAllStatus(ctx context.Context) (map[string]*SyncStatus, error) {
	result := make(map[string]*SyncStatus)

	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to read status directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		connectionID := entry.Name()
		status, err := f.LoadStatus(ctx, connectionID)
		if err != nil {
			slog.Warn("Skipping unreadable status", "connection_id", connectionID, "error", err)
			continue
		}
		if status.Phase == "" {
			continue
		}

		result[connectionID] = status
	}

	return result, nil
}
