package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stacklok/ledgersync/internal/status"
)

type fileStateService struct {
	statusPersistence status.StatusPersistence

	mu             sync.RWMutex
	cachedStatuses map[string]*status.SyncStatus
}

// NewFileStateService creates a new file-based connection state service
func NewFileStateService(statusPersistence status.StatusPersistence) ConnectionStateService {
	return &fileStateService{
		statusPersistence: statusPersistence,
		cachedStatuses:    make(map[string]*status.SyncStatus),
	}
}

func (f *fileStateService) Initialize(ctx context.Context, connectionIDs []string) error {
	for _, id := range connectionIDs {
		if err := f.loadOrInitialize(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (f *fileStateService) ListSyncStatuses(_ context.Context) (map[string]*status.SyncStatus, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	result := make(map[string]*status.SyncStatus, len(f.cachedStatuses))
	for id, syncStatus := range f.cachedStatuses {
		statusCopy := *syncStatus
		result[id] = &statusCopy
	}
	return result, nil
}

func (f *fileStateService) GetSyncStatus(_ context.Context, connectionID string) (*status.SyncStatus, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	syncStatus, exists := f.cachedStatuses[connectionID]
	if !exists {
		return nil, ErrConnectionNotTracked
	}
	statusCopy := *syncStatus
	return &statusCopy, nil
}

func (f *fileStateService) UpdateStatusAtomically(
	ctx context.Context,
	connectionID string,
	testAndUpdateFn func(syncStatus *status.SyncStatus) bool,
) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, exists := f.cachedStatuses[connectionID]
	if !exists {
		return false, ErrConnectionNotTracked
	}

	syncStatus := *current
	if !testAndUpdateFn(&syncStatus) {
		return false, nil
	}
	if err := f.statusPersistence.SaveStatus(ctx, connectionID, &syncStatus); err != nil {
		return false, err
	}
	f.cachedStatuses[connectionID] = &syncStatus
	return true, nil
}

func (f *fileStateService) UpdateSyncStatus(ctx context.Context, connectionID string, syncStatus *status.SyncStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.statusPersistence.SaveStatus(ctx, connectionID, syncStatus); err != nil {
		return err
	}
	statusCopy := *syncStatus
	f.cachedStatuses[connectionID] = &statusCopy
	return nil
}

func (f *fileStateService) loadOrInitialize(ctx context.Context, connectionID string) error {
	syncStatus, err := f.statusPersistence.LoadStatus(ctx, connectionID)
	if err != nil {
		slog.Warn("Failed to load sync status, initializing with defaults",
			"connection_id", connectionID, "error", err)
		syncStatus = &status.SyncStatus{}
	}

	// Only one process is assumed to own the data directory, so an entry still
	// in Syncing can only come from a run that died mid-flight.
	switch {
	case syncStatus.Phase == "":
		syncStatus.Phase = status.SyncPhaseFailed
		syncStatus.Message = messageNeverSynced
		if err := f.statusPersistence.SaveStatus(ctx, connectionID, syncStatus); err != nil {
			return fmt.Errorf("failed to persist default sync status for %s: %w", connectionID, err)
		}
	case syncStatus.Phase == status.SyncPhaseSyncing:
		slog.Warn("Previous sync was interrupted, resetting to Failed", "connection_id", connectionID)
		syncStatus.Phase = status.SyncPhaseFailed
		syncStatus.Message = messageInterrupted
		if err := f.statusPersistence.SaveStatus(ctx, connectionID, syncStatus); err != nil {
			return fmt.Errorf("failed to persist corrected sync status for %s: %w", connectionID, err)
		}
	}

	if syncStatus.LastSyncTime != nil {
		slog.Info("Loaded sync status",
			"connection_id", connectionID,
			"phase", syncStatus.Phase,
			"last_sync", syncStatus.LastSyncTime.Format(time.RFC3339),
		)
	} else {
		slog.Info("Sync status initialized", "connection_id", connectionID, "phase", syncStatus.Phase)
	}

	f.mu.Lock()
	f.cachedStatuses[connectionID] = syncStatus
	f.mu.Unlock()
	return nil
}
