// Package state manages the per-connection sync status the service persists.
package state

import (
	"context"
	"errors"

	"github.com/stacklok/ledgersync/internal/status"
)

// ErrConnectionNotTracked is returned when no status exists for a connection
var ErrConnectionNotTracked = errors.New("connection has no sync status")

// ConnectionStateService provides methods for inspecting and updating connection sync state.
//
//go:generate mockgen -destination=mocks/mock_connection_state_service.go -package=mocks github.com/stacklok/ledgersync/internal/sync/state ConnectionStateService
type ConnectionStateService interface {
	// Initialize makes sure every connection has a status entry.
	// Entries left in Syncing by an interrupted process are reset to Failed.
	Initialize(ctx context.Context, connectionIDs []string) error
	// ListSyncStatuses lists all available sync statuses.
	ListSyncStatuses(ctx context.Context) (map[string]*status.SyncStatus, error)
	// GetSyncStatus returns the status of one connection or ErrConnectionNotTracked.
	GetSyncStatus(ctx context.Context, connectionID string) (*status.SyncStatus, error)
	// UpdateSyncStatus overrides the status of the connection.
	UpdateSyncStatus(ctx context.Context, connectionID string, syncStatus *status.SyncStatus) error
	// UpdateStatusAtomically fetches the current status, applies testAndUpdateFn and
	// stores the result if the function reports a change, all as one atomic action.
	UpdateStatusAtomically(
		ctx context.Context,
		connectionID string,
		testAndUpdateFn func(syncStatus *status.SyncStatus) bool,
	) (bool, error)
}

const (
	messageNeverSynced = "No previous sync status found"
	messageInterrupted = "Previous sync was interrupted"
)
