package app

import (
	"log/slog"

	"github.com/stacklok/ledgersync/internal/app/storage"
	"github.com/stacklok/ledgersync/internal/connection"
	"github.com/stacklok/ledgersync/internal/events"
	"github.com/stacklok/ledgersync/internal/sync/coordinator"
	"github.com/stacklok/ledgersync/internal/sync/state"
	"github.com/stacklok/ledgersync/internal/sync/writer"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// SyncCoordinator runs syncs on demand and on the configured schedule
	SyncCoordinator coordinator.Coordinator

	Connections connection.Store
	Statuses    state.ConnectionStateService
	Ledger      writer.Reader

	// Publisher sends sync events, a no-op when events are disabled
	Publisher events.Publisher

	// Storage owns pools and clients shared by the components above
	Storage storage.Factory
}

// Close releases the publisher and storage resources
func (c *AppComponents) Close() {
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			slog.Warn("Failed to close event publisher", "error", err)
		}
	}
	if c.Storage != nil {
		c.Storage.Cleanup()
	}
}
