package state

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/ledgersync/internal/config"
	"github.com/stacklok/ledgersync/internal/status"
)

// NewStateService picks the status backend matching cfg.Storage. Database
// storage keeps statuses in the connection_syncs table and needs pool;
// file storage writes one JSON status document per connection.
func NewStateService(cfg *config.Config, files status.StatusPersistence, pool *pgxpool.Pool) (ConnectionStateService, error) {
	if cfg.Storage.GetType() != config.StorageTypeDatabase {
		return NewFileStateService(files), nil
	}
	if pool == nil {
		return nil, errors.New("database pool is required when storage type is database")
	}
	return NewDBStateService(pool), nil
}
