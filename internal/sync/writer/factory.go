package writer

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/ledgersync/internal/config"
)

// NewStore creates a Store based on the configured storage type.
// The pool must not be nil when database storage is configured.
func NewStore(cfg *config.Config, pool *pgxpool.Pool) (Store, error) {
	switch cfg.Storage.GetType() {
	case config.StorageTypeDatabase:
		if pool == nil {
			return nil, fmt.Errorf("database pool is required when storage type is database")
		}
		return NewDBStore(pool), nil
	default:
		return NewFileStore(cfg.Storage.GetDataDir()), nil
	}
}
