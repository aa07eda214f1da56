// Package database provides the schema migrations and database test tooling.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// Registers the pgx5:// scheme
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationsFromSource returns a migration source driver from the embedded migrations.
func migrationsFromSource() (source.Driver, error) {
	return iofs.New(migrationsFS, "migrations")
}

// Migrator is the interface for the migration tooling.
type Migrator interface {
	Up() error
	Down() error
	Steps(int) error
	Version() (uint, bool, error)
	Close() (error, error)
}

// NewFromConnectionString returns a new migration instance from the given connection string.
// Both postgres:// URLs and key=value DSNs are accepted.
func NewFromConnectionString(connString string) (Migrator, error) {
	d, err := migrationsFromSource()
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	migrateURL, err := toMigrateURL(connString)
	if err != nil {
		return nil, err
	}
	return migrate.NewWithSourceInstance("iofs", d, migrateURL)
}

// MigrateUp applies all pending migrations
func MigrateUp(_ context.Context, connString string) error {
	m, err := NewFromConnectionString(connString)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() {
		_, _ = m.Close()
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// MigrateDown reverts the given number of migrations
func MigrateDown(_ context.Context, connString string, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}

	m, err := NewFromConnectionString(connString)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() {
		_, _ = m.Close()
	}()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to revert migrations: %w", err)
	}
	return nil
}

// toMigrateURL rewrites a Postgres connection string for the pgx/v5 migrate driver
func toMigrateURL(connString string) (string, error) {
	switch {
	case strings.HasPrefix(connString, "pgx5://"):
		return connString, nil
	case strings.HasPrefix(connString, "postgres://"):
		return "pgx5://" + strings.TrimPrefix(connString, "postgres://"), nil
	case strings.HasPrefix(connString, "postgresql://"):
		return "pgx5://" + strings.TrimPrefix(connString, "postgresql://"), nil
	}

	// key=value DSN
	u := url.URL{Scheme: "pgx5"}
	q := url.Values{}
	var user, password, host, port, dbname string
	for _, field := range strings.Fields(connString) {
		k, v, ok := strings.Cut(field, "=")
		if !ok {
			return "", fmt.Errorf("invalid connection string field %q", field)
		}
		switch k {
		case "host":
			host = v
		case "port":
			port = v
		case "user":
			user = v
		case "password":
			password = v
		case "dbname":
			dbname = v
		default:
			q.Set(k, v)
		}
	}
	if host == "" {
		return "", fmt.Errorf("connection string has no host")
	}
	u.Host = host
	if port != "" {
		u.Host = host + ":" + port
	}
	if password != "" {
		u.User = url.UserPassword(user, password)
	} else if user != "" {
		u.User = url.User(user)
	}
	u.Path = "/" + dbname
	u.RawQuery = q.Encode()
	return u.String(), nil
}
