package database

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tclog "github.com/testcontainers/testcontainers-go/log"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

type nopLogger struct{}

func (*nopLogger) Printf(_ string, _ ...any) {}

var _ tclog.Logger = (*nopLogger)(nil)

var (
	dbName = "testdb"
	dbUser = "testuser"
	dbPass = "testpass"
)

// SetupTestDBContainer starts a Postgres container without applying migrations
// and returns its connection string
func SetupTestDBContainer(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()

	postgresContainer, err := postgres.Run(
		ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPass),
		postgres.BasicWaitStrategies(),
		tc.WithLogger(&nopLogger{}),
	)
	require.NoError(t, err)

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	return connStr, func() {
		tc.CleanupContainer(t, postgresContainer)
	}
}

// SetupTestDB creates a Postgres container using testcontainers, runs migrations
// and returns a connection pool
func SetupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	ctx := context.Background()
	connStr, cleanupContainer := SetupTestDBContainer(t, ctx)

	// Test full migration rollback before handing out the database
	require.NoError(t, MigrateUp(ctx, connStr))
	require.NoError(t, MigrateDown(ctx, connStr, 1))
	require.NoError(t, MigrateUp(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	cleanupFunc := func() {
		pool.Close()
		cleanupContainer()
	}

	return pool, cleanupFunc
}

// InsertTestConnection inserts an active connection row for tests
func InsertTestConnection(t *testing.T, pool *pgxpool.Pool, id string) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`INSERT INTO connections (id, user_id, access_token, is_active, created_at, updated_at)
		 VALUES ($1, 'user-1', $2, true, now(), now())`,
		id, "access-"+id,
	)
	require.NoError(t, err)
}

// InsertTestAccount inserts an account row owned by connectionID for tests
func InsertTestAccount(t *testing.T, pool *pgxpool.Pool, connectionID, externalID string) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`INSERT INTO accounts (connection_id, external_id, name, type, created_at, updated_at)
		 VALUES ($1, $2, 'Checking', 'depository', now(), now())`,
		connectionID, externalID,
	)
	require.NoError(t, err)
}
