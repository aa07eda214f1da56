package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/ledgersync/database"
	"github.com/stacklok/ledgersync/internal/db/sqlc"
	"github.com/stacklok/ledgersync/internal/status"
)

func TestPhaseConversion(t *testing.T) {
	t.Parallel()

	for _, phase := range []status.SyncPhase{status.SyncPhaseSyncing, status.SyncPhaseComplete, status.SyncPhaseFailed} {
		assert.Equal(t, phase, dbSyncStatusToPhase(syncPhaseToDBStatus(phase)))
	}
	assert.Equal(t, sqlc.SyncStatusFAILED, syncPhaseToDBStatus(""))
	assert.Equal(t, status.SyncPhaseFailed, dbSyncStatusToPhase("bogus"))
}

func TestDBStateService(t *testing.T) {
	t.Parallel()

	pool, cleanup := database.SetupTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	database.InsertTestConnection(t, pool, "conn-1")
	database.InsertTestConnection(t, pool, "conn-2")

	svc := NewDBStateService(pool)

	_, err := svc.GetSyncStatus(ctx, "conn-1")
	require.ErrorIs(t, err, ErrConnectionNotTracked)

	require.NoError(t, svc.Initialize(ctx, []string{"conn-1", "conn-2"}))

	got, err := svc.GetSyncStatus(ctx, "conn-1")
	require.NoError(t, err)
	assert.Equal(t, status.SyncPhaseFailed, got.Phase)
	assert.Equal(t, messageNeverSynced, got.Message)

	started := time.Now().UTC().Truncate(time.Microsecond)
	updated, err := svc.UpdateStatusAtomically(ctx, "conn-1", func(s *status.SyncStatus) bool {
		s.Phase = status.SyncPhaseSyncing
		s.LastAttempt = &started
		s.AttemptCount++
		return true
	})
	require.NoError(t, err)
	assert.True(t, updated)

	// a restart finds conn-1 in Syncing and resets it
	require.NoError(t, svc.Initialize(ctx, []string{"conn-1", "conn-2"}))
	got, err = svc.GetSyncStatus(ctx, "conn-1")
	require.NoError(t, err)
	assert.Equal(t, status.SyncPhaseFailed, got.Phase)
	assert.Equal(t, messageInterrupted, got.Message)
	assert.Equal(t, 1, got.AttemptCount)

	success := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, svc.UpdateSyncStatus(ctx, "conn-2", &status.SyncStatus{
		Phase:        status.SyncPhaseComplete,
		LastSyncTime: &success,
		Added:        2,
		Modified:     1,
		Removed:      1,
	}))

	all, err := svc.ListSyncStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, status.SyncPhaseComplete, all["conn-2"].Phase)
	assert.Equal(t, 2, all["conn-2"].Added)
	assert.Equal(t, 1, all["conn-2"].Removed)
	require.NotNil(t, all["conn-2"].LastSyncTime)
	assert.True(t, success.Equal(*all["conn-2"].LastSyncTime))

	updated, err = svc.UpdateStatusAtomically(ctx, "conn-2", func(*status.SyncStatus) bool { return false })
	require.NoError(t, err)
	assert.False(t, updated)

	_, err = svc.UpdateStatusAtomically(ctx, "missing", func(*status.SyncStatus) bool { return true })
	require.ErrorIs(t, err, ErrConnectionNotTracked)
}
