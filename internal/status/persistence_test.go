package status

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConnectionID = "conn-1"

func TestFileStatusPersistence_SaveAndLoad(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	persistence := NewFileStatusPersistence(tmpDir)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	want := &SyncStatus{
		Phase:        SyncPhaseFailed,
		Stage:        "SyncingPage",
		ErrorKind:    "ProviderUnavailable",
		Message:      "provider unavailable after 5 attempts",
		LastAttempt:  &now,
		AttemptCount: 2,
		Added:        3,
	}

	require.NoError(t, persistence.SaveStatus(ctx, testConnectionID, want))

	_, err := os.Stat(filepath.Join(tmpDir, testConnectionID, StatusFileName))
	require.NoError(t, err)

	got, err := persistence.LoadStatus(ctx, testConnectionID)
	require.NoError(t, err)
	assert.Equal(t, want.Phase, got.Phase)
	assert.Equal(t, want.Stage, got.Stage)
	assert.Equal(t, want.ErrorKind, got.ErrorKind)
	assert.Equal(t, want.Message, got.Message)
	assert.Equal(t, want.AttemptCount, got.AttemptCount)
	assert.Equal(t, want.Added, got.Added)
	require.NotNil(t, got.LastAttempt)
	assert.True(t, now.Equal(*got.LastAttempt))
	assert.Nil(t, got.LastSyncTime)
}

func TestFileStatusPersistence_LoadNonExistent(t *testing.T) {
	t.Parallel()

	persistence := NewFileStatusPersistence(t.TempDir())

	got, err := persistence.LoadStatus(context.Background(), "never-synced")
	require.NoError(t, err)
	assert.Equal(t, &SyncStatus{}, got)
}

func TestFileStatusPersistence_InvalidConnectionID(t *testing.T) {
	t.Parallel()

	persistence := NewFileStatusPersistence(t.TempDir())

	err := persistence.SaveStatus(context.Background(), "../escape", &SyncStatus{Phase: SyncPhaseComplete})
	require.Error(t, err)

	_, err = persistence.LoadStatus(context.Background(), "")
	require.Error(t, err)
}

func TestFileStatusPersistence_LoadAllStatus(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	persistence := NewFileStatusPersistence(tmpDir)
	ctx := context.Background()

	all, err := NewFileStatusPersistence(filepath.Join(tmpDir, "missing")).LoadAllStatus(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, persistence.SaveStatus(ctx, "conn-a", &SyncStatus{Phase: SyncPhaseComplete}))
	require.NoError(t, persistence.SaveStatus(ctx, "conn-b", &SyncStatus{Phase: SyncPhaseFailed}))

	// a directory without a status file is not a tracked connection
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "conn-c"), 0750))
	// a corrupt status is skipped
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "conn-d"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "conn-d", StatusFileName), []byte("{"), 0600))
	// stray files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "README"), []byte("x"), 0600))

	all, err = persistence.LoadAllStatus(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, SyncPhaseComplete, all["conn-a"].Phase)
	assert.Equal(t, SyncPhaseFailed, all["conn-b"].Phase)
}
