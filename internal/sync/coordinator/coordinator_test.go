package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/ledgersync/internal/config"
	"github.com/stacklok/ledgersync/internal/connection"
	connmocks "github.com/stacklok/ledgersync/internal/connection/mocks"
	"github.com/stacklok/ledgersync/internal/events"
	eventsmocks "github.com/stacklok/ledgersync/internal/events/mocks"
	"github.com/stacklok/ledgersync/internal/ledger"
	"github.com/stacklok/ledgersync/internal/status"
	pkgsync "github.com/stacklok/ledgersync/internal/sync"
	"github.com/stacklok/ledgersync/internal/sync/lock"
	syncmocks "github.com/stacklok/ledgersync/internal/sync/mocks"
	"github.com/stacklok/ledgersync/internal/sync/state"
	statemocks "github.com/stacklok/ledgersync/internal/sync/state/mocks"
)

func inactive() *bool {
	b := false
	return &b
}

var testConnections = []config.ConnectionConfig{
	{ID: "conn-a", UserID: "user-1", AccessToken: "access-a"},
	{ID: "conn-b", UserID: "user-1", AccessToken: "access-b"},
	{ID: "conn-c", UserID: "user-2", AccessToken: "access-c"},
	{ID: "conn-off", UserID: "user-2", AccessToken: "access-off", Active: inactive()},
}

type fixture struct {
	runner      *syncmocks.MockRunner
	publisher   *eventsmocks.MockPublisher
	connections connection.Store
	locker      lock.Locker
	statusSvc   state.ConnectionStateService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := &fixture{
		runner:      syncmocks.NewMockRunner(ctrl),
		publisher:   eventsmocks.NewMockPublisher(ctrl),
		connections: connection.NewConfigStore(testConnections),
		locker:      lock.NewMemoryLocker(),
		statusSvc:   state.NewFileStateService(status.NewFileStatusPersistence(t.TempDir())),
	}
	require.NoError(t, f.statusSvc.Initialize(context.Background(), []string{"conn-a", "conn-b", "conn-c"}))
	return f
}

func (f *fixture) coordinator(cfg *config.SyncConfig) Coordinator {
	return New(f.runner, f.connections, f.locker, f.statusSvc, cfg, WithPublisher(f.publisher))
}

func connID(id string) gomock.Matcher {
	return gomock.Cond(func(c *ledger.Connection) bool { return c.ID == id })
}

func TestRunSync_Success(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.runner.EXPECT().Run(gomock.Any(), connID("conn-a")).
		DoAndReturn(func(ctx context.Context, conn *ledger.Connection) *pkgsync.Result {
			// status is Syncing while the run is in flight
			s, err := f.statusSvc.GetSyncStatus(ctx, conn.ID)
			require.NoError(t, err)
			assert.Equal(t, status.SyncPhaseSyncing, s.Phase)
			assert.Equal(t, 1, s.AttemptCount)
			return &pkgsync.Result{ConnectionID: conn.ID, Added: 2, Modified: 1, Removed: 1, Pages: 2, Cursor: "c2"}
		})
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Cond(func(ev events.SyncEvent) bool {
		return ev.Type == events.TypeSyncCompleted && ev.ConnectionID == "conn-a" && ev.Added == 2
	})).Return(nil)

	result, err := f.coordinator(nil).RunSync(ctx, "conn-a")
	require.NoError(t, err)
	require.NoError(t, result.Err)
	assert.Equal(t, ledger.Cursor("c2"), result.Cursor)

	s, err := f.statusSvc.GetSyncStatus(ctx, "conn-a")
	require.NoError(t, err)
	assert.Equal(t, status.SyncPhaseComplete, s.Phase)
	assert.Equal(t, messageCompleted, s.Message)
	assert.NotNil(t, s.LastSyncTime)
	assert.Zero(t, s.AttemptCount)
	assert.Equal(t, 2, s.Added)
	assert.Equal(t, 1, s.Removed)

	conn, err := f.connections.Get(ctx, "conn-a")
	require.NoError(t, err)
	assert.NotNil(t, conn.LastSync)

	_, err = f.locker.TryLock(ctx, "conn-a")
	require.NoError(t, err, "lock is released after the run")
}

func TestRunSync_FailedRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	runErr := pkgsync.NewError(pkgsync.KindProviderRejected, pkgsync.StageRefreshingAccounts, errors.New("ITEM_LOGIN_REQUIRED"))
	f.runner.EXPECT().Run(gomock.Any(), connID("conn-b")).Return(&pkgsync.Result{ConnectionID: "conn-b", Err: runErr})
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Cond(func(ev events.SyncEvent) bool {
		return ev.Type == events.TypeSyncFailed && ev.ErrorKind == "ProviderRejected"
	})).Return(errors.New("broker down"))

	result, err := f.coordinator(nil).RunSync(ctx, "conn-b")
	require.NoError(t, err, "a run that happened reports its failure in the result")
	assert.Equal(t, pkgsync.KindProviderRejected, pkgsync.KindOf(result.Err))

	s, err := f.statusSvc.GetSyncStatus(ctx, "conn-b")
	require.NoError(t, err)
	assert.Equal(t, status.SyncPhaseFailed, s.Phase)
	assert.Equal(t, "ProviderRejected", s.ErrorKind)
	assert.Equal(t, "RefreshingAccounts", s.Stage)
	assert.Equal(t, 1, s.AttemptCount)
	assert.Nil(t, s.LastSyncTime)

	conn, err := f.connections.Get(ctx, "conn-b")
	require.NoError(t, err)
	assert.Nil(t, conn.LastSync)
}

func TestRunSync_NotRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		connectionID string
		holdLock     bool
		wantKind     pkgsync.Kind
	}{
		{name: "unknown connection", connectionID: "conn-missing", wantKind: pkgsync.KindConnectionNotFound},
		{name: "inactive connection", connectionID: "conn-off", wantKind: pkgsync.KindConnectionNotFound},
		{name: "already syncing", connectionID: "conn-a", holdLock: true, wantKind: pkgsync.KindLockHeld},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			ctx := context.Background()
			if tt.holdLock {
				_, err := f.locker.TryLock(ctx, tt.connectionID)
				require.NoError(t, err)
			}

			result, err := f.coordinator(nil).RunSync(ctx, tt.connectionID)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, pkgsync.KindOf(err))
			require.NotNil(t, result)
			assert.Equal(t, tt.connectionID, result.ConnectionID)
			assert.Equal(t, tt.wantKind, pkgsync.KindOf(result.Err))
		})
	}
}

func TestRunSync_LockHeldMessage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.locker.TryLock(context.Background(), "conn-a")
	require.NoError(t, err)

	_, err = f.coordinator(nil).RunSync(context.Background(), "conn-a")
	assert.EqualError(t, err, "already syncing")
	assert.ErrorIs(t, err, lock.ErrLocked)
}

func TestRunSyncAll(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	var inFlight, maxInFlight atomic.Int32
	f.runner.EXPECT().Run(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, conn *ledger.Connection) *pkgsync.Result {
			n := inFlight.Add(1)
			for {
				m := maxInFlight.Load()
				if n <= m || maxInFlight.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			inFlight.Add(-1)

			if conn.ID == "conn-b" {
				return &pkgsync.Result{
					ConnectionID: conn.ID,
					Err:          pkgsync.NewError(pkgsync.KindProviderUnavailable, pkgsync.StageSyncingPage, errors.New("503")),
				}
			}
			return &pkgsync.Result{ConnectionID: conn.ID, Pages: 1}
		}).Times(3)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	results, err := f.coordinator(&config.SyncConfig{Concurrency: 2}).RunSyncAll(ctx)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "conn-a", results[0].ConnectionID)
	assert.Equal(t, "conn-b", results[1].ConnectionID)
	assert.Equal(t, "conn-c", results[2].ConnectionID)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, pkgsync.KindProviderUnavailable, pkgsync.KindOf(results[1].Err))
	assert.NoError(t, results[2].Err, "a failed sibling does not stop the others")
	assert.LessOrEqual(t, maxInFlight.Load(), int32(2))
}

func TestRunSyncAll_KeepsStoreOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	store := connmocks.NewMockStore(gomock.NewController(t))
	listed := []*ledger.Connection{
		{ID: "conn-c", Active: true},
		{ID: "conn-a", Active: true},
		{ID: "conn-b", Active: true},
	}
	store.EXPECT().ListActive(gomock.Any()).Return(listed, nil)
	store.EXPECT().MarkSynced(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(3)
	f.connections = store

	f.runner.EXPECT().Run(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, conn *ledger.Connection) *pkgsync.Result {
			// finish in reverse of the listed order
			if conn.ID == "conn-c" {
				time.Sleep(30 * time.Millisecond)
			}
			return &pkgsync.Result{ConnectionID: conn.ID}
		}).Times(3)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	results, err := f.coordinator(&config.SyncConfig{Concurrency: 3}).RunSyncAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, conn := range listed {
		assert.Equal(t, conn.ID, results[i].ConnectionID)
	}
}

func TestRunSyncAll_SkipsLockedConnection(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	_, err := f.locker.TryLock(ctx, "conn-b")
	require.NoError(t, err)

	f.runner.EXPECT().Run(gomock.Any(), gomock.Not(connID("conn-b"))).
		DoAndReturn(func(_ context.Context, conn *ledger.Connection) *pkgsync.Result {
			return &pkgsync.Result{ConnectionID: conn.ID}
		}).Times(2)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	results, err := f.coordinator(nil).RunSyncAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, pkgsync.KindLockHeld, pkgsync.KindOf(results[1].Err))

	s, err := f.statusSvc.GetSyncStatus(ctx, "conn-b")
	require.NoError(t, err)
	assert.NotEqual(t, status.SyncPhaseSyncing, s.Phase, "skipped runs leave status untouched")
}

func TestRunSync_UntrackedStatus(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	runner := syncmocks.NewMockRunner(ctrl)
	statusSvc := statemocks.NewMockConnectionStateService(ctrl)

	gomock.InOrder(
		statusSvc.EXPECT().UpdateStatusAtomically(gomock.Any(), "conn-a", gomock.Any()).
			Return(false, state.ErrConnectionNotTracked),
		statusSvc.EXPECT().UpdateSyncStatus(gomock.Any(), "conn-a", gomock.Cond(func(s *status.SyncStatus) bool {
			return s.Phase == status.SyncPhaseSyncing && s.AttemptCount == 1
		})).Return(nil),
		runner.EXPECT().Run(gomock.Any(), connID("conn-a")).Return(&pkgsync.Result{ConnectionID: "conn-a"}),
		statusSvc.EXPECT().UpdateStatusAtomically(gomock.Any(), "conn-a", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, fn func(*status.SyncStatus) bool) (bool, error) {
				s := &status.SyncStatus{Phase: status.SyncPhaseSyncing, AttemptCount: 3}
				require.True(t, fn(s))
				assert.Equal(t, status.SyncPhaseComplete, s.Phase)
				assert.Zero(t, s.AttemptCount)
				return true, nil
			}),
	)

	c := New(runner, connection.NewConfigStore(testConnections), lock.NewMemoryLocker(), statusSvc, nil)
	result, err := c.RunSync(context.Background(), "conn-a")
	require.NoError(t, err)
	require.NoError(t, result.Err)
}

func TestCoordinator_StartRunsOnStartAndStops(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	var runs atomic.Int32
	f.runner.EXPECT().Run(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, conn *ledger.Connection) *pkgsync.Result {
			runs.Add(1)
			return &pkgsync.Result{ConnectionID: conn.ID}
		}).Times(3)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	coord := f.coordinator(&config.SyncConfig{RunOnStart: true, Schedule: "@every 1h"})

	started := make(chan error, 1)
	go func() { started <- coord.Start(context.Background()) }()

	require.Eventually(t, func() bool { return runs.Load() == 3 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, coord.Stop())

	select {
	case err := <-started:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not stop")
	}
}

func TestCoordinator_InvalidSchedule(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	err := f.coordinator(&config.SyncConfig{Schedule: "every tuesday"}).Start(context.Background())
	require.ErrorContains(t, err, "invalid sync schedule")
}

func TestCoordinator_Stop_BeforeStart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	assert.NoError(t, f.coordinator(nil).Stop())
}

type exhaustedLocker struct{}

func (exhaustedLocker) TryLock(context.Context, string) (lock.Unlocker, error) {
	return nil, fmt.Errorf("%w after 5s", lock.ErrNoLockSession)
}

func TestRunSync_LockSessionsExhausted(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.locker = exhaustedLocker{}

	result, err := f.coordinator(nil).RunSync(context.Background(), "conn-a")
	require.Error(t, err)
	assert.Equal(t, pkgsync.KindLockFailed, pkgsync.KindOf(err))
	assert.ErrorIs(t, err, lock.ErrNoLockSession)
	assert.NotErrorIs(t, err, lock.ErrLocked)
	require.NotNil(t, result)
	assert.Equal(t, pkgsync.KindLockFailed, pkgsync.KindOf(result.Err))
}
