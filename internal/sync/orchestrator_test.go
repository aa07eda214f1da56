package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/ledgersync/internal/ledger"
	"github.com/stacklok/ledgersync/internal/provider"
	providermocks "github.com/stacklok/ledgersync/internal/provider/mocks"
	"github.com/stacklok/ledgersync/internal/sync/cursor"
	cursormocks "github.com/stacklok/ledgersync/internal/sync/cursor/mocks"
	"github.com/stacklok/ledgersync/internal/sync/writer"
	writermocks "github.com/stacklok/ledgersync/internal/sync/writer/mocks"
)

var fastRetry = RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}

func testConn() *ledger.Connection {
	return &ledger.Connection{ID: "conn-1", UserID: "user-1", AccessToken: "access-sandbox-1", Active: true}
}

func account(id string) ledger.AccountSnapshot {
	current := decimal.RequireFromString("100.00")
	return ledger.AccountSnapshot{
		ExternalID: id,
		Name:       "Account " + id,
		Type:       "depository",
		Balances:   ledger.Balances{Current: &current, ISOCurrencyCode: "USD"},
	}
}

func txn(id, accountID, amount string, pending bool) ledger.TransactionRecord {
	return ledger.TransactionRecord{
		ExternalID:        id,
		AccountExternalID: accountID,
		Amount:            decimal.RequireFromString(amount),
		ISOCurrencyCode:   "USD",
		Date:              "2024-03-14",
		Pending:           pending,
		Name:              "txn " + id,
	}
}

func providerErr(kind provider.Kind, retryAfter time.Duration) error {
	return &provider.Error{Kind: kind, Op: "transactions/sync", RetryAfter: retryAfter, Err: errors.New("boom")}
}

type fileBackends struct {
	store   writer.Store
	cursors cursor.Store
}

func newFileBackends(t *testing.T) fileBackends {
	t.Helper()
	dir := t.TempDir()
	return fileBackends{store: writer.NewFileStore(dir), cursors: cursor.NewFileStore(dir)}
}

func requireKind(t *testing.T, result *Result, kind Kind, stage Stage) *Error {
	t.Helper()
	require.Error(t, result.Err)
	var serr *Error
	require.ErrorAs(t, result.Err, &serr)
	assert.Equal(t, kind, serr.Kind)
	assert.Equal(t, stage, serr.Stage)
	return serr
}

func TestOrchestrator_EndToEnd(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := providermocks.NewMockClient(ctrl)
	backends := newFileBackends(t)
	conn := testConn()

	modified := txn("t2", "acc-1", "20.00", false)
	modified.Name = "t2 posted"

	gomock.InOrder(
		client.EXPECT().FetchAccounts(gomock.Any(), conn).Return([]ledger.AccountSnapshot{account("acc-1")}, nil),
		client.EXPECT().FetchTransactionPage(gomock.Any(), conn, ledger.Cursor("")).Return(&ledger.SyncPage{
			Added:      []ledger.TransactionRecord{txn("t1", "acc-1", "10.00", false), txn("t2", "acc-1", "20.00", true)},
			NextCursor: "c1",
			HasMore:    true,
		}, nil),
		client.EXPECT().FetchTransactionPage(gomock.Any(), conn, ledger.Cursor("c1")).
			DoAndReturn(func(ctx context.Context, _ *ledger.Connection, _ ledger.Cursor) (*ledger.SyncPage, error) {
				// page 1 must be durable before page 2 is requested
				stored, ok, err := backends.cursors.Get(ctx, conn.ID)
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, ledger.Cursor("c1"), stored)

				return &ledger.SyncPage{
					Modified:   []ledger.TransactionRecord{modified},
					Removed:    []string{"t1"},
					NextCursor: "c2",
				}, nil
			}),
	)

	o := NewOrchestrator(client, backends.store, backends.cursors, WithRetryPolicy(fastRetry))
	result := o.Run(context.Background(), conn)

	require.NoError(t, result.Err)
	assert.Equal(t, &Result{
		ConnectionID: "conn-1",
		Added:        2,
		Modified:     1,
		Removed:      1,
		Pages:        2,
		Cursor:       "c2",
	}, result)

	txns, err := backends.store.ListTransactions(context.Background(), conn.ID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "t2", txns[0].ExternalID)
	assert.Equal(t, "t2 posted", txns[0].Name)
	assert.False(t, txns[0].Pending)

	stored, ok, err := backends.cursors.Get(context.Background(), conn.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ledger.Cursor("c2"), stored)
}

func TestOrchestrator_ResumesFromStoredCursor(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := providermocks.NewMockClient(ctrl)
	backends := newFileBackends(t)
	conn := testConn()
	require.NoError(t, backends.cursors.Set(context.Background(), conn.ID, "c7"))

	client.EXPECT().FetchAccounts(gomock.Any(), conn).Return([]ledger.AccountSnapshot{account("acc-1")}, nil)
	client.EXPECT().FetchTransactionPage(gomock.Any(), conn, ledger.Cursor("c7")).
		Return(&ledger.SyncPage{NextCursor: "c7"}, nil)

	result := NewOrchestrator(client, backends.store, backends.cursors).Run(context.Background(), conn)

	require.NoError(t, result.Err)
	assert.Equal(t, 1, result.Pages)
	assert.Equal(t, ledger.Cursor("c7"), result.Cursor)
	assert.Zero(t, result.Added+result.Modified+result.Removed)
}

func TestOrchestrator_DanglingAccountReference(t *testing.T) {
	t.Parallel()

	page := &ledger.SyncPage{
		Added:      []ledger.TransactionRecord{txn("t1", "acc-1", "1.00", false), txn("t2", "acc-new", "2.00", false)},
		NextCursor: "c1",
	}

	t.Run("refresh introduces the account", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		client := providermocks.NewMockClient(ctrl)
		backends := newFileBackends(t)
		conn := testConn()

		gomock.InOrder(
			client.EXPECT().FetchAccounts(gomock.Any(), conn).Return([]ledger.AccountSnapshot{account("acc-1")}, nil),
			client.EXPECT().FetchTransactionPage(gomock.Any(), conn, ledger.Cursor("")).Return(page, nil),
			client.EXPECT().FetchAccounts(gomock.Any(), conn).
				Return([]ledger.AccountSnapshot{account("acc-1"), account("acc-new")}, nil),
		)

		result := NewOrchestrator(client, backends.store, backends.cursors).Run(context.Background(), conn)
		require.NoError(t, result.Err)

		txns, err := backends.store.ListTransactions(context.Background(), conn.ID)
		require.NoError(t, err)
		assert.Len(t, txns, 2)
	})

	t.Run("still unknown after refresh", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		client := providermocks.NewMockClient(ctrl)
		backends := newFileBackends(t)
		conn := testConn()

		client.EXPECT().FetchAccounts(gomock.Any(), conn).Return([]ledger.AccountSnapshot{account("acc-1")}, nil).Times(2)
		client.EXPECT().FetchTransactionPage(gomock.Any(), conn, ledger.Cursor("")).Return(page, nil)

		result := NewOrchestrator(client, backends.store, backends.cursors).Run(context.Background(), conn)
		serr := requireKind(t, result, KindDanglingAccountReference, StageSyncingPage)
		assert.False(t, serr.Committed)

		txns, err := backends.store.ListTransactions(context.Background(), conn.ID)
		require.NoError(t, err)
		assert.Empty(t, txns)

		_, ok, err := backends.cursors.Get(context.Background(), conn.ID)
		require.NoError(t, err)
		assert.False(t, ok, "cursor must not advance")
	})
}

func TestOrchestrator_ProviderFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		setup     func(client *providermocks.MockClient)
		wantKind  Kind
		wantStage Stage
	}{
		{
			name: "rejected accounts fail without retry",
			setup: func(client *providermocks.MockClient) {
				client.EXPECT().FetchAccounts(gomock.Any(), gomock.Any()).
					Return(nil, providerErr(provider.KindRejected, 0)).Times(1)
			},
			wantKind:  KindProviderRejected,
			wantStage: StageRefreshingAccounts,
		},
		{
			name: "unavailable page exhausts attempts",
			setup: func(client *providermocks.MockClient) {
				client.EXPECT().FetchAccounts(gomock.Any(), gomock.Any()).Return(nil, nil)
				client.EXPECT().FetchTransactionPage(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, providerErr(provider.KindUnavailable, 0)).Times(fastRetry.MaxAttempts)
			},
			wantKind:  KindProviderUnavailable,
			wantStage: StageSyncingPage,
		},
		{
			name: "rate limited page exhausts attempts",
			setup: func(client *providermocks.MockClient) {
				client.EXPECT().FetchAccounts(gomock.Any(), gomock.Any()).Return(nil, nil)
				client.EXPECT().FetchTransactionPage(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, providerErr(provider.KindRateLimited, 2*time.Millisecond)).Times(fastRetry.MaxAttempts)
			},
			wantKind:  KindProviderRateLimited,
			wantStage: StageSyncingPage,
		},
		{
			name: "rejected page",
			setup: func(client *providermocks.MockClient) {
				client.EXPECT().FetchAccounts(gomock.Any(), gomock.Any()).Return(nil, nil)
				client.EXPECT().FetchTransactionPage(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, providerErr(provider.KindRejected, 0)).Times(1)
			},
			wantKind:  KindProviderRejected,
			wantStage: StageSyncingPage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			client := providermocks.NewMockClient(ctrl)
			backends := newFileBackends(t)
			tt.setup(client)

			o := NewOrchestrator(client, backends.store, backends.cursors, WithRetryPolicy(fastRetry))
			result := o.Run(context.Background(), testConn())

			serr := requireKind(t, result, tt.wantKind, tt.wantStage)
			assert.False(t, serr.Committed)
			assert.Zero(t, result.Pages)
			_, isProviderErr := provider.KindOf(result.Err)
			assert.True(t, isProviderErr, "provider error stays in the chain")
		})
	}
}

func TestOrchestrator_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := providermocks.NewMockClient(ctrl)
	backends := newFileBackends(t)
	conn := testConn()

	gomock.InOrder(
		client.EXPECT().FetchAccounts(gomock.Any(), conn).Return(nil, providerErr(provider.KindUnavailable, 0)),
		client.EXPECT().FetchAccounts(gomock.Any(), conn).Return([]ledger.AccountSnapshot{account("acc-1")}, nil),
		client.EXPECT().FetchTransactionPage(gomock.Any(), conn, ledger.Cursor("")).
			Return(nil, providerErr(provider.KindRateLimited, time.Millisecond)),
		client.EXPECT().FetchTransactionPage(gomock.Any(), conn, ledger.Cursor("")).
			Return(nil, providerErr(provider.KindUnavailable, 0)),
		client.EXPECT().FetchTransactionPage(gomock.Any(), conn, ledger.Cursor("")).Return(&ledger.SyncPage{
			Added:      []ledger.TransactionRecord{txn("t1", "acc-1", "1.00", false)},
			NextCursor: "c1",
		}, nil),
	)

	result := NewOrchestrator(client, backends.store, backends.cursors, WithRetryPolicy(fastRetry)).Run(context.Background(), conn)
	require.NoError(t, result.Err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, ledger.Cursor("c1"), result.Cursor)
}

func TestOrchestrator_StorageCommitError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := providermocks.NewMockClient(ctrl)
	store := writermocks.NewMockWriter(ctrl)
	cursors := cursormocks.NewMockStore(ctrl)
	conn := testConn()

	client.EXPECT().FetchAccounts(gomock.Any(), conn).Return([]ledger.AccountSnapshot{account("acc-1")}, nil)
	store.EXPECT().UpsertAccounts(gomock.Any(), conn.ID, gomock.Len(1)).Return(nil)
	cursors.EXPECT().Get(gomock.Any(), conn.ID).Return(ledger.Cursor("c0"), true, nil)
	client.EXPECT().FetchTransactionPage(gomock.Any(), conn, ledger.Cursor("c0")).Return(&ledger.SyncPage{
		Added:      []ledger.TransactionRecord{txn("t1", "acc-1", "1.00", false)},
		NextCursor: "c1",
	}, nil)
	store.EXPECT().ResolveAccounts(gomock.Any(), conn.ID, []string{"acc-1"}).Return(map[string]bool{"acc-1": true}, nil)
	store.EXPECT().ApplyPage(gomock.Any(), conn.ID, gomock.Any()).Return(errors.New("connection reset"))
	// no cursor Set expectation: the cursor must not move

	result := NewOrchestrator(client, store, cursors).Run(context.Background(), conn)

	serr := requireKind(t, result, KindStorageCommit, StageSyncingPage)
	assert.False(t, serr.Committed)
	assert.Equal(t, ledger.Cursor("c0"), result.Cursor)
}

func TestOrchestrator_CursorPersistError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := providermocks.NewMockClient(ctrl)
	store := writermocks.NewMockWriter(ctrl)
	cursors := cursormocks.NewMockStore(ctrl)
	conn := testConn()

	client.EXPECT().FetchAccounts(gomock.Any(), conn).Return(nil, nil)
	store.EXPECT().UpsertAccounts(gomock.Any(), conn.ID, gomock.Any()).Return(nil)
	cursors.EXPECT().Get(gomock.Any(), conn.ID).Return(ledger.Cursor(""), false, nil)
	client.EXPECT().FetchTransactionPage(gomock.Any(), conn, ledger.Cursor("")).Return(&ledger.SyncPage{
		Removed:    []string{"t9"},
		NextCursor: "c1",
		HasMore:    true,
	}, nil)
	store.EXPECT().ApplyPage(gomock.Any(), conn.ID, &ledger.MutationSet{
		Upserts: []ledger.TransactionRecord{},
		Deletes: []string{"t9"},
	}).Return(nil)
	cursors.EXPECT().Set(gomock.Any(), conn.ID, ledger.Cursor("c1")).Return(errors.New("disk full"))

	result := NewOrchestrator(client, store, cursors).Run(context.Background(), conn)

	serr := requireKind(t, result, KindCursorPersist, StageCommitting)
	assert.True(t, serr.Committed)
	assert.Zero(t, result.Pages)
}

func TestOrchestrator_CursorReadError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := providermocks.NewMockClient(ctrl)
	store := writermocks.NewMockWriter(ctrl)
	cursors := cursormocks.NewMockStore(ctrl)
	conn := testConn()

	client.EXPECT().FetchAccounts(gomock.Any(), conn).Return(nil, nil)
	store.EXPECT().UpsertAccounts(gomock.Any(), conn.ID, gomock.Any()).Return(nil)
	cursors.EXPECT().Get(gomock.Any(), conn.ID).Return(ledger.Cursor(""), false, errors.New("permission denied"))

	result := NewOrchestrator(client, store, cursors).Run(context.Background(), conn)
	requireKind(t, result, KindCursorPersist, StageSyncingPage)
}

func TestOrchestrator_Cancellation(t *testing.T) {
	t.Parallel()

	t.Run("before start", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		client := providermocks.NewMockClient(ctrl)
		backends := newFileBackends(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result := NewOrchestrator(client, backends.store, backends.cursors).Run(ctx, testConn())
		serr := requireKind(t, result, KindCanceled, StageIdle)
		assert.ErrorIs(t, serr, context.Canceled)
	})

	t.Run("between pages", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		client := providermocks.NewMockClient(ctrl)
		backends := newFileBackends(t)
		conn := testConn()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		client.EXPECT().FetchAccounts(gomock.Any(), conn).Return([]ledger.AccountSnapshot{account("acc-1")}, nil)
		client.EXPECT().FetchTransactionPage(gomock.Any(), conn, ledger.Cursor("")).
			DoAndReturn(func(context.Context, *ledger.Connection, ledger.Cursor) (*ledger.SyncPage, error) {
				cancel()
				return &ledger.SyncPage{
					Added:      []ledger.TransactionRecord{txn("t1", "acc-1", "1.00", false)},
					NextCursor: "c1",
					HasMore:    true,
				}, nil
			})

		result := NewOrchestrator(client, backends.store, backends.cursors).Run(ctx, conn)

		serr := requireKind(t, result, KindCanceled, StageSyncingPage)
		assert.True(t, serr.Committed)
		assert.Equal(t, 1, result.Pages)
		assert.Equal(t, ledger.Cursor("c1"), result.Cursor)

		// the in-flight page was still applied and its cursor written
		stored, ok, err := backends.cursors.Get(context.Background(), conn.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, ledger.Cursor("c1"), stored)
		txns, err := backends.store.ListTransactions(context.Background(), conn.ID)
		require.NoError(t, err)
		assert.Len(t, txns, 1)
	})
}

func TestFloorBackOff(t *testing.T) {
	t.Parallel()

	b := RetryPolicy{MaxAttempts: 5, InitialInterval: time.Millisecond, MaxInterval: 4 * time.Millisecond}.newBackOff()
	b.Reset()

	b.floor = time.Second
	assert.Equal(t, time.Second, b.NextBackOff(), "retry-after is a floor")

	next := b.NextBackOff()
	assert.Less(t, next, time.Second, "floor applies to one delay only")
	assert.LessOrEqual(t, next, 6*time.Millisecond)

	b.floor = time.Second
	b.Reset()
	assert.Less(t, b.NextBackOff(), time.Second)
}

func TestRetryProvider_HonoursRetryAfter(t *testing.T) {
	t.Parallel()

	policy := RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}

	tests := []struct {
		name       string
		firstErr   error
		wantMinGap time.Duration
		wantMaxGap time.Duration
	}{
		{
			name:       "rate limit hint raises the delay",
			firstErr:   providerErr(provider.KindRateLimited, 400*time.Millisecond),
			wantMinGap: 400 * time.Millisecond,
			wantMaxGap: 5 * time.Second,
		},
		{
			name:       "without a hint the policy delay applies",
			firstErr:   providerErr(provider.KindUnavailable, 0),
			wantMinGap: 0,
			wantMaxGap: 300 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls []time.Time
			got, err := retryProvider(context.Background(), policy, "transactions/sync", nil,
				func(_ context.Context, attempt int) (string, error) {
					calls = append(calls, time.Now())
					if attempt == 1 {
						return "", tt.firstErr
					}
					return "ok", nil
				})

			require.NoError(t, err)
			assert.Equal(t, "ok", got)
			require.Len(t, calls, 2)
			gap := calls[1].Sub(calls[0])
			assert.GreaterOrEqual(t, gap, tt.wantMinGap)
			assert.Less(t, gap, tt.wantMaxGap)
		})
	}
}

func TestOrchestrator_RateLimitedPageWaitsRetryAfter(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := providermocks.NewMockClient(ctrl)
	backends := newFileBackends(t)
	conn := testConn()

	var firstCall time.Time
	client.EXPECT().FetchAccounts(gomock.Any(), conn).Return([]ledger.AccountSnapshot{account("acc-1")}, nil)
	gomock.InOrder(
		client.EXPECT().FetchTransactionPage(gomock.Any(), conn, ledger.Cursor("")).
			DoAndReturn(func(context.Context, *ledger.Connection, ledger.Cursor) (*ledger.SyncPage, error) {
				firstCall = time.Now()
				return nil, providerErr(provider.KindRateLimited, 400*time.Millisecond)
			}),
		client.EXPECT().FetchTransactionPage(gomock.Any(), conn, ledger.Cursor("")).
			DoAndReturn(func(context.Context, *ledger.Connection, ledger.Cursor) (*ledger.SyncPage, error) {
				assert.GreaterOrEqual(t, time.Since(firstCall), 400*time.Millisecond, "retry-after is honoured")
				return &ledger.SyncPage{
					Added:      []ledger.TransactionRecord{txn("t1", "acc-1", "1.00", false)},
					NextCursor: "c1",
				}, nil
			}),
	)

	policy := RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	result := NewOrchestrator(client, backends.store, backends.cursors, WithRetryPolicy(policy)).Run(context.Background(), conn)

	require.NoError(t, result.Err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, ledger.Cursor("c1"), result.Cursor)
}

func TestNewError(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk full")
	err := NewError(KindCursorPersist, StageCommitting, cause)

	assert.Equal(t, "CursorPersistError during Committing: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindCursorPersist, KindOf(errors.Join(errors.New("run failed"), err)))
	assert.Equal(t, Kind(""), KindOf(cause))
}
