// Package provider is the boundary to the external, cursor-paginated data provider.
// Nothing outside this package sees raw provider payloads.
package provider

import (
	"context"

	"github.com/stacklok/ledgersync/internal/ledger"
)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client

// Client fetches account snapshots and transaction deltas for a connection.
// All failures are returned as *Error.
type Client interface {
	// FetchAccounts returns the current set of accounts under the connection
	FetchAccounts(ctx context.Context, conn *ledger.Connection) ([]ledger.AccountSnapshot, error)

	// FetchTransactionPage returns the page of deltas following cursor.
	// The empty cursor starts from the beginning of the change stream.
	FetchTransactionPage(ctx context.Context, conn *ledger.Connection, cursor ledger.Cursor) (*ledger.SyncPage, error)
}
