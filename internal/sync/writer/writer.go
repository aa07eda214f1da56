// Package writer contains the ledger Writer interface and its storage implementations
package writer

import (
	"context"
	"errors"

	"github.com/stacklok/ledgersync/internal/ledger"
)

//go:generate mockgen -destination=mocks/mock_writer.go -package=mocks -source=writer.go Writer,Reader

// ErrUnknownAccount is returned when an upsert references an account that was never stored
var ErrUnknownAccount = errors.New("transaction references unknown account")

// Writer persists synced ledger data. Every method is atomic: it either
// applies all of its rows or none of them.
type Writer interface {
	// UpsertAccounts replaces every field of the given accounts. Accounts are never deleted.
	UpsertAccounts(ctx context.Context, connectionID string, accounts []ledger.AccountSnapshot) error

	// ApplyPage applies the upserts then the deletes of one page in a single transaction.
	// Deleting an unknown transaction is not an error.
	ApplyPage(ctx context.Context, connectionID string, mutations *ledger.MutationSet) error

	// ResolveAccounts reports which of the external account ids are stored for the connection
	ResolveAccounts(ctx context.Context, connectionID string, externalIDs []string) (map[string]bool, error)
}

// Reader exposes the stored ledger of a connection
type Reader interface {
	// ListAccounts returns the accounts of the connection ordered by external id
	ListAccounts(ctx context.Context, connectionID string) ([]ledger.AccountSnapshot, error)

	// ListTransactions returns the transactions of the connection ordered by external id
	ListTransactions(ctx context.Context, connectionID string) ([]ledger.TransactionRecord, error)
}

// Store is a Writer that can read back what it wrote
type Store interface {
	Writer
	Reader
}
