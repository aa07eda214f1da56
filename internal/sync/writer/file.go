package writer

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/stacklok/ledgersync/internal/fileutil"
	"github.com/stacklok/ledgersync/internal/ledger"
)

// LedgerFileName is the name of the per-connection ledger document
const LedgerFileName = "ledger.json"

// ledgerDocument is the on-disk shape of one connection's ledger
type ledgerDocument struct {
	Accounts     map[string]ledger.AccountSnapshot   `json:"accounts"`
	Transactions map[string]ledger.TransactionRecord `json:"transactions"`
}

// fileStore keeps each connection's ledger in a single JSON document.
// Every write replaces the whole document through a rename, which makes
// a page apply atomic without a database.
type fileStore struct {
	basePath string

	mu sync.Mutex
}

// NewFileStore creates a Store keeping one ledger document per connection under basePath
func NewFileStore(basePath string) Store {
	return &fileStore{basePath: basePath}
}

func (f *fileStore) path(connectionID string) (string, error) {
	dir, err := fileutil.ConnectionDir(f.basePath, connectionID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, LedgerFileName), nil
}

func (f *fileStore) load(connectionID string) (*ledgerDocument, string, error) {
	path, err := f.path(connectionID)
	if err != nil {
		return nil, "", err
	}

	doc := &ledgerDocument{}
	if _, err := fileutil.ReadJSON(path, doc); err != nil {
		return nil, "", err
	}
	if doc.Accounts == nil {
		doc.Accounts = make(map[string]ledger.AccountSnapshot)
	}
	if doc.Transactions == nil {
		doc.Transactions = make(map[string]ledger.TransactionRecord)
	}
	return doc, path, nil
}

func (f *fileStore) UpsertAccounts(_ context.Context, connectionID string, accounts []ledger.AccountSnapshot) error {
	if len(accounts) == 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, path, err := f.load(connectionID)
	if err != nil {
		return err
	}
	for _, acct := range accounts {
		doc.Accounts[acct.ExternalID] = acct
	}
	if err := fileutil.WriteJSON(path, doc); err != nil {
		return fmt.Errorf("failed to store accounts: %w", err)
	}
	return nil
}

func (f *fileStore) ApplyPage(_ context.Context, connectionID string, mutations *ledger.MutationSet) error {
	if mutations.IsEmpty() {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, path, err := f.load(connectionID)
	if err != nil {
		return err
	}

	for _, txn := range mutations.Upserts {
		if _, ok := doc.Accounts[txn.AccountExternalID]; !ok {
			return fmt.Errorf("transaction %s: %w %s", txn.ExternalID, ErrUnknownAccount, txn.AccountExternalID)
		}
		doc.Transactions[txn.ExternalID] = txn
	}
	for _, id := range mutations.Deletes {
		delete(doc.Transactions, id)
	}

	if err := fileutil.WriteJSON(path, doc); err != nil {
		return fmt.Errorf("failed to store page: %w", err)
	}
	return nil
}

func (f *fileStore) ResolveAccounts(_ context.Context, connectionID string, externalIDs []string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, _, err := f.load(connectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve accounts: %w", err)
	}

	known := make(map[string]bool, len(externalIDs))
	for _, id := range externalIDs {
		if _, ok := doc.Accounts[id]; ok {
			known[id] = true
		}
	}
	return known, nil
}

func (f *fileStore) ListAccounts(_ context.Context, connectionID string) ([]ledger.AccountSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, _, err := f.load(connectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	accounts := make([]ledger.AccountSnapshot, 0, len(doc.Accounts))
	for _, acct := range doc.Accounts {
		accounts = append(accounts, acct)
	}
	slices.SortFunc(accounts, func(a, b ledger.AccountSnapshot) int {
		return strings.Compare(a.ExternalID, b.ExternalID)
	})
	return accounts, nil
}

func (f *fileStore) ListTransactions(_ context.Context, connectionID string) ([]ledger.TransactionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, _, err := f.load(connectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	txns := make([]ledger.TransactionRecord, 0, len(doc.Transactions))
	for _, txn := range doc.Transactions {
		txns = append(txns, txn)
	}
	slices.SortFunc(txns, func(a, b ledger.TransactionRecord) int {
		return strings.Compare(a.ExternalID, b.ExternalID)
	})
	return txns, nil
}
