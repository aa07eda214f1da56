// Package reconciler turns one provider page into the storage mutations it implies.
//
// Within a page, modified entries are applied after added entries, and removals
// are applied last so a removed id never survives as an upsert. Every surviving
// upsert must reference an account that exists locally.
package reconciler

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/stacklok/ledgersync/internal/ledger"
)

// AccountResolver reports which of the given external account ids exist locally
type AccountResolver interface {
	ResolveAccounts(ctx context.Context, connectionID string, externalIDs []string) (map[string]bool, error)
}

// AccountResolverFunc adapts a function to AccountResolver
type AccountResolverFunc func(ctx context.Context, connectionID string, externalIDs []string) (map[string]bool, error)

// ResolveAccounts implements AccountResolver
func (f AccountResolverFunc) ResolveAccounts(
	ctx context.Context, connectionID string, externalIDs []string,
) (map[string]bool, error) {
	return f(ctx, connectionID, externalIDs)
}

// DanglingAccountReferenceError reports upserts whose account is unknown locally
type DanglingAccountReferenceError struct {
	TransactionIDs []string
	AccountIDs     []string
}

func (e *DanglingAccountReferenceError) Error() string {
	return fmt.Sprintf("transactions [%s] reference unknown accounts [%s]",
		strings.Join(e.TransactionIDs, ", "), strings.Join(e.AccountIDs, ", "))
}

// Apply merges page into a MutationSet for connectionID.
// The result is deterministic: upserts are sorted by external id and deletes are sorted.
func Apply(
	ctx context.Context, connectionID string, page *ledger.SyncPage, resolver AccountResolver,
) (*ledger.MutationSet, error) {
	if page == nil {
		return &ledger.MutationSet{}, nil
	}

	upserts := make(map[string]ledger.TransactionRecord, len(page.Added)+len(page.Modified))
	for _, tx := range page.Added {
		upserts[tx.ExternalID] = tx
	}
	for _, tx := range page.Modified {
		upserts[tx.ExternalID] = tx
	}

	deleted := make(map[string]struct{}, len(page.Removed))
	for _, id := range page.Removed {
		delete(upserts, id)
		deleted[id] = struct{}{}
	}

	result := &ledger.MutationSet{
		Upserts: make([]ledger.TransactionRecord, 0, len(upserts)),
		Deletes: make([]string, 0, len(deleted)),
	}
	for _, tx := range upserts {
		result.Upserts = append(result.Upserts, tx)
	}
	sort.Slice(result.Upserts, func(i, j int) bool {
		return result.Upserts[i].ExternalID < result.Upserts[j].ExternalID
	})
	for id := range deleted {
		result.Deletes = append(result.Deletes, id)
	}
	sort.Strings(result.Deletes)

	if err := checkAccounts(ctx, connectionID, result.Upserts, resolver); err != nil {
		return nil, err
	}
	return result, nil
}

func checkAccounts(
	ctx context.Context, connectionID string, upserts []ledger.TransactionRecord, resolver AccountResolver,
) error {
	if len(upserts) == 0 {
		return nil
	}

	ids := make([]string, 0, len(upserts))
	for _, tx := range upserts {
		ids = append(ids, tx.AccountExternalID)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	known, err := resolver.ResolveAccounts(ctx, connectionID, ids)
	if err != nil {
		return fmt.Errorf("failed to resolve accounts: %w", err)
	}

	var dangling DanglingAccountReferenceError
	missing := make(map[string]struct{})
	for _, tx := range upserts {
		if known[tx.AccountExternalID] {
			continue
		}
		dangling.TransactionIDs = append(dangling.TransactionIDs, tx.ExternalID)
		if _, seen := missing[tx.AccountExternalID]; !seen {
			missing[tx.AccountExternalID] = struct{}{}
			dangling.AccountIDs = append(dangling.AccountIDs, tx.AccountExternalID)
		}
	}
	if len(dangling.TransactionIDs) == 0 {
		return nil
	}
	sort.Strings(dangling.AccountIDs)
	return &dangling
}
