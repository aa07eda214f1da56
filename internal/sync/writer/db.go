package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/stacklok/ledgersync/internal/db/sqlc"
	"github.com/stacklok/ledgersync/internal/ledger"
)

// dateLayout is the provider's calendar date format
const dateLayout = "2006-01-02"

// pgNotNullViolation is raised when a transaction's account subselect finds no row
const pgNotNullViolation = "23502"

// dbStore is a Store implementation that persists data to PostgreSQL
type dbStore struct {
	pool *pgxpool.Pool
}

// NewDBStore creates a new database-backed Store with the given connection pool.
// The caller is responsible for closing the pool when done.
func NewDBStore(pool *pgxpool.Pool) Store {
	return &dbStore{pool: pool}
}

// inTx runs fn inside one read-committed transaction and commits when fn succeeds
func (d *dbStore) inTx(ctx context.Context, fn func(q *sqlc.Queries) error) error {
	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			slog.Error("Failed to roll back transaction", "error", rollbackErr)
		}
	}()

	if err := fn(sqlc.New(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (d *dbStore) UpsertAccounts(ctx context.Context, connectionID string, accounts []ledger.AccountSnapshot) error {
	if len(accounts) == 0 {
		return nil
	}

	now := time.Now().UTC()
	return d.inTx(ctx, func(q *sqlc.Queries) error {
		for _, acct := range accounts {
			if err := q.UpsertAccount(ctx, accountParams(connectionID, acct, now)); err != nil {
				return fmt.Errorf("failed to upsert account %s: %w", acct.ExternalID, err)
			}
		}
		return nil
	})
}

func (d *dbStore) ApplyPage(ctx context.Context, connectionID string, mutations *ledger.MutationSet) error {
	if mutations.IsEmpty() {
		return nil
	}

	now := time.Now().UTC()
	return d.inTx(ctx, func(q *sqlc.Queries) error {
		for _, txn := range mutations.Upserts {
			params, err := transactionParams(connectionID, txn, now)
			if err != nil {
				return err
			}
			if err := q.UpsertTransaction(ctx, params); err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == pgNotNullViolation && pgErr.ColumnName == "account_id" {
					return fmt.Errorf("transaction %s: %w %s", txn.ExternalID, ErrUnknownAccount, txn.AccountExternalID)
				}
				return fmt.Errorf("failed to upsert transaction %s: %w", txn.ExternalID, err)
			}
		}

		for _, id := range mutations.Deletes {
			if _, err := q.DeleteTransaction(ctx, sqlc.DeleteTransactionParams{
				ConnectionID: connectionID,
				ExternalID:   id,
			}); err != nil {
				return fmt.Errorf("failed to delete transaction %s: %w", id, err)
			}
		}
		return nil
	})
}

func (d *dbStore) ResolveAccounts(ctx context.Context, connectionID string, externalIDs []string) (map[string]bool, error) {
	known := make(map[string]bool, len(externalIDs))
	if len(externalIDs) == 0 {
		return known, nil
	}

	found, err := sqlc.New(d.pool).ListAccountExternalIDs(ctx, sqlc.ListAccountExternalIDsParams{
		ConnectionID: connectionID,
		ExternalIds:  externalIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve accounts: %w", err)
	}
	for _, id := range found {
		known[id] = true
	}
	return known, nil
}

func (d *dbStore) ListAccounts(ctx context.Context, connectionID string) ([]ledger.AccountSnapshot, error) {
	rows, err := sqlc.New(d.pool).ListAccountsByConnection(ctx, connectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	accounts := make([]ledger.AccountSnapshot, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, ledger.AccountSnapshot{
			ExternalID:   row.ExternalID,
			Name:         row.Name,
			OfficialName: deref(row.OfficialName),
			Mask:         deref(row.Mask),
			Type:         row.Type,
			Subtype:      deref(row.Subtype),
			Balances: ledger.Balances{
				Current:                fromNullDecimal(row.BalanceCurrent),
				Available:              fromNullDecimal(row.BalanceAvailable),
				Limit:                  fromNullDecimal(row.BalanceLimit),
				ISOCurrencyCode:        deref(row.IsoCurrencyCode),
				UnofficialCurrencyCode: deref(row.UnofficialCurrencyCode),
			},
		})
	}
	return accounts, nil
}

func (d *dbStore) ListTransactions(ctx context.Context, connectionID string) ([]ledger.TransactionRecord, error) {
	rows, err := sqlc.New(d.pool).ListTransactionsByConnection(ctx, connectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	txns := make([]ledger.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		rec := ledger.TransactionRecord{
			ExternalID:             row.ExternalID,
			AccountExternalID:      row.AccountExternalID,
			Amount:                 row.Amount,
			ISOCurrencyCode:        deref(row.IsoCurrencyCode),
			UnofficialCurrencyCode: deref(row.UnofficialCurrencyCode),
			Date:                   row.Date.Format(dateLayout),
			Pending:                row.Pending,
			PendingTransactionID:   deref(row.PendingTransactionID),
			Name:                   row.Name,
			MerchantName:           deref(row.MerchantName),
			Category:               row.Category,
			CategoryID:             deref(row.CategoryID),
			PaymentChannel:         deref(row.PaymentChannel),
		}
		if len(rec.Category) == 0 {
			rec.Category = nil
		}
		if row.AuthorizedDate != nil {
			rec.AuthorizedDate = row.AuthorizedDate.Format(dateLayout)
		}
		if row.PfcPrimary != nil || row.PfcDetailed != nil || row.PfcConfidenceLevel != nil {
			rec.PersonalFinance = &ledger.PersonalFinanceCategory{
				Primary:         deref(row.PfcPrimary),
				Detailed:        deref(row.PfcDetailed),
				ConfidenceLevel: deref(row.PfcConfidenceLevel),
			}
		}
		txns = append(txns, rec)
	}
	return txns, nil
}

func accountParams(connectionID string, acct ledger.AccountSnapshot, now time.Time) sqlc.UpsertAccountParams {
	return sqlc.UpsertAccountParams{
		ConnectionID:           connectionID,
		ExternalID:             acct.ExternalID,
		Name:                   acct.Name,
		OfficialName:           nilIfEmpty(acct.OfficialName),
		Mask:                   nilIfEmpty(acct.Mask),
		Type:                   acct.Type,
		Subtype:                nilIfEmpty(acct.Subtype),
		BalanceCurrent:         toNullDecimal(acct.Balances.Current),
		BalanceAvailable:       toNullDecimal(acct.Balances.Available),
		BalanceLimit:           toNullDecimal(acct.Balances.Limit),
		IsoCurrencyCode:        nilIfEmpty(acct.Balances.ISOCurrencyCode),
		UnofficialCurrencyCode: nilIfEmpty(acct.Balances.UnofficialCurrencyCode),
		UpdatedAt:              now,
	}
}

func transactionParams(connectionID string, txn ledger.TransactionRecord, now time.Time) (sqlc.UpsertTransactionParams, error) {
	date, err := time.Parse(dateLayout, txn.Date)
	if err != nil {
		return sqlc.UpsertTransactionParams{}, fmt.Errorf("transaction %s has invalid date %q: %w", txn.ExternalID, txn.Date, err)
	}

	var authorized *time.Time
	if txn.AuthorizedDate != "" {
		t, err := time.Parse(dateLayout, txn.AuthorizedDate)
		if err != nil {
			return sqlc.UpsertTransactionParams{}, fmt.Errorf(
				"transaction %s has invalid authorized date %q: %w", txn.ExternalID, txn.AuthorizedDate, err)
		}
		authorized = &t
	}

	category := txn.Category
	if category == nil {
		category = []string{}
	}

	params := sqlc.UpsertTransactionParams{
		ConnectionID:           connectionID,
		AccountExternalID:      txn.AccountExternalID,
		ExternalID:             txn.ExternalID,
		Amount:                 txn.Amount,
		IsoCurrencyCode:        nilIfEmpty(txn.ISOCurrencyCode),
		UnofficialCurrencyCode: nilIfEmpty(txn.UnofficialCurrencyCode),
		Date:                   date,
		AuthorizedDate:         authorized,
		Pending:                txn.Pending,
		PendingTransactionID:   nilIfEmpty(txn.PendingTransactionID),
		Name:                   txn.Name,
		MerchantName:           nilIfEmpty(txn.MerchantName),
		Category:               category,
		CategoryID:             nilIfEmpty(txn.CategoryID),
		PaymentChannel:         nilIfEmpty(txn.PaymentChannel),
		UpdatedAt:              now,
	}
	if pfc := txn.PersonalFinance; pfc != nil {
		params.PfcPrimary = nilIfEmpty(pfc.Primary)
		params.PfcDetailed = nilIfEmpty(pfc.Detailed)
		params.PfcConfidenceLevel = nilIfEmpty(pfc.ConfidenceLevel)
	}
	return params, nil
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func fromNullDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
