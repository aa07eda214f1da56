package provider

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/stacklok/ledgersync/internal/ledger"
)

// The types below mirror the provider's JSON and never leave this package.

type credentialsRequest struct {
	ClientID    string `json:"client_id"`
	Secret      string `json:"secret"`
	AccessToken string `json:"access_token"`
}

type accountsGetRequest struct {
	credentialsRequest
}

type transactionsSyncRequest struct {
	credentialsRequest
	Cursor string `json:"cursor,omitempty"`
	Count  int    `json:"count,omitempty"`
}

type wireBalances struct {
	Available              decimal.NullDecimal `json:"available"`
	Current                decimal.NullDecimal `json:"current"`
	Limit                  decimal.NullDecimal `json:"limit"`
	ISOCurrencyCode        *string             `json:"iso_currency_code"`
	UnofficialCurrencyCode *string             `json:"unofficial_currency_code"`
}

type wireAccount struct {
	AccountID    string       `json:"account_id"`
	Name         string       `json:"name"`
	OfficialName *string      `json:"official_name"`
	Mask         *string      `json:"mask"`
	Type         string       `json:"type"`
	Subtype      *string      `json:"subtype"`
	Balances     wireBalances `json:"balances"`
}

type accountsGetResponse struct {
	Accounts  []wireAccount `json:"accounts"`
	RequestID string        `json:"request_id"`
}

type wirePFC struct {
	Primary         string `json:"primary"`
	Detailed        string `json:"detailed"`
	ConfidenceLevel string `json:"confidence_level"`
}

type wireTransaction struct {
	TransactionID          string              `json:"transaction_id"`
	AccountID              string              `json:"account_id"`
	Amount                 decimal.NullDecimal `json:"amount"`
	ISOCurrencyCode        *string             `json:"iso_currency_code"`
	UnofficialCurrencyCode *string             `json:"unofficial_currency_code"`
	Date                   string              `json:"date"`
	AuthorizedDate         *string             `json:"authorized_date"`
	Pending                bool                `json:"pending"`
	PendingTransactionID   *string             `json:"pending_transaction_id"`
	Name                   string              `json:"name"`
	MerchantName           *string             `json:"merchant_name"`
	Category               []string            `json:"category"`
	CategoryID             *string             `json:"category_id"`
	PersonalFinance        *wirePFC            `json:"personal_finance_category"`
	PaymentChannel         *string             `json:"payment_channel"`
}

type wireRemoved struct {
	TransactionID string `json:"transaction_id"`
}

type transactionsSyncResponse struct {
	Added      []wireTransaction `json:"added"`
	Modified   []wireTransaction `json:"modified"`
	Removed    []wireRemoved     `json:"removed"`
	NextCursor string            `json:"next_cursor"`
	HasMore    bool              `json:"has_more"`
	RequestID  string            `json:"request_id"`
}

type errorResponse struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	RequestID    string `json:"request_id"`
	// RetryAfter is a seconds hint some deployments add to rate limit errors
	RetryAfter *int `json:"retry_after,omitempty"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func (a *wireAccount) toSnapshot() (ledger.AccountSnapshot, error) {
	if a.AccountID == "" {
		return ledger.AccountSnapshot{}, fmt.Errorf("account without account_id")
	}
	return ledger.AccountSnapshot{
		ExternalID:   a.AccountID,
		Name:         a.Name,
		OfficialName: deref(a.OfficialName),
		Mask:         deref(a.Mask),
		Type:         a.Type,
		Subtype:      deref(a.Subtype),
		Balances: ledger.Balances{
			Current:                nullable(a.Balances.Current),
			Available:              nullable(a.Balances.Available),
			Limit:                  nullable(a.Balances.Limit),
			ISOCurrencyCode:        deref(a.Balances.ISOCurrencyCode),
			UnofficialCurrencyCode: deref(a.Balances.UnofficialCurrencyCode),
		},
	}, nil
}

func (t *wireTransaction) toRecord() (ledger.TransactionRecord, error) {
	if t.TransactionID == "" {
		return ledger.TransactionRecord{}, fmt.Errorf("transaction without transaction_id")
	}
	if t.AccountID == "" {
		return ledger.TransactionRecord{}, fmt.Errorf("transaction %s without account_id", t.TransactionID)
	}
	if !t.Amount.Valid {
		return ledger.TransactionRecord{}, fmt.Errorf("transaction %s without amount", t.TransactionID)
	}

	rec := ledger.TransactionRecord{
		ExternalID:             t.TransactionID,
		AccountExternalID:      t.AccountID,
		Amount:                 t.Amount.Decimal,
		ISOCurrencyCode:        deref(t.ISOCurrencyCode),
		UnofficialCurrencyCode: deref(t.UnofficialCurrencyCode),
		Date:                   t.Date,
		AuthorizedDate:         deref(t.AuthorizedDate),
		Pending:                t.Pending,
		PendingTransactionID:   deref(t.PendingTransactionID),
		Name:                   t.Name,
		MerchantName:           deref(t.MerchantName),
		Category:               t.Category,
		CategoryID:             deref(t.CategoryID),
		PaymentChannel:         deref(t.PaymentChannel),
	}
	if t.PersonalFinance != nil {
		rec.PersonalFinance = &ledger.PersonalFinanceCategory{
			Primary:         t.PersonalFinance.Primary,
			Detailed:        t.PersonalFinance.Detailed,
			ConfidenceLevel: t.PersonalFinance.ConfidenceLevel,
		}
	}
	return rec, nil
}

func toRecords(in []wireTransaction) ([]ledger.TransactionRecord, error) {
	out := make([]ledger.TransactionRecord, 0, len(in))
	for i := range in {
		rec, err := in[i].toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *transactionsSyncResponse) toPage() (*ledger.SyncPage, error) {
	added, err := toRecords(r.Added)
	if err != nil {
		return nil, err
	}
	modified, err := toRecords(r.Modified)
	if err != nil {
		return nil, err
	}
	removed := make([]string, 0, len(r.Removed))
	for _, rm := range r.Removed {
		if rm.TransactionID == "" {
			return nil, fmt.Errorf("removed entry without transaction_id")
		}
		removed = append(removed, rm.TransactionID)
	}
	if r.NextCursor == "" {
		return nil, fmt.Errorf("response without next_cursor")
	}
	return &ledger.SyncPage{
		Added:      added,
		Modified:   modified,
		Removed:    removed,
		NextCursor: ledger.Cursor(r.NextCursor),
		HasMore:    r.HasMore,
	}, nil
}
