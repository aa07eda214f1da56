// Package ledger defines the account and transaction records that the sync engine
// moves from the provider into local storage.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Institution is the optional institution metadata attached to a connection
type Institution struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Connection identifies one linked external credential
type Connection struct {
	ID     string `json:"id" yaml:"id"`
	UserID string `json:"user_id" yaml:"userId"`

	// AccessToken is either the provider access token or a secret reference
	// that is resolved before each run (see internal/credentials).
	AccessToken string `json:"-" yaml:"accessToken"`

	Institution *Institution `json:"institution,omitempty" yaml:"institution,omitempty"`
	Active      bool         `json:"active" yaml:"active"`
	LastSync    *time.Time   `json:"last_sync,omitempty" yaml:"-"`
	CreatedAt   time.Time    `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time    `json:"updated_at" yaml:"-"`
}

// Balances is the balance snapshot of an account at refresh time.
// Nil values mean the provider did not report that balance.
type Balances struct {
	Current                *decimal.Decimal `json:"current,omitempty"`
	Available              *decimal.Decimal `json:"available,omitempty"`
	Limit                  *decimal.Decimal `json:"limit,omitempty"`
	ISOCurrencyCode        string           `json:"iso_currency_code,omitempty"`
	UnofficialCurrencyCode string           `json:"unofficial_currency_code,omitempty"`
}

// AccountSnapshot is the provider's current view of one account
type AccountSnapshot struct {
	ExternalID   string   `json:"external_id"`
	Name         string   `json:"name"`
	OfficialName string   `json:"official_name,omitempty"`
	Mask         string   `json:"mask,omitempty"`
	Type         string   `json:"type"`
	Subtype      string   `json:"subtype,omitempty"`
	Balances     Balances `json:"balances"`
}

// PersonalFinanceCategory is the provider-assigned structured classification
type PersonalFinanceCategory struct {
	Primary         string `json:"primary,omitempty"`
	Detailed        string `json:"detailed,omitempty"`
	ConfidenceLevel string `json:"confidence_level,omitempty"`
}

// TransactionRecord is one ledger entry as delivered by the provider.
// Amount and currency codes are carried verbatim.
type TransactionRecord struct {
	ExternalID             string                   `json:"external_id"`
	AccountExternalID      string                   `json:"account_external_id"`
	Amount                 decimal.Decimal          `json:"amount"`
	ISOCurrencyCode        string                   `json:"iso_currency_code,omitempty"`
	UnofficialCurrencyCode string                   `json:"unofficial_currency_code,omitempty"`
	Date                   string                   `json:"date"`
	AuthorizedDate         string                   `json:"authorized_date,omitempty"`
	Pending                bool                     `json:"pending"`
	PendingTransactionID   string                   `json:"pending_transaction_id,omitempty"`
	Name                   string                   `json:"name"`
	MerchantName           string                   `json:"merchant_name,omitempty"`
	Category               []string                 `json:"category,omitempty"`
	CategoryID             string                   `json:"category_id,omitempty"`
	PersonalFinance        *PersonalFinanceCategory `json:"personal_finance_category,omitempty"`
	PaymentChannel         string                   `json:"payment_channel,omitempty"`
}

// Cursor is the opaque provider position. The empty cursor means "from the beginning".
type Cursor string

// SyncPage is one batch of deltas returned by a single provider call
type SyncPage struct {
	Added      []TransactionRecord
	Modified   []TransactionRecord
	Removed    []string
	NextCursor Cursor
	HasMore    bool
}

// MutationSet is the storage work derived from one page.
// Upserts are applied before Deletes, and both commit together.
type MutationSet struct {
	Upserts []TransactionRecord
	Deletes []string
}

// IsEmpty returns true if the mutation set has no work
func (m *MutationSet) IsEmpty() bool {
	return m == nil || (len(m.Upserts) == 0 && len(m.Deletes) == 0)
}

// SyncPosition is the last committed cursor of a connection
type SyncPosition struct {
	ConnectionID string    `json:"connection_id"`
	Cursor       Cursor    `json:"cursor"`
	UpdatedAt    time.Time `json:"updated_at"`
}
