package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/ledgersync/internal/ledger"
)

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, path string, body map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		handler(w, r.URL.Path, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConnection() *ledger.Connection {
	return &ledger.Connection{ID: "conn-1", UserID: "user-1", AccessToken: "access-sandbox-1", Active: true}
}

func TestPlaidClient_FetchAccounts(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, func(w http.ResponseWriter, path string, body map[string]any) {
		assert.Equal(t, "/accounts/get", path)
		assert.Equal(t, "client-id", body["client_id"])
		assert.Equal(t, "secret", body["secret"])
		assert.Equal(t, "access-sandbox-1", body["access_token"])
		_, _ = io.WriteString(w, `{
			"accounts": [{
				"account_id": "acc-1",
				"name": "Checking",
				"official_name": "Plaid Gold Checking",
				"mask": "0000",
				"type": "depository",
				"subtype": "checking",
				"balances": {"available": 100.10, "current": 110.01, "limit": null, "iso_currency_code": "USD", "unofficial_currency_code": null}
			}],
			"request_id": "req-1"
		}`)
	})

	client := NewPlaidClient(srv.URL, "client-id", "secret")
	accounts, err := client.FetchAccounts(context.Background(), testConnection())
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	acc := accounts[0]
	assert.Equal(t, "acc-1", acc.ExternalID)
	assert.Equal(t, "Plaid Gold Checking", acc.OfficialName)
	assert.Equal(t, "checking", acc.Subtype)
	require.NotNil(t, acc.Balances.Current)
	assert.Equal(t, "110.01", acc.Balances.Current.String())
	assert.Equal(t, "100.1", acc.Balances.Available.String())
	assert.Nil(t, acc.Balances.Limit)
	assert.Equal(t, "USD", acc.Balances.ISOCurrencyCode)
}

func TestPlaidClient_FetchTransactionPage(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, func(w http.ResponseWriter, path string, body map[string]any) {
		assert.Equal(t, "/transactions/sync", path)
		assert.Equal(t, "c0", body["cursor"])
		assert.EqualValues(t, 100, body["count"])
		_, _ = io.WriteString(w, `{
			"added": [{
				"transaction_id": "t1",
				"account_id": "acc-1",
				"amount": 12.345678901234567890,
				"iso_currency_code": "USD",
				"date": "2025-01-02",
				"authorized_date": "2025-01-01",
				"pending": true,
				"name": "Coffee",
				"merchant_name": "Cafe",
				"category": ["Food and Drink", "Coffee"],
				"category_id": "13005043",
				"personal_finance_category": {"primary": "FOOD_AND_DRINK", "detailed": "FOOD_AND_DRINK_COFFEE", "confidence_level": "VERY_HIGH"},
				"payment_channel": "in store"
			}],
			"modified": [],
			"removed": [{"transaction_id": "t0"}],
			"next_cursor": "c1",
			"has_more": true,
			"request_id": "req-2"
		}`)
	})

	client := NewPlaidClient(srv.URL, "client-id", "secret", WithPageSize(100))
	page, err := client.FetchTransactionPage(context.Background(), testConnection(), "c0")
	require.NoError(t, err)

	assert.Equal(t, ledger.Cursor("c1"), page.NextCursor)
	assert.True(t, page.HasMore)
	assert.Equal(t, []string{"t0"}, page.Removed)
	require.Len(t, page.Added, 1)

	tx := page.Added[0]
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("12.345678901234567890")))
	assert.Equal(t, "2025-01-01", tx.AuthorizedDate)
	assert.True(t, tx.Pending)
	assert.Equal(t, "Cafe", tx.MerchantName)
	assert.Equal(t, []string{"Food and Drink", "Coffee"}, tx.Category)
	require.NotNil(t, tx.PersonalFinance)
	assert.Equal(t, "FOOD_AND_DRINK_COFFEE", tx.PersonalFinance.Detailed)
	assert.Equal(t, "in store", tx.PaymentChannel)
}

func TestPlaidClient_EmptyCursorOmitted(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, func(w http.ResponseWriter, _ string, body map[string]any) {
		_, present := body["cursor"]
		assert.False(t, present)
		_, _ = io.WriteString(w, `{"added":[],"modified":[],"removed":[],"next_cursor":"c1","has_more":false}`)
	})

	page, err := NewPlaidClient(srv.URL, "id", "secret").FetchTransactionPage(context.Background(), testConnection(), "")
	require.NoError(t, err)
	assert.Equal(t, ledger.Cursor("c1"), page.NextCursor)
	assert.False(t, page.HasMore)
}

func TestPlaidClient_ErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		status         int
		header         map[string]string
		body           string
		wantKind       Kind
		wantCode       string
		wantRetryAfter int
	}{
		{
			name:           "429 with retry-after header",
			status:         http.StatusTooManyRequests,
			header:         map[string]string{"Retry-After": "3"},
			body:           `{"error_type":"RATE_LIMIT_EXCEEDED","error_code":"TRANSACTIONS_LIMIT","error_message":"slow down"}`,
			wantKind:       KindRateLimited,
			wantCode:       "TRANSACTIONS_LIMIT",
			wantRetryAfter: 3,
		},
		{
			name:           "rate limit with body hint",
			status:         http.StatusBadRequest,
			body:           `{"error_type":"RATE_LIMIT_EXCEEDED","error_code":"TRANSACTIONS_LIMIT","retry_after":5}`,
			wantKind:       KindRateLimited,
			wantCode:       "TRANSACTIONS_LIMIT",
			wantRetryAfter: 5,
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			body:     `{"error_type":"API_ERROR","error_code":"INTERNAL_SERVER_ERROR"}`,
			wantKind: KindUnavailable,
			wantCode: "INTERNAL_SERVER_ERROR",
		},
		{
			name:     "institution down",
			status:   http.StatusBadRequest,
			body:     `{"error_type":"INSTITUTION_ERROR","error_code":"INSTITUTION_DOWN"}`,
			wantKind: KindUnavailable,
			wantCode: "INSTITUTION_DOWN",
		},
		{
			name:     "mutation during pagination",
			status:   http.StatusBadRequest,
			body:     `{"error_type":"TRANSACTIONS_ERROR","error_code":"TRANSACTIONS_SYNC_MUTATION_DURING_PAGINATION"}`,
			wantKind: KindUnavailable,
			wantCode: "TRANSACTIONS_SYNC_MUTATION_DURING_PAGINATION",
		},
		{
			name:     "item login required",
			status:   http.StatusBadRequest,
			body:     `{"error_type":"ITEM_ERROR","error_code":"ITEM_LOGIN_REQUIRED"}`,
			wantKind: KindRejected,
			wantCode: "ITEM_LOGIN_REQUIRED",
		},
		{
			name:     "unauthorized without body",
			status:   http.StatusUnauthorized,
			body:     ``,
			wantKind: KindRejected,
		},
		{
			name:     "bad gateway html body",
			status:   http.StatusBadGateway,
			body:     `<html>bad gateway</html>`,
			wantKind: KindUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewPlaidClient(srv.URL, "id", "secret").FetchTransactionPage(context.Background(), testConnection(), "")
			require.Error(t, err)

			var perr *Error
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.wantKind, perr.Kind)
			assert.Equal(t, tt.wantCode, perr.Code)
			assert.Equal(t, tt.wantRetryAfter, int(perr.RetryAfter.Seconds()))
			assert.Equal(t, "transactions/sync", perr.Op)
		})
	}
}

func TestPlaidClient_MalformedResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `{`},
		{name: "missing next cursor", body: `{"added":[],"modified":[],"removed":[],"has_more":false}`},
		{name: "transaction without amount", body: `{"added":[{"transaction_id":"t1","account_id":"a1"}],"next_cursor":"c1"}`},
		{name: "removed without id", body: `{"removed":[{}],"next_cursor":"c1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewPlaidClient(srv.URL, "id", "secret").FetchTransactionPage(context.Background(), testConnection(), "")
			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, KindUnavailable, kind)
		})
	}
}

func TestPlaidClient_NetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewPlaidClient(url, "id", "secret").FetchAccounts(context.Background(), testConnection())
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindUnavailable, kind)
}

func TestPlaidClient_UnresolvableSecret(t *testing.T) {
	t.Parallel()

	conn := testConnection()
	conn.AccessToken = "aws-sm://missing"

	_, err := NewPlaidClient("http://127.0.0.1:0", "id", "secret").FetchAccounts(context.Background(), conn)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindRejected, kind)
}
