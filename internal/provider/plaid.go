package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stacklok/ledgersync/internal/credentials"
	"github.com/stacklok/ledgersync/internal/httpclient"
	"github.com/stacklok/ledgersync/internal/ledger"
)

const (
	// DefaultPageSize is the number of transactions requested per sync page
	DefaultPageSize = 250

	// MaxPageSize is the largest page the provider accepts
	MaxPageSize = 500

	opAccountsGet      = "accounts/get"
	opTransactionsSync = "transactions/sync"
)

// Provider error types and codes that drive classification
const (
	errorTypeRateLimit   = "RATE_LIMIT_EXCEEDED"
	errorTypeAPI         = "API_ERROR"
	errorTypeInstitution = "INSTITUTION_ERROR"
	errorTypeItem        = "ITEM_ERROR"

	errorCodeMutationDuringPagination = "TRANSACTIONS_SYNC_MUTATION_DURING_PAGINATION"
)

// PlaidClient talks to a Plaid compatible API over HTTP
type PlaidClient struct {
	baseURL  string
	clientID string
	secret   string
	pageSize int

	http     httpclient.Client
	resolver credentials.Resolver
}

// Option configures a PlaidClient
type Option func(*PlaidClient)

// WithHTTPClient sets the HTTP transport
func WithHTTPClient(c httpclient.Client) Option {
	return func(p *PlaidClient) {
		p.http = c
	}
}

// WithCredentialResolver sets how connection access tokens are resolved
func WithCredentialResolver(r credentials.Resolver) Option {
	return func(p *PlaidClient) {
		p.resolver = r
	}
}

// WithPageSize sets the number of transactions requested per page
func WithPageSize(n int) Option {
	return func(p *PlaidClient) {
		if n > 0 && n <= MaxPageSize {
			p.pageSize = n
		}
	}
}

// NewPlaidClient creates a provider client for the API at baseURL
func NewPlaidClient(baseURL, clientID, secret string, opts ...Option) *PlaidClient {
	p := &PlaidClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		secret:   secret,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.http == nil {
		p.http = httpclient.NewDefaultClient(0)
	}
	if p.resolver == nil {
		p.resolver = credentials.NewResolver(nil, 0)
	}
	return p
}

// FetchAccounts implements Client
func (p *PlaidClient) FetchAccounts(ctx context.Context, conn *ledger.Connection) ([]ledger.AccountSnapshot, error) {
	creds, err := p.credentials(ctx, opAccountsGet, conn)
	if err != nil {
		return nil, err
	}

	var resp accountsGetResponse
	if err := p.post(ctx, opAccountsGet, accountsGetRequest{credentialsRequest: creds}, &resp); err != nil {
		return nil, err
	}

	accounts := make([]ledger.AccountSnapshot, 0, len(resp.Accounts))
	for i := range resp.Accounts {
		snap, err := resp.Accounts[i].toSnapshot()
		if err != nil {
			return nil, &Error{Kind: KindUnavailable, Op: opAccountsGet, Err: fmt.Errorf("malformed response: %w", err)}
		}
		accounts = append(accounts, snap)
	}

	slog.Debug("Fetched accounts",
		"connection_id", conn.ID,
		"accounts", len(accounts),
		"request_id", resp.RequestID)
	return accounts, nil
}

// FetchTransactionPage implements Client
func (p *PlaidClient) FetchTransactionPage(
	ctx context.Context, conn *ledger.Connection, cursor ledger.Cursor,
) (*ledger.SyncPage, error) {
	creds, err := p.credentials(ctx, opTransactionsSync, conn)
	if err != nil {
		return nil, err
	}

	req := transactionsSyncRequest{
		credentialsRequest: creds,
		Cursor:             string(cursor),
		Count:              p.pageSize,
	}

	var resp transactionsSyncResponse
	if err := p.post(ctx, opTransactionsSync, req, &resp); err != nil {
		return nil, err
	}

	page, err := resp.toPage()
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Op: opTransactionsSync, Err: fmt.Errorf("malformed response: %w", err)}
	}

	slog.Debug("Fetched transaction page",
		"connection_id", conn.ID,
		"added", len(page.Added),
		"modified", len(page.Modified),
		"removed", len(page.Removed),
		"has_more", page.HasMore,
		"request_id", resp.RequestID)
	return page, nil
}

func (p *PlaidClient) credentials(ctx context.Context, op string, conn *ledger.Connection) (credentialsRequest, error) {
	token, err := p.resolver.Resolve(ctx, conn.AccessToken)
	if err != nil {
		kind := KindUnavailable
		if errors.Is(err, credentials.ErrSecretNotFound) ||
			errors.Is(err, credentials.ErrSecretEmpty) ||
			errors.Is(err, credentials.ErrNoSecretSource) {
			kind = KindRejected
		}
		return credentialsRequest{}, &Error{
			Kind: kind,
			Op:   op,
			Err:  fmt.Errorf("failed to resolve access token: %w", err),
		}
	}
	return credentialsRequest{
		ClientID:    p.clientID,
		Secret:      p.secret,
		AccessToken: token,
	}, nil
}

func (p *PlaidClient) post(ctx context.Context, op string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{Kind: KindRejected, Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	data, err := p.http.PostJSON(ctx, p.baseURL+"/"+op, payload)
	if err != nil {
		return classify(op, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindUnavailable, Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// classify maps a transport error to the provider taxonomy
func classify(op string, err error) *Error {
	var httpErr *httpclient.HTTPError
	if !errors.As(err, &httpErr) {
		// network failure, timeout or cancellation
		return &Error{Kind: KindUnavailable, Op: op, Err: err}
	}

	var body errorResponse
	_ = json.Unmarshal(httpErr.Body, &body)

	e := &Error{Op: op, Code: body.ErrorCode, Err: err}
	if body.ErrorMessage != "" {
		e.Err = fmt.Errorf("%s: %w", body.ErrorMessage, err)
	}

	switch {
	case httpErr.StatusCode == http.StatusTooManyRequests || body.ErrorType == errorTypeRateLimit:
		e.Kind = KindRateLimited
		e.RetryAfter = httpErr.RetryAfter
		if e.RetryAfter == 0 && body.RetryAfter != nil && *body.RetryAfter > 0 {
			e.RetryAfter = time.Duration(*body.RetryAfter) * time.Second
		}
	case body.ErrorCode == errorCodeMutationDuringPagination:
		e.Kind = KindUnavailable
	case body.ErrorType == errorTypeItem:
		e.Kind = KindRejected
	case httpErr.StatusCode >= http.StatusInternalServerError,
		body.ErrorType == errorTypeAPI,
		body.ErrorType == errorTypeInstitution:
		e.Kind = KindUnavailable
	default:
		// 401, 403 and other client errors
		e.Kind = KindRejected
	}
	return e
}
