// Package helpers provides the scripted provider and server harness of the
// integration suite.
package helpers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// Page is one scripted /transactions/sync response
type Page struct {
	Added      []map[string]any `json:"added"`
	Modified   []map[string]any `json:"modified"`
	Removed    []map[string]any `json:"removed"`
	NextCursor string           `json:"next_cursor"`
	HasMore    bool             `json:"has_more"`
}

// Failure is returned instead of the next response
type Failure struct {
	Status int
	Body   string
}

// FakeProvider is a Plaid-shaped provider whose pages are keyed by the
// request cursor. The empty string keys the first page.
type FakeProvider struct {
	server *httptest.Server

	mu       sync.Mutex
	accounts []map[string]any
	pages    map[string]Page
	failures []Failure
	cursors  []string
}

// NewFakeProvider starts a provider serving accounts and pages
func NewFakeProvider() *FakeProvider {
	p := &FakeProvider{pages: map[string]Page{}}
	p.server = httptest.NewServer(http.HandlerFunc(p.handle))
	return p
}

// URL returns the base URL of the provider
func (p *FakeProvider) URL() string {
	return p.server.URL
}

// Close stops the provider
func (p *FakeProvider) Close() {
	p.server.Close()
}

// SetAccounts replaces the accounts returned by /accounts/get
func (p *FakeProvider) SetAccounts(accounts ...map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts = accounts
}

// SetPage scripts the response for cursor
func (p *FakeProvider) SetPage(cursor string, page Page) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pages[cursor] = page
}

// FailNext queues failures returned before any scripted response
func (p *FakeProvider) FailNext(failures ...Failure) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = append(p.failures, failures...)
}

// Cursors returns the cursors of every /transactions/sync request so far
func (p *FakeProvider) Cursors() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.cursors...)
}

func (p *FakeProvider) handle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cursor string `json:"cursor"`
	}
	body, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(body, &req)

	p.mu.Lock()
	if len(p.failures) > 0 {
		f := p.failures[0]
		p.failures = p.failures[1:]
		p.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.Status)
		_, _ = io.WriteString(w, f.Body)
		return
	}

	var resp any
	switch r.URL.Path {
	case "/accounts/get":
		resp = map[string]any{"accounts": p.accounts, "request_id": "req-accounts"}
	case "/transactions/sync":
		p.cursors = append(p.cursors, req.Cursor)
		page, ok := p.pages[req.Cursor]
		if !ok {
			// caught up: nothing new, cursor unchanged
			page = Page{NextCursor: req.Cursor}
		}
		resp = page
	default:
		p.mu.Unlock()
		http.NotFound(w, r)
		return
	}
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Account builds a provider account
func Account(id, name string, current float64) map[string]any {
	return map[string]any{
		"account_id": id,
		"name":       name,
		"type":       "depository",
		"subtype":    "checking",
		"balances":   map[string]any{"current": current, "iso_currency_code": "USD"},
	}
}

// Transaction builds a provider transaction
func Transaction(id, accountID string, amount float64, name string) map[string]any {
	return map[string]any{
		"transaction_id":    id,
		"account_id":        accountID,
		"amount":            amount,
		"iso_currency_code": "USD",
		"date":              "2025-01-02",
		"name":              name,
		"pending":           false,
		"payment_channel":   "online",
	}
}

// Removed builds a provider removal
func Removed(id string) map[string]any {
	return map[string]any{"transaction_id": id}
}
