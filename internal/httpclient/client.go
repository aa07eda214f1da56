// Package httpclient provides the HTTP transport used by provider adapters
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stacklok/ledgersync/internal/versions"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed response size (32MB)
	MaxResponseSize = 32 * 1024 * 1024

	// maxErrorBodySize bounds how much of an error response is retained
	maxErrorBodySize = 64 * 1024
)

// UserAgent is the user agent string for HTTP requests
var UserAgent = versions.UserAgent()

// Client is an interface for HTTP operations
type Client interface {
	// PostJSON sends body as application/json and returns the response body.
	// Non-2xx responses are returned as *HTTPError.
	PostJSON(ctx context.Context, url string, body []byte) ([]byte, error)
}

// DefaultClient is the default HTTP client implementation
type DefaultClient struct {
	client *http.Client
	now    func() time.Time
}

// NewDefaultClient creates a new default HTTP client with the specified timeout
// If timeout is 0, uses DefaultTimeout
func NewDefaultClient(timeout time.Duration) Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &DefaultClient{
		client: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

// PostJSON performs an HTTP POST request with a JSON body
func (c *DefaultClient) PostJSON(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			URL:        url,
			Message:    resp.Status,
			Body:       errBody,
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After"), c.now()),
		}
	}

	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes (%.2f MB)",
			resp.ContentLength, MaxResponseSize, float64(MaxResponseSize)/(1024*1024))
	}

	// +1 to detect if limit exceeded
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1)
	data, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(data)) > MaxResponseSize {
		return nil, fmt.Errorf("response size exceeds maximum allowed size of %d bytes (%.2f MB)",
			MaxResponseSize, float64(MaxResponseSize)/(1024*1024))
	}

	return data, nil
}
