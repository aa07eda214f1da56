package httpclient

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPError represents a non-2xx response
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string

	// Body holds the (size limited) response body so callers can decode
	// provider error payloads.
	Body []byte

	// RetryAfter is the parsed Retry-After header, zero when absent
	RetryAfter time.Duration
}

// Error returns the error message
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, url, message string) error {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
	}
}

// ParseRetryAfter parses a Retry-After header value, which is either a number
// of seconds or an HTTP date. Invalid or past values yield zero.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
