package provider

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a provider failure for the retry policy
type Kind string

const (
	// KindUnavailable is a transient network or server-side failure
	KindUnavailable Kind = "ProviderUnavailable"

	// KindRateLimited means the provider throttled the request. RetryAfter carries
	// the provider hint when one was given.
	KindRateLimited Kind = "ProviderRateLimited"

	// KindRejected means the credential is dead or the request is invalid.
	// It is not retryable without re-authentication.
	KindRejected Kind = "ProviderRejected"
)

// Error is returned by every Client operation
type Error struct {
	Kind Kind
	// Op is the provider operation that failed, e.g. "transactions/sync"
	Op string
	// Code is the provider error code when the response carried one
	Code       string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient
func (e *Error) Retryable() bool {
	return e.Kind == KindUnavailable || e.Kind == KindRateLimited
}

// KindOf extracts the Kind of a provider error anywhere in err's chain
func KindOf(err error) (Kind, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind, true
	}
	return "", false
}

// RetryAfterOf returns the provider retry-after hint carried by err, if any
func RetryAfterOf(err error) time.Duration {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.RetryAfter
	}
	return 0
}
