package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/stacklok/ledgersync/internal/provider"
)

// Kind classifies why a run failed
type Kind string

const (
	// KindProviderUnavailable means the provider stayed unreachable after all retries
	KindProviderUnavailable Kind = "ProviderUnavailable"
	// KindProviderRateLimited means the provider kept throttling after all retries
	KindProviderRateLimited Kind = "ProviderRateLimited"
	// KindProviderRejected means the provider refused the credential or request
	KindProviderRejected Kind = "ProviderRejected"
	// KindDanglingAccountReference means a page referenced an account that is
	// still unknown after a forced account refresh
	KindDanglingAccountReference Kind = "DanglingAccountReference"
	// KindCursorPersist means the cursor could not be read or written
	KindCursorPersist Kind = "CursorPersistError"
	// KindStorageCommit means accounts or a page could not be committed
	KindStorageCommit Kind = "StorageCommitError"

	// KindCanceled means the run stopped because its context ended
	KindCanceled Kind = "Canceled"
	// KindLockHeld means another run for the connection is in flight
	KindLockHeld Kind = "LockHeld"
	// KindLockFailed means the lock backend could not be reached
	KindLockFailed Kind = "LockError"
	// KindConnectionNotFound means the connection id is unknown or inactive
	KindConnectionNotFound Kind = "ConnectionNotFound"
)

// Stage is the state of the run loop
type Stage string

const (
	StageIdle               Stage = "Idle"
	StageRefreshingAccounts Stage = "RefreshingAccounts"
	StageSyncingPage        Stage = "SyncingPage"
	StageCommitting         Stage = "Committing"
)

// Error is the failure of one connection run
type Error struct {
	Kind  Kind
	Stage Stage
	Err   error
	// Message is safe to persist and show to operators
	Message string
	// Committed reports whether at least one page reached storage before the failure
	Committed bool
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error with a message derived from kind, stage and err
func NewError(kind Kind, stage Stage, err error) *Error {
	msg := fmt.Sprintf("%s during %s", kind, stage)
	if err != nil {
		msg += ": " + err.Error()
	}
	return &Error{Kind: kind, Stage: stage, Err: err, Message: msg}
}

// KindOf returns the Kind of a run error, or "" when err is not an *Error
func KindOf(err error) Kind {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Kind
	}
	return ""
}

// providerError maps a failed provider call to a run error
func providerError(ctx context.Context, stage Stage, err error) *Error {
	if ctx.Err() != nil {
		return NewError(KindCanceled, stage, context.Cause(ctx))
	}
	kind, ok := provider.KindOf(err)
	if !ok {
		return NewError(KindProviderUnavailable, stage, err)
	}
	switch kind {
	case provider.KindRateLimited:
		return NewError(KindProviderRateLimited, stage, err)
	case provider.KindRejected:
		return NewError(KindProviderRejected, stage, err)
	default:
		return NewError(KindProviderUnavailable, stage, err)
	}
}
