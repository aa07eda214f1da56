package sync

import "github.com/stacklok/ledgersync/internal/ledger"

// Result is the outcome of one connection run.
// Counts cover committed pages only.
type Result struct {
	ConnectionID string
	Added        int
	Modified     int
	Removed      int
	Pages        int
	// Cursor is the last committed cursor
	Cursor ledger.Cursor
	// Err is nil on success, otherwise an *Error
	Err error
}

// Succeeded reports whether the run finished without error
func (r *Result) Succeeded() bool {
	return r != nil && r.Err == nil
}

// FailedResult returns a result for a run that never started
func FailedResult(connectionID string, err *Error) *Result {
	return &Result{ConnectionID: connectionID, Err: err}
}
