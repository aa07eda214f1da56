// Package events publishes the outcome of sync runs to a message broker.
package events

import (
	"errors"
	"time"

	"github.com/google/uuid"

	pkgsync "github.com/stacklok/ledgersync/internal/sync"
)

// Routing keys of sync events
const (
	TypeSyncCompleted = "sync.completed"
	TypeSyncFailed    = "sync.failed"
)

// SyncEvent describes one finished run. It never carries credentials or
// transaction contents.
type SyncEvent struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	ConnectionID string    `json:"connection_id"`
	Added        int       `json:"added"`
	Modified     int       `json:"modified"`
	Removed      int       `json:"removed"`
	Pages        int       `json:"pages"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	Stage        string    `json:"stage,omitempty"`
	Committed    bool      `json:"committed,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewSyncEvent builds the event for result
func NewSyncEvent(result *pkgsync.Result, at time.Time) SyncEvent {
	ev := SyncEvent{
		ID:           uuid.NewString(),
		Type:         TypeSyncCompleted,
		ConnectionID: result.ConnectionID,
		Added:        result.Added,
		Modified:     result.Modified,
		Removed:      result.Removed,
		Pages:        result.Pages,
		OccurredAt:   at.UTC(),
	}

	if result.Err != nil {
		ev.Type = TypeSyncFailed
		var serr *pkgsync.Error
		if errors.As(result.Err, &serr) {
			ev.ErrorKind = string(serr.Kind)
			ev.Stage = string(serr.Stage)
			ev.Committed = serr.Committed
		}
	}
	return ev
}
