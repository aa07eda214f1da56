package v1

import (
	"errors"
	"time"

	"github.com/stacklok/ledgersync/internal/ledger"
	"github.com/stacklok/ledgersync/internal/status"
	pkgsync "github.com/stacklok/ledgersync/internal/sync"
)

// Result statuses
const (
	ResultCompleted = "completed"
	ResultFailed    = "failed"
	ResultSkipped   = "skipped"
)

// SyncErrorResponse describes why a run failed
type SyncErrorResponse struct {
	Kind      string `json:"kind" example:"ProviderUnavailable"`
	Stage     string `json:"stage,omitempty" example:"SyncingPage"`
	Message   string `json:"message"`
	Committed bool   `json:"committed"`
}

// SyncResultResponse is the outcome of one connection run
type SyncResultResponse struct {
	ConnectionID string             `json:"connection_id"`
	Status       string             `json:"status" example:"completed"`
	Added        int                `json:"added"`
	Modified     int                `json:"modified"`
	Removed      int                `json:"removed"`
	Pages        int                `json:"pages"`
	Error        *SyncErrorResponse `json:"error,omitempty"`
}

// SyncAllResponse is the outcome of a fan-out run
type SyncAllResponse struct {
	Results   []SyncResultResponse `json:"results"`
	Completed int                  `json:"completed"`
	Failed    int                  `json:"failed"`
	Skipped   int                  `json:"skipped"`
}

// ConnectionResponse is a connection with its last known sync status
type ConnectionResponse struct {
	ID          string              `json:"id"`
	UserID      string              `json:"user_id"`
	Institution *ledger.Institution `json:"institution,omitempty"`
	Active      bool                `json:"active"`
	LastSync    *time.Time          `json:"last_sync,omitempty"`
	Status      *status.SyncStatus  `json:"status,omitempty"`
}

// ConnectionListResponse lists the active connections
type ConnectionListResponse struct {
	Connections []ConnectionResponse `json:"connections"`
	Count       int                  `json:"count"`
}

// AccountListResponse lists the stored accounts of a connection
type AccountListResponse struct {
	Accounts []ledger.AccountSnapshot `json:"accounts"`
	Count    int                      `json:"count"`
}

// TransactionListResponse lists the stored transactions of a connection
type TransactionListResponse struct {
	Transactions []ledger.TransactionRecord `json:"transactions"`
	Count        int                        `json:"count"`
}

// NewSyncResultResponse reports a run. A run skipped because the lock was
// held is "skipped", not "failed".
func NewSyncResultResponse(result *pkgsync.Result) SyncResultResponse {
	resp := SyncResultResponse{
		ConnectionID: result.ConnectionID,
		Status:       ResultCompleted,
		Added:        result.Added,
		Modified:     result.Modified,
		Removed:      result.Removed,
		Pages:        result.Pages,
	}
	if result.Err == nil {
		return resp
	}

	resp.Status = ResultFailed
	resp.Error = &SyncErrorResponse{Kind: "Unknown", Message: result.Err.Error()}
	var serr *pkgsync.Error
	if errors.As(result.Err, &serr) {
		if serr.Kind == pkgsync.KindLockHeld {
			resp.Status = ResultSkipped
		}
		resp.Error.Kind = string(serr.Kind)
		resp.Error.Stage = string(serr.Stage)
		resp.Error.Committed = serr.Committed
	}
	return resp
}

// NewSyncAllResponse reports a fan-out run with per-status totals
func NewSyncAllResponse(results []*pkgsync.Result) SyncAllResponse {
	resp := SyncAllResponse{Results: make([]SyncResultResponse, 0, len(results))}
	for _, result := range results {
		item := NewSyncResultResponse(result)
		switch item.Status {
		case ResultCompleted:
			resp.Completed++
		case ResultSkipped:
			resp.Skipped++
		default:
			resp.Failed++
		}
		resp.Results = append(resp.Results, item)
	}
	return resp
}

func newConnectionResponse(conn *ledger.Connection, st *status.SyncStatus) ConnectionResponse {
	return ConnectionResponse{
		ID:          conn.ID,
		UserID:      conn.UserID,
		Institution: conn.Institution,
		Active:      conn.Active,
		LastSync:    conn.LastSync,
		Status:      st,
	}
}
