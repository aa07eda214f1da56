package status

import "time"

// SyncPhase represents the current phase of a connection sync
type SyncPhase string

const (
	// SyncPhaseSyncing means sync is currently in progress
	SyncPhaseSyncing SyncPhase = "Syncing"

	// SyncPhaseComplete means the last sync completed successfully
	SyncPhaseComplete SyncPhase = "Complete"

	// SyncPhaseFailed means the last sync failed
	SyncPhaseFailed SyncPhase = "Failed"
)

// SyncStatus represents the last known sync state of one connection
type SyncStatus struct {
	// Phase represents the current synchronization phase
	Phase SyncPhase `json:"phase"`

	// Stage is the orchestrator stage the last failure happened in
	Stage string `json:"stage,omitempty"`

	// ErrorKind is the error kind of the last failure
	ErrorKind string `json:"errorKind,omitempty"`

	// Message provides additional information about the sync status
	Message string `json:"message,omitempty"`

	// LastAttempt is the timestamp of the last sync attempt
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`

	// AttemptCount is the number of sync attempts since last success
	AttemptCount int `json:"attemptCount,omitempty"`

	// LastSyncTime is the timestamp of the last successful sync
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`

	// Added, Modified and Removed are the committed counts of the last run
	Added    int `json:"added"`
	Modified int `json:"modified"`
	Removed  int `json:"removed"`
}
