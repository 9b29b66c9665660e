// Package status provides sync status tracking for account ingestion passes.
package status

import "time"

// SyncPhase represents the current phase of an ingestion pass
type SyncPhase string

const (
	// SyncPhaseSyncing means an ingestion pass is currently in progress
	SyncPhaseSyncing SyncPhase = "Syncing"

	// SyncPhaseComplete means the last ingestion pass completed successfully
	SyncPhaseComplete SyncPhase = "Complete"

	// SyncPhaseFailed means the last ingestion pass failed
	SyncPhaseFailed SyncPhase = "Failed"
)

// SyncStatus represents the state of an account's repository ingestion
type SyncStatus struct {
	// Phase represents the current synchronization phase
	Phase SyncPhase `json:"phase" yaml:"phase"`

	// Message provides additional information about the sync status
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// LastAttempt is the timestamp of the last sync attempt
	LastAttempt *time.Time `json:"lastAttempt,omitempty" yaml:"lastAttempt,omitempty"`

	// AttemptCount is the number of sync attempts since last success
	AttemptCount int `json:"attemptCount,omitempty" yaml:"attemptCount,omitempty"`

	// LastSyncTime is the timestamp of the last successful pass
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty" yaml:"lastSyncTime,omitempty"`

	// RepositoryCount is the number of repositories upserted by the last pass
	RepositoryCount int `json:"repositoryCount,omitempty" yaml:"repositoryCount,omitempty"`

	// PagesFetched is the number of provider pages read by the last pass
	PagesFetched int `json:"pagesFetched,omitempty" yaml:"pagesFetched,omitempty"`
}

// HasCompletedPass reports whether at least one full pass finished, which
// makes the next pass a re-sync.
func (s *SyncStatus) HasCompletedPass() bool {
	return s != nil && s.LastSyncTime != nil
}
