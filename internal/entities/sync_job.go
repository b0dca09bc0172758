package entities

import (
	"encoding/json"
	"time"
)

// JobType enumerates the sync operations the worker can execute.
type JobType string

const (
	JobTypeExport       JobType = "export"
	JobTypeImport       JobType = "import"
	JobTypeVerifyExport JobType = "verify_export"
	JobTypeVerifyImport JobType = "verify_import"
)

// IsValid reports whether t is one of the known job types.
func (t JobType) IsValid() bool {
	switch t {
	case JobTypeExport, JobTypeImport, JobTypeVerifyExport, JobTypeVerifyImport:
		return true
	}
	return false
}

// JobStatus enumerates the job lifecycle states. Transitions move
// forward only, except failed -> pending (explicit retry) and
// pending -> cancelled.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusSuccess   JobStatus = "success"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether the status is a terminal state.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSuccess || s == JobStatusFailed || s == JobStatusCancelled
}

// ConflictStrategy selects how an import resolves rows that exist on
// both sides.
type ConflictStrategy string

const (
	StrategySkip      ConflictStrategy = "skip"
	StrategyOverwrite ConflictStrategy = "overwrite"
	StrategyMerge     ConflictStrategy = "merge"
	StrategyNewest    ConflictStrategy = "newest"
)

// IsValid reports whether s is one of the four supported strategies.
func (s ConflictStrategy) IsValid() bool {
	switch s {
	case StrategySkip, StrategyOverwrite, StrategyMerge, StrategyNewest:
		return true
	}
	return false
}

// SyncJob is a durable record of a queued sync operation.
type SyncJob struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	JobType      JobType   `gorm:"type:varchar(30);not null;index" json:"job_type"`
	Provider     string    `gorm:"type:varchar(50)" json:"provider"`
	ConnectionID string    `gorm:"size:64;not null" json:"connection_id"`
	Status       JobStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	DryRun       bool      `json:"dry_run"`

	// InitiatedBy is an optional actor tag (user name, "scheduler", ...).
	InitiatedBy string `gorm:"size:100" json:"initiated_by,omitempty"`

	// Details holds serialized parameters before execution and the
	// serialized run result after it.
	Details string `gorm:"type:text" json:"details,omitempty"`

	Attempts  int       `json:"attempts"`
	LastError string    `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SyncJob) TableName() string {
	return "sync_jobs"
}

// DecodeDetails deserializes the Details payload. Returns nil when the
// payload is empty or not structured data.
func (j *SyncJob) DecodeDetails() map[string]any {
	if j.Details == "" {
		return nil
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(j.Details), &decoded); err != nil {
		return nil
	}
	return decoded
}
