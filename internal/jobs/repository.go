// Package jobs implements the durable sync job ledger. Jobs are created
// pending, claimed by the worker one at a time, and finish in a terminal
// state (success, failed, cancelled). All sync outcomes surface through
// this ledger; nothing in the engine reports past it.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillworks/cloudsync/internal/entities"
)

var (
	ErrJobNotFound    = errors.New("job not found")
	ErrInvalidJobType = errors.New("invalid job type")
	ErrJobNotPending  = errors.New("job is not pending")
	ErrJobNotFailed   = errors.New("job is not failed")
	ErrMissingConnID  = errors.New("connection id is required")
)

// Repository handles all job ledger database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new job ledger repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// EnqueueParams describes a job to enqueue. ID is optional; a UUID is
// assigned when empty.
type EnqueueParams struct {
	ID           string
	JobType      entities.JobType
	Provider     string
	ConnectionID string
	DryRun       bool
	InitiatedBy  string
	Details      map[string]any
}

// Enqueue inserts a pending job.
func (r *Repository) Enqueue(params EnqueueParams) (*entities.SyncJob, error) {
	if !params.JobType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidJobType, params.JobType)
	}
	if params.ConnectionID == "" {
		return nil, ErrMissingConnID
	}

	id := params.ID
	if id == "" {
		id = uuid.NewString()
	}

	details := ""
	if len(params.Details) > 0 {
		encoded, err := json.Marshal(params.Details)
		if err != nil {
			return nil, fmt.Errorf("failed to encode job details: %w", err)
		}
		details = string(encoded)
	}

	job := &entities.SyncJob{
		ID:           id,
		JobType:      params.JobType,
		Provider:     params.Provider,
		ConnectionID: params.ConnectionID,
		Status:       entities.JobStatusPending,
		DryRun:       params.DryRun,
		InitiatedBy:  params.InitiatedBy,
		Details:      details,
	}

	if err := r.db.Create(job).Error; err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}
	return job, nil
}

// Get returns a job by id.
func (r *Repository) Get(id string) (*entities.SyncJob, error) {
	var job entities.SyncJob
	err := r.db.Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// Cancel transitions a pending job to cancelled. Any other state is an
// error: running jobs cannot be cancelled cooperatively. The transition
// is a compare-and-set so a cancel racing the worker's claim cannot
// report success without changing anything.
func (r *Repository) Cancel(id string) error {
	result := r.db.Model(&entities.SyncJob{}).
		Where("id = ? AND status = ?", id, entities.JobStatusPending).
		Updates(map[string]any{
			"status":     entities.JobStatusCancelled,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to cancel job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		job, err := r.Get(id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: status is %s", ErrJobNotPending, job.Status)
	}
	return nil
}

// Retry resets a failed job to pending, clearing its last error. Same
// compare-and-set shape as Cancel.
func (r *Repository) Retry(id string) error {
	result := r.db.Model(&entities.SyncJob{}).
		Where("id = ? AND status = ?", id, entities.JobStatusFailed).
		Updates(map[string]any{
			"status":     entities.JobStatusPending,
			"last_error": "",
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to retry job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		job, err := r.Get(id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: status is %s", ErrJobNotFailed, job.Status)
	}
	return nil
}

// CleanupOld deletes terminal jobs older than the given number of days.
// Returns the count removed.
func (r *Repository) CleanupOld(daysOld int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -daysOld)
	result := r.db.
		Where("status IN ?", []entities.JobStatus{
			entities.JobStatusSuccess,
			entities.JobStatusFailed,
			entities.JobStatusCancelled,
		}).
		Where("created_at < ?", cutoff).
		Delete(&entities.SyncJob{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to clean up jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DequeueOldestPending atomically claims the oldest pending job: marks
// it running and increments its attempt counter in the same
// transaction. Returns nil when no pending job exists.
func (r *Repository) DequeueOldestPending() (*entities.SyncJob, error) {
	var claimed *entities.SyncJob

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var job entities.SyncJob
		err := tx.Where("status = ?", entities.JobStatusPending).
			Order("created_at asc, id asc").
			First(&job).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		result := tx.Model(&entities.SyncJob{}).
			Where("id = ? AND status = ?", job.ID, entities.JobStatusPending).
			Updates(map[string]any{
				"status":     entities.JobStatusRunning,
				"attempts":   gorm.Expr("attempts + 1"),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Claimed elsewhere between select and update.
			return nil
		}

		job.Status = entities.JobStatusRunning
		job.Attempts++
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}
	return claimed, nil
}

// MarkSuccess records a structured result summary and finishes the job.
func (r *Repository) MarkSuccess(id string, result any) error {
	details := ""
	if result != nil {
		encoded, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to encode job result: %w", err)
		}
		details = string(encoded)
	}

	return r.db.Model(&entities.SyncJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     entities.JobStatusSuccess,
			"details":    details,
			"last_error": "",
			"updated_at": time.Now(),
		}).Error
}

// MarkFailed records the error message and finishes the job.
func (r *Repository) MarkFailed(id string, jobErr error) error {
	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}
	return r.db.Model(&entities.SyncJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     entities.JobStatusFailed,
			"last_error": msg,
			"updated_at": time.Now(),
		}).Error
}
