// Package worker executes queued sync jobs one at a time. Concurrency
// safety across processes comes from the remote advisory lock; within
// this process the single poll-dispatch-sleep loop enforces the
// one-job-at-a-time invariant structurally (there is no worker pool).
package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tillworks/cloudsync/internal/entities"
	"github.com/tillworks/cloudsync/internal/exporter"
	"github.com/tillworks/cloudsync/internal/importer"
	"github.com/tillworks/cloudsync/internal/jobs"
	"github.com/tillworks/cloudsync/internal/secrets"
)

// Config tunes the worker loop.
type Config struct {
	// PollInterval is how often the loop checks for pending jobs.
	PollInterval time.Duration

	// JobDelay is the pause between consecutive jobs in one drain, to
	// avoid saturating the remote database.
	JobDelay time.Duration

	// RetentionDays is how long terminal jobs are kept.
	RetentionDays int

	// CleanupSchedule is the cron schedule for purging old jobs.
	CleanupSchedule string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:    10 * time.Second,
		JobDelay:        500 * time.Millisecond,
		RetentionDays:   30,
		CleanupSchedule: "0 3 * * *",
	}
}

// Worker pulls jobs off the ledger and dispatches them.
type Worker struct {
	jobs     *jobs.Repository
	secrets  *secrets.Store
	exporter *exporter.Exporter
	importer *importer.Importer
	config   Config
}

// New creates a worker over the given collaborators.
func New(jobsRepo *jobs.Repository, secretsStore *secrets.Store, exp *exporter.Exporter, imp *importer.Importer, cfg Config) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.JobDelay <= 0 {
		cfg.JobDelay = DefaultConfig().JobDelay
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = DefaultConfig().RetentionDays
	}
	if cfg.CleanupSchedule == "" {
		cfg.CleanupSchedule = DefaultConfig().CleanupSchedule
	}
	return &Worker{
		jobs:     jobsRepo,
		secrets:  secretsStore,
		exporter: exp,
		importer: imp,
		config:   cfg,
	}
}

// JobResult summarizes one processed job.
type JobResult struct {
	JobID   string             `json:"job_id"`
	JobType entities.JobType   `json:"job_type"`
	Status  entities.JobStatus `json:"status"`
	Error   string             `json:"error,omitempty"`
}

// ProcessNextJob claims the oldest pending job, executes it and records
// the outcome on the ledger. Returns nil when no pending job exists.
// Job execution errors are recorded, not returned: only ledger access
// failures surface as errors.
func (w *Worker) ProcessNextJob(ctx context.Context) (*JobResult, error) {
	job, err := w.jobs.DequeueOldestPending()
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	log.Printf("Worker: processing job %s (%s, attempt %d)", job.ID, job.JobType, job.Attempts)

	summary, runErr := w.execute(ctx, job)
	if runErr != nil {
		log.Printf("Worker: job %s failed: %v", job.ID, runErr)
		if err := w.jobs.MarkFailed(job.ID, runErr); err != nil {
			return nil, fmt.Errorf("failed to record job failure: %w", err)
		}
		return &JobResult{JobID: job.ID, JobType: job.JobType, Status: entities.JobStatusFailed, Error: runErr.Error()}, nil
	}

	if err := w.jobs.MarkSuccess(job.ID, summary); err != nil {
		return nil, fmt.Errorf("failed to record job success: %w", err)
	}
	log.Printf("Worker: job %s succeeded", job.ID)
	return &JobResult{JobID: job.ID, JobType: job.JobType, Status: entities.JobStatusSuccess}, nil
}

// execute dispatches by job type. The returned summary is serialized
// into the job's Details on success.
func (w *Worker) execute(ctx context.Context, job *entities.SyncJob) (any, error) {
	conn, err := w.secrets.Get(job.ConnectionID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, fmt.Errorf("connection %s not found", job.ConnectionID)
	}

	switch job.JobType {
	case entities.JobTypeExport:
		return w.exporter.Export(ctx, conn.ConnectionString, job.DryRun)
	case entities.JobTypeImport:
		strategy, backup := importParams(job)
		return w.importer.Import(ctx, conn.ConnectionString, strategy, job.DryRun, backup)
	case entities.JobTypeVerifyExport:
		return w.exporter.VerifyExport(ctx, conn.ConnectionString)
	case entities.JobTypeVerifyImport:
		return w.importer.VerifyImport(ctx, conn.ConnectionString)
	default:
		return nil, fmt.Errorf("unrecognized job type %q", job.JobType)
	}
}

// importParams reads the import strategy and backup flag from the job's
// queued details. Defaults: skip strategy, backup on.
func importParams(job *entities.SyncJob) (entities.ConflictStrategy, bool) {
	strategy := entities.StrategySkip
	backup := true

	details := job.DecodeDetails()
	if details == nil {
		return strategy, backup
	}
	if s, ok := details["strategy"].(string); ok && entities.ConflictStrategy(s).IsValid() {
		strategy = entities.ConflictStrategy(s)
	}
	if b, ok := details["backup"].(bool); ok {
		backup = b
	}
	return strategy, backup
}

// BatchResult summarizes one drain of the pending queue.
type BatchResult struct {
	Processed int         `json:"processed"`
	Results   []JobResult `json:"results"`
}

// ProcessAllPendingJobs drains the queue, pausing briefly between jobs.
func (w *Worker) ProcessAllPendingJobs(ctx context.Context) (*BatchResult, error) {
	batch := &BatchResult{}
	for {
		result, err := w.ProcessNextJob(ctx)
		if err != nil {
			return batch, err
		}
		if result == nil {
			return batch, nil
		}
		batch.Results = append(batch.Results, *result)
		batch.Processed++

		select {
		case <-ctx.Done():
			return batch, ctx.Err()
		case <-time.After(w.config.JobDelay):
		}
	}
}
