package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillworks/cloudsync/internal/crypto"
	"github.com/tillworks/cloudsync/internal/entities"
	"github.com/tillworks/cloudsync/internal/exporter"
	"github.com/tillworks/cloudsync/internal/importer"
	"github.com/tillworks/cloudsync/internal/jobs"
	"github.com/tillworks/cloudsync/internal/localstore"
	"github.com/tillworks/cloudsync/internal/secrets"
)

func setupTestWorker(t *testing.T) (*Worker, *jobs.Repository, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "worker-test-*")
	require.NoError(t, err)

	store, err := localstore.Open(filepath.Join(tempDir, "test.db"))
	require.NoError(t, err)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	encryptor, err := crypto.NewEncryptorFromBase64(key)
	require.NoError(t, err)

	jobsRepo := jobs.NewRepository(store.DB())
	secretsStore := secrets.New(store.DB(), encryptor)
	exp := exporter.New(store, exporter.Options{})
	imp := importer.New(store, importer.Options{BackupDir: filepath.Join(tempDir, "backups")})

	w := New(jobsRepo, secretsStore, exp, imp, Config{JobDelay: time.Millisecond})

	cleanup := func() {
		store.Close()
		os.RemoveAll(tempDir)
	}
	return w, jobsRepo, cleanup
}

func TestNewDefaults(t *testing.T) {
	w, _, cleanup := setupTestWorker(t)
	defer cleanup()

	// Zero fields fall back to defaults, explicit ones are kept.
	assert.Equal(t, DefaultConfig().PollInterval, w.config.PollInterval)
	assert.Equal(t, time.Millisecond, w.config.JobDelay)
	assert.Equal(t, DefaultConfig().RetentionDays, w.config.RetentionDays)
	assert.Equal(t, DefaultConfig().CleanupSchedule, w.config.CleanupSchedule)
}

func TestProcessNextJob(t *testing.T) {
	t.Run("empty queue returns nil", func(t *testing.T) {
		w, _, cleanup := setupTestWorker(t)
		defer cleanup()

		result, err := w.ProcessNextJob(context.Background())
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("unknown connection fails the job", func(t *testing.T) {
		w, repo, cleanup := setupTestWorker(t)
		defer cleanup()

		job, err := repo.Enqueue(jobs.EnqueueParams{
			JobType:      entities.JobTypeExport,
			ConnectionID: "missing",
		})
		require.NoError(t, err)

		result, err := w.ProcessNextJob(context.Background())
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, entities.JobStatusFailed, result.Status)
		assert.Contains(t, result.Error, "missing")

		stored, err := repo.Get(job.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.JobStatusFailed, stored.Status)
		assert.Equal(t, 1, stored.Attempts)
		assert.NotEmpty(t, stored.LastError)
	})

	t.Run("cancelled jobs are never picked up", func(t *testing.T) {
		w, repo, cleanup := setupTestWorker(t)
		defer cleanup()

		job, err := repo.Enqueue(jobs.EnqueueParams{
			JobType:      entities.JobTypeExport,
			ConnectionID: "missing",
		})
		require.NoError(t, err)
		require.NoError(t, repo.Cancel(job.ID))

		result, err := w.ProcessNextJob(context.Background())
		require.NoError(t, err)
		assert.Nil(t, result)
	})
}

func TestProcessAllPendingJobs(t *testing.T) {
	w, repo, cleanup := setupTestWorker(t)
	defer cleanup()

	for i := 0; i < 3; i++ {
		_, err := repo.Enqueue(jobs.EnqueueParams{
			JobType:      entities.JobTypeExport,
			ConnectionID: "missing",
		})
		require.NoError(t, err)
	}

	batch, err := w.ProcessAllPendingJobs(context.Background())
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, 3, batch.Processed)
	require.Len(t, batch.Results, 3)
	for _, r := range batch.Results {
		assert.Equal(t, entities.JobStatusFailed, r.Status)
	}
}

func TestImportParams(t *testing.T) {
	t.Run("defaults when no details", func(t *testing.T) {
		job := &entities.SyncJob{}
		strategy, backup := importParams(job)
		assert.Equal(t, entities.StrategySkip, strategy)
		assert.True(t, backup)
	})

	t.Run("reads queued parameters", func(t *testing.T) {
		job := &entities.SyncJob{Details: `{"strategy":"newest","backup":false}`}
		strategy, backup := importParams(job)
		assert.Equal(t, entities.StrategyNewest, strategy)
		assert.False(t, backup)
	})

	t.Run("invalid strategy falls back to skip", func(t *testing.T) {
		job := &entities.SyncJob{Details: `{"strategy":"yolo"}`}
		strategy, backup := importParams(job)
		assert.Equal(t, entities.StrategySkip, strategy)
		assert.True(t, backup)
	})
}
