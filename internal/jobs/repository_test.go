package jobs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillworks/cloudsync/internal/entities"
	"github.com/tillworks/cloudsync/internal/localstore"
)

func setupTestRepo(t *testing.T) (*Repository, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "jobs-test-*")
	require.NoError(t, err)

	local, err := localstore.Open(filepath.Join(tempDir, "test.db"))
	require.NoError(t, err)

	cleanup := func() {
		local.Close()
		os.RemoveAll(tempDir)
	}
	return NewRepository(local.DB()), cleanup
}

func enqueueTestJob(t *testing.T, repo *Repository, params EnqueueParams) *entities.SyncJob {
	t.Helper()
	if params.JobType == "" {
		params.JobType = entities.JobTypeExport
	}
	if params.ConnectionID == "" {
		params.ConnectionID = "conn-1"
	}
	job, err := repo.Enqueue(params)
	require.NoError(t, err)
	return job
}

func TestEnqueue(t *testing.T) {
	t.Run("creates a pending job with generated id", func(t *testing.T) {
		repo, cleanup := setupTestRepo(t)
		defer cleanup()

		job := enqueueTestJob(t, repo, EnqueueParams{})
		assert.NotEmpty(t, job.ID)
		assert.Equal(t, entities.JobStatusPending, job.Status)
		assert.Equal(t, 0, job.Attempts)
	})

	t.Run("keeps a caller supplied id", func(t *testing.T) {
		repo, cleanup := setupTestRepo(t)
		defer cleanup()

		job := enqueueTestJob(t, repo, EnqueueParams{ID: "job-42"})
		assert.Equal(t, "job-42", job.ID)
	})

	t.Run("serializes details", func(t *testing.T) {
		repo, cleanup := setupTestRepo(t)
		defer cleanup()

		job := enqueueTestJob(t, repo, EnqueueParams{
			JobType: entities.JobTypeImport,
			Details: map[string]any{"strategy": "merge", "backup": false},
		})

		decoded := job.DecodeDetails()
		require.NotNil(t, decoded)
		assert.Equal(t, "merge", decoded["strategy"])
		assert.Equal(t, false, decoded["backup"])
	})

	t.Run("rejects invalid job type", func(t *testing.T) {
		repo, cleanup := setupTestRepo(t)
		defer cleanup()

		_, err := repo.Enqueue(EnqueueParams{JobType: "vacuum", ConnectionID: "c"})
		assert.ErrorIs(t, err, ErrInvalidJobType)
	})

	t.Run("rejects missing connection id", func(t *testing.T) {
		repo, cleanup := setupTestRepo(t)
		defer cleanup()

		_, err := repo.Enqueue(EnqueueParams{JobType: entities.JobTypeExport})
		assert.ErrorIs(t, err, ErrMissingConnID)
	})
}

func TestGet(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	created := enqueueTestJob(t, repo, EnqueueParams{})

	job, err := repo.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, job.ID)

	_, err = repo.Get("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestCancel(t *testing.T) {
	t.Run("cancels a pending job", func(t *testing.T) {
		repo, cleanup := setupTestRepo(t)
		defer cleanup()

		job := enqueueTestJob(t, repo, EnqueueParams{})
		require.NoError(t, repo.Cancel(job.ID))

		got, err := repo.Get(job.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.JobStatusCancelled, got.Status)
	})

	t.Run("refuses non-pending jobs", func(t *testing.T) {
		repo, cleanup := setupTestRepo(t)
		defer cleanup()

		job := enqueueTestJob(t, repo, EnqueueParams{})
		claimed, err := repo.DequeueOldestPending()
		require.NoError(t, err)
		require.NotNil(t, claimed)

		err = repo.Cancel(job.ID)
		assert.ErrorIs(t, err, ErrJobNotPending)
	})

	t.Run("missing job", func(t *testing.T) {
		repo, cleanup := setupTestRepo(t)
		defer cleanup()

		assert.ErrorIs(t, repo.Cancel("missing"), ErrJobNotFound)
	})

	t.Run("cancel losing the race to a claim is an error", func(t *testing.T) {
		repo, cleanup := setupTestRepo(t)
		defer cleanup()

		job := enqueueTestJob(t, repo, EnqueueParams{})

		// The worker claims the job between the caller reading it as
		// pending and issuing the cancel.
		err := repo.db.Model(&entities.SyncJob{}).
			Where("id = ?", job.ID).
			Update("status", entities.JobStatusRunning).Error
		require.NoError(t, err)

		assert.ErrorIs(t, repo.Cancel(job.ID), ErrJobNotPending)

		got, err := repo.Get(job.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.JobStatusRunning, got.Status)
	})
}

func TestRetry(t *testing.T) {
	t.Run("requeues a failed job and clears its error", func(t *testing.T) {
		repo, cleanup := setupTestRepo(t)
		defer cleanup()

		job := enqueueTestJob(t, repo, EnqueueParams{})
		_, err := repo.DequeueOldestPending()
		require.NoError(t, err)
		require.NoError(t, repo.MarkFailed(job.ID, errors.New("remote unreachable")))

		require.NoError(t, repo.Retry(job.ID))

		got, err := repo.Get(job.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.JobStatusPending, got.Status)
		assert.Empty(t, got.LastError)
		assert.Equal(t, 1, got.Attempts)
	})

	t.Run("refuses non-failed jobs", func(t *testing.T) {
		repo, cleanup := setupTestRepo(t)
		defer cleanup()

		job := enqueueTestJob(t, repo, EnqueueParams{})
		assert.ErrorIs(t, repo.Retry(job.ID), ErrJobNotFailed)
	})

	t.Run("retry losing a race to another retry is an error", func(t *testing.T) {
		repo, cleanup := setupTestRepo(t)
		defer cleanup()

		job := enqueueTestJob(t, repo, EnqueueParams{})
		_, err := repo.DequeueOldestPending()
		require.NoError(t, err)
		require.NoError(t, repo.MarkFailed(job.ID, errors.New("boom")))

		// Another caller requeues the job first.
		require.NoError(t, repo.Retry(job.ID))

		assert.ErrorIs(t, repo.Retry(job.ID), ErrJobNotFailed)
	})

	t.Run("missing job", func(t *testing.T) {
		repo, cleanup := setupTestRepo(t)
		defer cleanup()

		assert.ErrorIs(t, repo.Retry("missing"), ErrJobNotFound)
	})
}

func TestDequeueOldestPending(t *testing.T) {
	t.Run("empty queue returns nil", func(t *testing.T) {
		repo, cleanup := setupTestRepo(t)
		defer cleanup()

		job, err := repo.DequeueOldestPending()
		require.NoError(t, err)
		assert.Nil(t, job)
	})

	t.Run("claims jobs oldest first", func(t *testing.T) {
		repo, cleanup := setupTestRepo(t)
		defer cleanup()

		first := enqueueTestJob(t, repo, EnqueueParams{ID: "a"})
		enqueueTestJob(t, repo, EnqueueParams{ID: "b"})

		claimed, err := repo.DequeueOldestPending()
		require.NoError(t, err)
		require.NotNil(t, claimed)
		assert.Equal(t, first.ID, claimed.ID)
		assert.Equal(t, entities.JobStatusRunning, claimed.Status)
		assert.Equal(t, 1, claimed.Attempts)
	})

	t.Run("skips terminal jobs", func(t *testing.T) {
		repo, cleanup := setupTestRepo(t)
		defer cleanup()

		job := enqueueTestJob(t, repo, EnqueueParams{})
		require.NoError(t, repo.Cancel(job.ID))

		claimed, err := repo.DequeueOldestPending()
		require.NoError(t, err)
		assert.Nil(t, claimed)
	})
}

func TestMarkSuccessAndFailed(t *testing.T) {
	t.Run("success records the result summary", func(t *testing.T) {
		repo, cleanup := setupTestRepo(t)
		defer cleanup()

		job := enqueueTestJob(t, repo, EnqueueParams{})
		_, err := repo.DequeueOldestPending()
		require.NoError(t, err)

		require.NoError(t, repo.MarkSuccess(job.ID, map[string]any{"total_rows": 7}))

		got, err := repo.Get(job.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.JobStatusSuccess, got.Status)
		assert.True(t, got.Status.IsTerminal())

		decoded := got.DecodeDetails()
		require.NotNil(t, decoded)
		assert.EqualValues(t, 7, decoded["total_rows"])
	})

	t.Run("failure records the error message", func(t *testing.T) {
		repo, cleanup := setupTestRepo(t)
		defer cleanup()

		job := enqueueTestJob(t, repo, EnqueueParams{})
		_, err := repo.DequeueOldestPending()
		require.NoError(t, err)

		require.NoError(t, repo.MarkFailed(job.ID, errors.New("boom")))

		got, err := repo.Get(job.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.JobStatusFailed, got.Status)
		assert.Equal(t, "boom", got.LastError)
	})
}

func TestCleanupOld(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	old := enqueueTestJob(t, repo, EnqueueParams{ID: "old"})
	require.NoError(t, repo.Cancel(old.ID))
	// Backdate past the retention window.
	err := repo.db.Model(&entities.SyncJob{}).
		Where("id = ?", old.ID).
		Update("created_at", time.Now().AddDate(0, 0, -60)).Error
	require.NoError(t, err)

	recent := enqueueTestJob(t, repo, EnqueueParams{ID: "recent"})
	require.NoError(t, repo.Cancel(recent.ID))

	pending := enqueueTestJob(t, repo, EnqueueParams{ID: "pending"})
	err = repo.db.Model(&entities.SyncJob{}).
		Where("id = ?", pending.ID).
		Update("created_at", time.Now().AddDate(0, 0, -60)).Error
	require.NoError(t, err)

	removed, err := repo.CleanupOld(30)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	// Old pending jobs survive cleanup regardless of age.
	_, err = repo.Get(pending.ID)
	assert.NoError(t, err)
	_, err = repo.Get(recent.ID)
	assert.NoError(t, err)
	_, err = repo.Get(old.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
}
