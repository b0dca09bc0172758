package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopStartStop(t *testing.T) {
	t.Run("start and stop complete cleanly", func(t *testing.T) {
		w, _, cleanup := setupTestWorker(t)
		defer cleanup()

		loop := NewLoop(w)
		require.NoError(t, loop.Start(context.Background()))
		loop.Stop()
	})

	t.Run("double start is a no-op", func(t *testing.T) {
		w, _, cleanup := setupTestWorker(t)
		defer cleanup()

		loop := NewLoop(w)
		require.NoError(t, loop.Start(context.Background()))
		require.NoError(t, loop.Start(context.Background()))
		defer loop.Stop()

		assert.Len(t, loop.cron.Entries(), 1)
	})

	t.Run("stop then start keeps a single cleanup entry", func(t *testing.T) {
		w, _, cleanup := setupTestWorker(t)
		defer cleanup()

		loop := NewLoop(w)
		require.NoError(t, loop.Start(context.Background()))
		loop.Stop()
		require.NoError(t, loop.Start(context.Background()))
		defer loop.Stop()

		assert.Len(t, loop.cron.Entries(), 1)
	})

	t.Run("stop on a never-started loop returns", func(t *testing.T) {
		w, _, cleanup := setupTestWorker(t)
		defer cleanup()

		done := make(chan struct{})
		go func() {
			NewLoop(w).Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Stop blocked on a loop that was never started")
		}
	})
}

func TestLoopRejectsBadSchedule(t *testing.T) {
	w, _, cleanup := setupTestWorker(t)
	defer cleanup()

	w.config.CleanupSchedule = "not a schedule"
	loop := NewLoop(w)
	assert.Error(t, loop.Start(context.Background()))
}
