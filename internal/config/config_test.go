package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, DefaultBackupDir, cfg.Backup.Dir)
	assert.Equal(t, 100, cfg.Sync.BatchSize)
	assert.Equal(t, 10*time.Second, cfg.Sync.ConnectTimeout)
	assert.Equal(t, 30*time.Second, cfg.Sync.StatementTimeout)
	assert.Equal(t, 10*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.Worker.JobDelay)
	assert.Equal(t, 30, cfg.Worker.RetentionDays)
	assert.Equal(t, "0 3 * * *", cfg.Worker.CleanupSchedule)
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/data/pos.db")
	t.Setenv("SYNC_BATCH_SIZE", "250")
	t.Setenv("WORKER_POLL_INTERVAL", "2s")
	t.Setenv("WORKER_RETENTION_DAYS", "7")

	cfg := NewConfig()

	assert.Equal(t, "/data/pos.db", cfg.Database.Path)
	assert.Equal(t, 250, cfg.Sync.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, 7, cfg.Worker.RetentionDays)
}
