package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		Database
		Backup
		Sync
		Worker
	}

	Database struct {
		Path string
	}
	Backup struct {
		Dir string
	}
	Sync struct {
		BatchSize        int
		ConnectTimeout   time.Duration
		StatementTimeout time.Duration
	}
	Worker struct {
		PollInterval    time.Duration
		JobDelay        time.Duration
		RetentionDays   int
		CleanupSchedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("backup_dir", DefaultBackupDir)

	// Sync defaults
	v.SetDefault("sync_batch_size", 100)
	v.SetDefault("sync_connect_timeout", "10s")
	v.SetDefault("sync_statement_timeout", "30s")

	// Worker defaults
	v.SetDefault("worker_poll_interval", "10s")
	v.SetDefault("worker_job_delay", "500ms")
	v.SetDefault("worker_retention_days", 30)
	v.SetDefault("worker_cleanup_schedule", "0 3 * * *") // Daily at 03:00

	return &Config{
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Backup: Backup{
			Dir: v.GetString("BACKUP_DIR"),
		},
		Sync: Sync{
			BatchSize:        v.GetInt("SYNC_BATCH_SIZE"),
			ConnectTimeout:   v.GetDuration("SYNC_CONNECT_TIMEOUT"),
			StatementTimeout: v.GetDuration("SYNC_STATEMENT_TIMEOUT"),
		},
		Worker: Worker{
			PollInterval:    v.GetDuration("WORKER_POLL_INTERVAL"),
			JobDelay:        v.GetDuration("WORKER_JOB_DELAY"),
			RetentionDays:   v.GetInt("WORKER_RETENTION_DAYS"),
			CleanupSchedule: v.GetString("WORKER_CLEANUP_SCHEDULE"),
		},
	}
}
