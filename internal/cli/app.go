// Package cli implements the cloudsync command line: a worker daemon
// plus one-shot sync and queue management commands. Every command
// drives the same engine the worker dispatches to.
package cli

import (
	"fmt"

	"github.com/tillworks/cloudsync/internal/config"
	"github.com/tillworks/cloudsync/internal/crypto"
	"github.com/tillworks/cloudsync/internal/exporter"
	"github.com/tillworks/cloudsync/internal/importer"
	"github.com/tillworks/cloudsync/internal/jobs"
	"github.com/tillworks/cloudsync/internal/localstore"
	"github.com/tillworks/cloudsync/internal/secrets"
	"github.com/tillworks/cloudsync/internal/worker"
)

// engine bundles the wired-up sync components behind one local store.
type engine struct {
	cfg      *config.Config
	store    *localstore.Store
	secrets  *secrets.Store
	jobs     *jobs.Repository
	exporter *exporter.Exporter
	importer *importer.Importer
	worker   *worker.Worker
}

// newEngine opens the local database and wires every component from
// config. An empty dbPath falls back to the configured default.
func newEngine(dbPath string) (*engine, error) {
	cfg := config.NewConfig()
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	store, err := localstore.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}

	encryptor, err := crypto.NewEncryptorFromEnv()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize encryption: %w", err)
	}

	secretStore := secrets.New(store.DB(), encryptor)
	jobsRepo := jobs.NewRepository(store.DB())

	exp := exporter.New(store, exporter.Options{
		BatchSize:        cfg.Sync.BatchSize,
		ConnectTimeout:   cfg.Sync.ConnectTimeout,
		StatementTimeout: cfg.Sync.StatementTimeout,
	})
	imp := importer.New(store, importer.Options{
		BatchSize:        cfg.Sync.BatchSize,
		BackupDir:        cfg.Backup.Dir,
		ConnectTimeout:   cfg.Sync.ConnectTimeout,
		StatementTimeout: cfg.Sync.StatementTimeout,
	})

	w := worker.New(jobsRepo, secretStore, exp, imp, worker.Config{
		PollInterval:    cfg.Worker.PollInterval,
		JobDelay:        cfg.Worker.JobDelay,
		RetentionDays:   cfg.Worker.RetentionDays,
		CleanupSchedule: cfg.Worker.CleanupSchedule,
	})

	return &engine{
		cfg:      cfg,
		store:    store,
		secrets:  secretStore,
		jobs:     jobsRepo,
		exporter: exp,
		importer: imp,
		worker:   w,
	}, nil
}

func (e *engine) Close() {
	_ = e.store.Close()
}

// resolveConnection fetches and decrypts a stored connection by id.
func (e *engine) resolveConnection(id string) (string, error) {
	conn, err := e.secrets.Get(id)
	if err != nil {
		return "", err
	}
	if conn == nil {
		return "", fmt.Errorf("connection %q not found or not decryptable", id)
	}
	return conn.ConnectionString, nil
}
