// Package importer copies rows from the remote database back into the
// local store, applying a conflict-resolution strategy per row. The
// local schema is authoritative for shape: tables absent locally are
// skipped, never created.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/tillworks/cloudsync/internal/checksum"
	"github.com/tillworks/cloudsync/internal/entities"
	"github.com/tillworks/cloudsync/internal/localstore"
	"github.com/tillworks/cloudsync/internal/remote"
	"github.com/tillworks/cloudsync/internal/tableset"
)

var ErrInvalidStrategy = errors.New("invalid conflict strategy")

// Options tunes an Importer. Zero values fall back to defaults.
type Options struct {
	BatchSize        int
	BackupDir        string
	ConnectTimeout   time.Duration
	StatementTimeout time.Duration
}

const (
	defaultBatchSize        = 100
	defaultBackupDir        = "./backups"
	defaultConnectTimeout   = 10 * time.Second
	defaultStatementTimeout = 30 * time.Second
)

func (o *Options) applyDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.BackupDir == "" {
		o.BackupDir = defaultBackupDir
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.StatementTimeout <= 0 {
		o.StatementTimeout = defaultStatementTimeout
	}
}

// Importer pulls remote tables into the local store.
type Importer struct {
	local *localstore.Store
	opts  Options
}

// New creates an Importer over the local store.
func New(local *localstore.Store, opts Options) *Importer {
	opts.applyDefaults()
	return &Importer{local: local, opts: opts}
}

// Import runs a full import with the given strategy. Unless dryRun, a
// timestamped backup of the local database is taken first (best effort:
// a backup failure is logged and the import proceeds), and all local
// mutations happen inside a single transaction.
func (i *Importer) Import(ctx context.Context, connString string, strategy entities.ConflictStrategy, dryRun, createBackupFirst bool) (*entities.ImportResult, error) {
	if !strategy.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStrategy, strategy)
	}

	start := time.Now()
	result := &entities.ImportResult{Strategy: strategy, DryRun: dryRun}

	if createBackupFirst && !dryRun {
		path, err := i.local.BackupTo(i.opts.BackupDir)
		if err != nil {
			// A failed backup does not block the import.
			log.Printf("Import: WARNING: pre-import backup failed, continuing without one: %v", err)
		} else {
			result.BackupPath = path
		}
	}

	client, err := remote.Connect(ctx, connString, i.opts.ConnectTimeout, i.opts.StatementTimeout)
	if err != nil {
		return nil, err
	}

	if err := client.TryLock(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, err
	}

	remoteTables, warnings, err := i.checkSchema(ctx, client)
	if err != nil {
		i.releaseRemote(ctx, client)
		return nil, err
	}
	result.Warnings = warnings

	var tx *gorm.DB
	if !dryRun {
		tx = i.local.Begin()
		if tx.Error != nil {
			i.releaseRemote(ctx, client)
			return nil, fmt.Errorf("failed to begin local transaction: %w", tx.Error)
		}
	}

	sums := make(map[string]string, len(tableset.Tables))
	for _, table := range tableset.Tables {
		tr, tableErr := i.importTable(ctx, client, tx, table, strategy, dryRun, remoteTables[table])
		if tableErr != nil {
			if tx != nil {
				_ = tx.Rollback().Error
			}
			i.releaseRemote(ctx, client)
			return nil, fmt.Errorf("import of %s failed: %w", table, tableErr)
		}
		result.Tables = append(result.Tables, tr)
		result.TotalRows += tr.Rows
		result.TotalImported += tr.Inserted + tr.Updated
		result.TotalSkipped += tr.Skipped
		result.TotalErrors += tr.Errors
		sums[table] = tr.Checksum
		log.Printf("Import: %s rows=%d inserted=%d updated=%d skipped=%d errors=%d", table, tr.Rows, tr.Inserted, tr.Updated, tr.Skipped, tr.Errors)
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			i.releaseRemote(ctx, client)
			return nil, fmt.Errorf("failed to commit import: %w", err)
		}
	}
	i.releaseRemote(ctx, client)

	result.Checksum = checksum.Overall(tableset.Tables, sums)
	result.DurationMs = time.Since(start).Milliseconds()
	result.CompletedAt = time.Now()
	return result, nil
}

func (i *Importer) releaseRemote(ctx context.Context, client *remote.Client) {
	if err := client.Unlock(ctx); err != nil {
		log.Printf("Import: failed to release advisory lock: %v", err)
	}
	if err := client.Close(ctx); err != nil {
		log.Printf("Import: failed to close remote connection: %v", err)
	}
}

// checkSchema runs the lightweight pre-import compatibility check.
// Findings are warnings, not failures; tables absent remotely are
// skipped during the run.
func (i *Importer) checkSchema(ctx context.Context, client *remote.Client) (map[string]bool, []string, error) {
	remoteTables := make(map[string]bool, len(tableset.Tables))
	var warnings []string

	for _, table := range tableset.Tables {
		exists, err := client.TableExists(ctx, table)
		if err != nil {
			return nil, nil, err
		}
		remoteTables[table] = exists
		if !exists {
			warnings = append(warnings, fmt.Sprintf("table %s missing remotely; it will be skipped", table))
			continue
		}
		if !i.local.HasTable(table) {
			warnings = append(warnings, fmt.Sprintf("table %s missing locally; rows cannot be imported", table))
		}
	}

	for _, w := range warnings {
		log.Printf("Import: schema check: %s", w)
	}
	return remoteTables, warnings, nil
}

func (i *Importer) importTable(ctx context.Context, client *remote.Client, tx *gorm.DB, table string, strategy entities.ConflictStrategy, dryRun, remoteExists bool) (entities.TableResult, error) {
	tr := entities.TableResult{Table: table}

	if !remoteExists {
		tr.Checksum = checksum.NotFound
		return tr, nil
	}

	rows, err := client.AllRows(ctx, table)
	if err != nil {
		// Treat a failing remote read as "table absent": skip with a
		// warning rather than aborting the run.
		log.Printf("Import: skipping %s, remote read failed: %v", table, err)
		tr.Checksum = checksum.NotFound
		return tr, nil
	}
	tr.Rows = len(rows)
	tr.Checksum = checksum.Table(rows)

	if dryRun {
		return tr, nil
	}

	if !i.local.HasTable(table) {
		log.Printf("Import: skipping %s, table does not exist locally", table)
		return tr, nil
	}

	cols, err := i.local.Columns(table)
	if err != nil {
		return tr, err
	}
	colTypes := make(map[string]string, len(cols))
	for _, c := range cols {
		colTypes[c.Name] = c.Type
	}

	for batchStart := 0; batchStart < len(rows); batchStart += i.opts.BatchSize {
		batchEnd := batchStart + i.opts.BatchSize
		if batchEnd > len(rows) {
			batchEnd = len(rows)
		}
		for idx := batchStart; idx < batchEnd; idx++ {
			i.importRow(tx, table, colTypes, rows[idx], strategy, &tr)
		}
	}

	return tr, nil
}

// importRow applies the strategy to one remote row. All insert/update
// errors are caught here, counted and sampled; nothing propagates past
// the row.
func (i *Importer) importRow(tx *gorm.DB, table string, colTypes map[string]string, remoteRow map[string]any, strategy entities.ConflictStrategy, tr *entities.TableResult) {
	id, ok := remoteRow[tableset.IDColumn]
	if !ok || id == nil {
		// Rows without an id are skipped, not errored.
		tr.Skipped++
		return
	}

	// Convert to local representation, dropping columns the local
	// schema does not have.
	converted := make(map[string]any, len(remoteRow))
	for name, value := range remoteRow {
		declType, exists := colTypes[name]
		if !exists {
			continue
		}
		converted[name] = tableset.ToLocalValue(name, declType, value)
	}

	existing, err := i.local.RowByID(tx, table, converted[tableset.IDColumn])
	if err != nil {
		tr.AddError(fmt.Sprintf("row %v: %v", id, err))
		return
	}

	if existing == nil {
		if err := i.local.InsertRow(tx, table, converted); err != nil {
			tr.AddError(fmt.Sprintf("row %v: %v", id, err))
			return
		}
		tr.Inserted++
		return
	}

	updates, skip := resolveConflict(strategy, existing, converted)
	if skip {
		tr.Skipped++
		return
	}

	if err := i.local.UpdateRow(tx, table, converted[tableset.IDColumn], updates); err != nil {
		tr.AddError(fmt.Sprintf("row %v: %v", id, err))
		return
	}
	tr.Updated++
}
