// Package exporter copies the full contents of the synced business
// tables from the local store to a remote Postgres database, creating
// or extending remote tables as needed.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tillworks/cloudsync/internal/checksum"
	"github.com/tillworks/cloudsync/internal/entities"
	"github.com/tillworks/cloudsync/internal/localstore"
	"github.com/tillworks/cloudsync/internal/remote"
	"github.com/tillworks/cloudsync/internal/tableset"
)

// Options tunes an Exporter. Zero values fall back to defaults.
type Options struct {
	BatchSize        int
	ConnectTimeout   time.Duration
	StatementTimeout time.Duration
}

const (
	defaultBatchSize        = 100
	defaultConnectTimeout   = 10 * time.Second
	defaultStatementTimeout = 30 * time.Second
)

func (o *Options) applyDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.StatementTimeout <= 0 {
		o.StatementTimeout = defaultStatementTimeout
	}
}

// Exporter pushes local tables to a remote database.
type Exporter struct {
	local *localstore.Store
	opts  Options
}

// New creates an Exporter over the local store.
func New(local *localstore.Store, opts Options) *Exporter {
	opts.applyDefaults()
	return &Exporter{local: local, opts: opts}
}

// Export runs a full export. The advisory lock scoped to the connection
// string is held for the whole run; the remote is mutated inside a
// single transaction with per-row savepoints for fault isolation.
func (e *Exporter) Export(ctx context.Context, connString string, dryRun bool) (*entities.ExportResult, error) {
	start := time.Now()

	client, err := remote.Connect(ctx, connString, e.opts.ConnectTimeout, e.opts.StatementTimeout)
	if err != nil {
		return nil, err
	}

	if err := client.TryLock(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, err
	}

	tx, err := client.Begin(ctx)
	if err != nil {
		e.releaseRemote(ctx, client)
		return nil, err
	}

	result := &entities.ExportResult{DryRun: dryRun}
	sums := make(map[string]string, len(tableset.Tables))

	for _, table := range tableset.Tables {
		tr, tableErr := e.exportTable(ctx, tx, table, dryRun)
		if tableErr != nil {
			_ = tx.Rollback(ctx)
			e.releaseRemote(ctx, client)
			return nil, fmt.Errorf("export of %s failed: %w", table, tableErr)
		}
		result.Tables = append(result.Tables, tr)
		result.TotalRows += tr.Rows
		result.TotalExported += tr.Inserted + tr.Updated
		result.TotalErrors += tr.Errors
		sums[table] = tr.Checksum
		log.Printf("Export: %s rows=%d inserted=%d updated=%d errors=%d", table, tr.Rows, tr.Inserted, tr.Updated, tr.Errors)
	}

	if err := tx.Commit(ctx); err != nil {
		e.releaseRemote(ctx, client)
		return nil, fmt.Errorf("failed to commit export: %w", err)
	}
	e.releaseRemote(ctx, client)

	result.Checksum = checksum.Overall(tableset.Tables, sums)
	result.DurationMs = time.Since(start).Milliseconds()
	result.CompletedAt = time.Now()
	return result, nil
}

// releaseRemote best-effort unlocks and closes the session. Used on
// both success and failure paths so the advisory lock is never left
// held.
func (e *Exporter) releaseRemote(ctx context.Context, client *remote.Client) {
	if err := client.Unlock(ctx); err != nil {
		log.Printf("Export: failed to release advisory lock: %v", err)
	}
	if err := client.Close(ctx); err != nil {
		log.Printf("Export: failed to close remote connection: %v", err)
	}
}

func (e *Exporter) exportTable(ctx context.Context, tx pgx.Tx, table string, dryRun bool) (entities.TableResult, error) {
	tr := entities.TableResult{Table: table}

	cols, err := e.local.Columns(table)
	if errors.Is(err, localstore.ErrUnknownTable) {
		// Absent locally counts as zero rows, not an error.
		tr.Checksum = checksum.Table(nil)
		return tr, nil
	}
	if err != nil {
		return tr, err
	}

	rows, err := e.local.AllRows(table)
	if err != nil {
		return tr, err
	}
	tr.Rows = len(rows)
	tr.Checksum = checksum.Table(rows)

	if dryRun {
		return tr, nil
	}

	// Schema reconciliation runs under its own savepoint: a failure
	// skips this table with a warning instead of aborting the run.
	sp := "sp_schema_" + table
	if err := remote.Savepoint(ctx, tx, sp); err != nil {
		return tr, fmt.Errorf("failed to create savepoint: %w", err)
	}
	if err := e.reconcileSchema(ctx, tx, table, cols); err != nil {
		if rbErr := remote.RollbackTo(ctx, tx, sp); rbErr != nil {
			return tr, fmt.Errorf("failed to roll back to savepoint after schema error %v: %w", err, rbErr)
		}
		log.Printf("Export: skipping %s, schema reconciliation failed: %v", table, err)
		tr.AddError(fmt.Sprintf("schema: %v", err))
		return tr, nil
	}
	if err := remote.ReleaseSavepoint(ctx, tx, sp); err != nil {
		return tr, fmt.Errorf("failed to release savepoint: %w", err)
	}

	colNames := make([]string, len(cols))
	for i, c := range cols {
		colNames[i] = c.Name
	}

	for batchStart := 0; batchStart < len(rows); batchStart += e.opts.BatchSize {
		batchEnd := batchStart + e.opts.BatchSize
		if batchEnd > len(rows) {
			batchEnd = len(rows)
		}
		for i := batchStart; i < batchEnd; i++ {
			if err := e.exportRow(ctx, tx, table, cols, colNames, rows[i], i, &tr); err != nil {
				return tr, err
			}
		}
	}

	return tr, nil
}

// exportRow pushes one row under its own savepoint. A row failure rolls
// back to the savepoint and is counted; only savepoint mechanics
// failures propagate (they mean the transaction itself is gone).
func (e *Exporter) exportRow(ctx context.Context, tx pgx.Tx, table string, cols []localstore.Column, colNames []string, row map[string]any, index int, tr *entities.TableResult) error {
	if err := tableset.ValidateRow(table, row); err != nil {
		tr.AddError(fmt.Sprintf("row %d: %v", index, err))
		return nil
	}

	values := make([]any, len(cols))
	for i, col := range cols {
		values[i] = tableset.ToRemoteValue(col.Name, col.Type, row[col.Name])
	}

	// Savepoint name is unique per table and row index.
	sp := fmt.Sprintf("sp_%s_%d", table, index)
	if err := remote.Savepoint(ctx, tx, sp); err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}

	inserted, err := remote.UpsertRow(ctx, tx, table, colNames, values)
	if err != nil {
		if rbErr := remote.RollbackTo(ctx, tx, sp); rbErr != nil {
			return fmt.Errorf("failed to roll back to savepoint after row error %v: %w", err, rbErr)
		}
		tr.AddError(fmt.Sprintf("row %d: %v", index, err))
		return nil
	}

	if err := remote.ReleaseSavepoint(ctx, tx, sp); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}

	if inserted {
		tr.Inserted++
	} else {
		tr.Updated++
	}
	return nil
}

// reconcileSchema creates the remote table from the local column list
// or adds any missing columns, never touching existing ones.
func (e *Exporter) reconcileSchema(ctx context.Context, tx pgx.Tx, table string, cols []localstore.Column) error {
	specs := make([]remote.ColumnSpec, len(cols))
	for i, c := range cols {
		specs[i] = remote.ColumnSpec{Name: c.Name, PgType: tableset.PostgresType(c.Name, c.Type)}
	}

	exists, err := remote.TableExistsTx(ctx, tx, table)
	if err != nil {
		return err
	}
	if !exists {
		return remote.CreateTable(ctx, tx, table, specs)
	}

	existing, err := remote.ColumnNames(ctx, tx, table)
	if err != nil {
		return err
	}
	return remote.AddMissingColumns(ctx, tx, table, specs, existing)
}
