package importer

import (
	"context"
	"time"

	"github.com/tillworks/cloudsync/internal/entities"
	"github.com/tillworks/cloudsync/internal/remote"
	"github.com/tillworks/cloudsync/internal/tableset"
)

// VerifyImport compares per-table row counts between remote and local.
// Read-only; a count of -1 marks a table absent on that side.
func (i *Importer) VerifyImport(ctx context.Context, connString string) (*entities.VerifyImportResult, error) {
	client, err := remote.Connect(ctx, connString, i.opts.ConnectTimeout, i.opts.StatementTimeout)
	if err != nil {
		return nil, err
	}
	defer client.Close(ctx)

	result := &entities.VerifyImportResult{AllMatch: true}

	for _, table := range tableset.Tables {
		report := entities.TableCountReport{Table: table}

		report.RemoteCount, err = client.CountRows(ctx, table)
		if err != nil {
			return nil, err
		}
		report.LocalCount, err = i.local.CountRows(table)
		if err != nil {
			return nil, err
		}

		report.Match = report.LocalCount == report.RemoteCount
		if !report.Match {
			result.Mismatched = append(result.Mismatched, table)
			result.AllMatch = false
		}
		result.Tables = append(result.Tables, report)
	}

	result.CompletedAt = time.Now()
	return result, nil
}

// RestoreFromBackup overwrites the live local database with a backup
// file and reinitializes the local connection.
func (i *Importer) RestoreFromBackup(backupPath string) error {
	return i.local.RestoreFrom(backupPath)
}
