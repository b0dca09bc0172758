package exporter

import (
	"context"
	"time"

	"github.com/tillworks/cloudsync/internal/checksum"
	"github.com/tillworks/cloudsync/internal/entities"
	"github.com/tillworks/cloudsync/internal/remote"
	"github.com/tillworks/cloudsync/internal/tableset"
)

// VerifyExport recomputes per-table content checksums on both sides and
// reports mismatches. Read-only: no lock is taken and nothing is
// mutated. A table missing remotely reports the distinct "not_found"
// checksum instead of silently matching.
func (e *Exporter) VerifyExport(ctx context.Context, connString string) (*entities.VerifyExportResult, error) {
	client, err := remote.Connect(ctx, connString, e.opts.ConnectTimeout, e.opts.StatementTimeout)
	if err != nil {
		return nil, err
	}
	defer client.Close(ctx)

	result := &entities.VerifyExportResult{AllMatch: true}

	for _, table := range tableset.Tables {
		report := entities.TableChecksumReport{Table: table}

		if e.local.HasTable(table) {
			rows, err := e.local.AllRows(table)
			if err != nil {
				return nil, err
			}
			report.LocalChecksum = checksum.Table(rows)
		} else {
			report.LocalChecksum = checksum.NotFound
		}

		exists, err := client.TableExists(ctx, table)
		if err != nil {
			return nil, err
		}
		if exists {
			rows, err := client.AllRows(ctx, table)
			if err != nil {
				return nil, err
			}
			report.RemoteChecksum = checksum.Table(rows)
		} else {
			report.RemoteChecksum = checksum.NotFound
		}

		report.Match = report.LocalChecksum == report.RemoteChecksum
		if !report.Match {
			result.Mismatched = append(result.Mismatched, table)
			result.AllMatch = false
		}
		result.Tables = append(result.Tables, report)
	}

	result.CompletedAt = time.Now()
	return result, nil
}
