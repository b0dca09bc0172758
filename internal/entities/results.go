package entities

import (
	"time"
)

// TableResult accumulates per-table counters for one export or import run.
type TableResult struct {
	Table    string `json:"table"`
	Rows     int    `json:"rows"`
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
	Skipped  int    `json:"skipped"`
	Errors   int    `json:"errors"`

	// ErrorSamples keeps at most the first 10 row-level error messages.
	ErrorSamples []string `json:"error_samples,omitempty"`

	Checksum string `json:"checksum"`
}

// MaxErrorSamples bounds how many row-level error messages are retained
// per table.
const MaxErrorSamples = 10

// AddError counts a row-level error and samples its message.
func (r *TableResult) AddError(msg string) {
	r.Errors++
	if len(r.ErrorSamples) < MaxErrorSamples {
		r.ErrorSamples = append(r.ErrorSamples, msg)
	}
}

// ExportResult is the aggregate outcome of one export run. Stored
// serialized in the job's Details field.
type ExportResult struct {
	Tables        []TableResult `json:"tables"`
	TotalRows     int           `json:"total_rows"`
	TotalExported int           `json:"total_exported"`
	TotalErrors   int           `json:"total_errors"`
	Checksum      string        `json:"checksum"`
	DryRun        bool          `json:"dry_run"`
	DurationMs    int64         `json:"duration_ms"`
	CompletedAt   time.Time     `json:"completed_at"`
}

// ImportResult is the aggregate outcome of one import run.
type ImportResult struct {
	Tables        []TableResult    `json:"tables"`
	Strategy      ConflictStrategy `json:"strategy"`
	TotalRows     int              `json:"total_rows"`
	TotalImported int              `json:"total_imported"`
	TotalSkipped  int              `json:"total_skipped"`
	TotalErrors   int              `json:"total_errors"`
	Checksum      string           `json:"checksum"`
	DryRun        bool             `json:"dry_run"`

	// BackupPath is the pre-import backup file, empty if none was taken.
	BackupPath string `json:"backup_path,omitempty"`

	// Warnings carries non-fatal schema findings (missing tables etc).
	Warnings []string `json:"warnings,omitempty"`

	DurationMs  int64     `json:"duration_ms"`
	CompletedAt time.Time `json:"completed_at"`
}

// TableChecksumReport compares local and remote content checksums for
// one table.
type TableChecksumReport struct {
	Table          string `json:"table"`
	LocalChecksum  string `json:"local_checksum"`
	RemoteChecksum string `json:"remote_checksum"`
	Match          bool   `json:"match"`
}

// VerifyExportResult is the outcome of a read-only export verification.
type VerifyExportResult struct {
	Tables      []TableChecksumReport `json:"tables"`
	Mismatched  []string              `json:"mismatched,omitempty"`
	AllMatch    bool                  `json:"all_match"`
	CompletedAt time.Time             `json:"completed_at"`
}

// TableCountReport compares local and remote row counts for one table.
// A count of -1 means the table is absent on that side.
type TableCountReport struct {
	Table       string `json:"table"`
	LocalCount  int64  `json:"local_count"`
	RemoteCount int64  `json:"remote_count"`
	Match       bool   `json:"match"`
}

// VerifyImportResult is the outcome of a read-only import verification.
type VerifyImportResult struct {
	Tables      []TableCountReport `json:"tables"`
	Mismatched  []string           `json:"mismatched,omitempty"`
	AllMatch    bool               `json:"all_match"`
	CompletedAt time.Time          `json:"completed_at"`
}
