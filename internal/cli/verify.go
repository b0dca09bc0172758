package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
)

// VerifyExportCommand compares table checksums between the local and
// remote databases.
type VerifyExportCommand struct {
	DatabasePath string
	ConnectionID string
}

// NewVerifyExportCommand creates a new VerifyExportCommand
func NewVerifyExportCommand() *VerifyExportCommand {
	return &VerifyExportCommand{}
}

// ParseFlags parses command line flags
func (cmd *VerifyExportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("verify-export", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the local database file (default from DATABASE_PATH)")
	fs.StringVar(&cmd.ConnectionID, "connection", "", "Stored connection id to verify against (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s verify-export -connection <id> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Compare per-table checksums between the local and remote databases.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.ConnectionID == "" {
		fs.Usage()
		return fmt.Errorf("-connection is required")
	}
	return nil
}

// Run executes the verify-export command
func (cmd *VerifyExportCommand) Run() error {
	eng, err := newEngine(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer eng.Close()

	connString, err := eng.resolveConnection(cmd.ConnectionID)
	if err != nil {
		return err
	}

	result, err := eng.exporter.VerifyExport(context.Background(), connString)
	if err != nil {
		return err
	}

	for _, table := range result.Tables {
		status := "match"
		if !table.Match {
			status = "MISMATCH"
		}
		fmt.Printf("%-16s %s\n  local:  %s\n  remote: %s\n", table.Table, status, table.LocalChecksum, table.RemoteChecksum)
	}
	if result.AllMatch {
		fmt.Println("All tables match")
		return nil
	}
	return fmt.Errorf("%d table(s) differ: %v", len(result.Mismatched), result.Mismatched)
}

// VerifyImportCommand compares row counts between the local and remote
// databases.
type VerifyImportCommand struct {
	DatabasePath string
	ConnectionID string
}

// NewVerifyImportCommand creates a new VerifyImportCommand
func NewVerifyImportCommand() *VerifyImportCommand {
	return &VerifyImportCommand{}
}

// ParseFlags parses command line flags
func (cmd *VerifyImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("verify-import", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the local database file (default from DATABASE_PATH)")
	fs.StringVar(&cmd.ConnectionID, "connection", "", "Stored connection id to verify against (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s verify-import -connection <id> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Compare per-table row counts between the local and remote databases.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.ConnectionID == "" {
		fs.Usage()
		return fmt.Errorf("-connection is required")
	}
	return nil
}

// Run executes the verify-import command
func (cmd *VerifyImportCommand) Run() error {
	eng, err := newEngine(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer eng.Close()

	connString, err := eng.resolveConnection(cmd.ConnectionID)
	if err != nil {
		return err
	}

	result, err := eng.importer.VerifyImport(context.Background(), connString)
	if err != nil {
		return err
	}

	for _, table := range result.Tables {
		status := "match"
		if !table.Match {
			status = "MISMATCH"
		}
		fmt.Printf("%-16s %s (local %d, remote %d)\n", table.Table, status, table.LocalCount, table.RemoteCount)
	}
	if result.AllMatch {
		fmt.Println("All row counts match")
		return nil
	}
	return fmt.Errorf("%d table(s) differ: %v", len(result.Mismatched), result.Mismatched)
}

// RestoreCommand replaces the local database with a backup file.
type RestoreCommand struct {
	DatabasePath string
	BackupPath   string
}

// NewRestoreCommand creates a new RestoreCommand
func NewRestoreCommand() *RestoreCommand {
	return &RestoreCommand{}
}

// ParseFlags parses command line flags
func (cmd *RestoreCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the local database file (default from DATABASE_PATH)")
	fs.StringVar(&cmd.BackupPath, "backup", "", "Path to the backup file to restore (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s restore -backup <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Replace the local database with a backup file after an integrity check.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.BackupPath == "" {
		fs.Usage()
		return fmt.Errorf("-backup is required")
	}
	return nil
}

// Run executes the restore command
func (cmd *RestoreCommand) Run() error {
	eng, err := newEngine(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.importer.RestoreFromBackup(cmd.BackupPath); err != nil {
		return err
	}
	fmt.Printf("Restored local database from %s\n", cmd.BackupPath)
	return nil
}
