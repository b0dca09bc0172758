package localstore

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrBackupNotFound = errors.New("backup file does not exist")

// backupTimestampLayout names backup files by their creation time.
const backupTimestampLayout = "20060102-150405"

// BackupTo copies the live database file into dir under a timestamped
// name and returns the backup path.
func (s *Store) BackupTo(dir string) (string, error) {
	s.mu.RLock()
	srcPath := s.path
	s.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	base := filepath.Base(srcPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	dstPath := filepath.Join(dir, fmt.Sprintf("%s-backup-%s%s", name, time.Now().Format(backupTimestampLayout), ext))

	if err := copyFile(srcPath, dstPath); err != nil {
		return "", fmt.Errorf("failed to copy database to %s: %w", dstPath, err)
	}

	log.Printf("Local store: backup written to %s", dstPath)
	return dstPath, nil
}

// RestoreFrom overwrites the live database file with a backup and
// reopens the connection. The backup is integrity-checked before it
// replaces anything.
func (s *Store) RestoreFrom(backupPath string) error {
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		return ErrBackupNotFound
	}

	if err := verifyIntegrity(backupPath); err != nil {
		return fmt.Errorf("backup failed integrity check: %w", err)
	}

	s.mu.Lock()
	livePath := s.path
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		s.db = nil
	}
	s.mu.Unlock()

	if err := copyFile(backupPath, livePath); err != nil {
		return fmt.Errorf("failed to restore backup: %w", err)
	}

	return s.Reopen(livePath)
}

// verifyIntegrity opens the backup read-only and runs sqlite's
// integrity check so a truncated or corrupt file never replaces the
// live database.
func verifyIntegrity(path string) error {
	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check reported: %s", result)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
