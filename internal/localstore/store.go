// Package localstore wraps the embedded sqlite database behind an
// explicit handle with generic row-level operations. The sync engine
// never depends on the business schema directly: it enumerates columns
// at runtime and moves rows as ordered maps.
package localstore

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tillworks/cloudsync/internal/entities"
)

var ErrUnknownTable = errors.New("unknown table")

// Column describes one column of a local table as reported by sqlite.
type Column struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}

// Store is an explicit handle on the local database. Reopen swaps the
// underlying connection in place (after a restore); callers holding the
// Store see the new connection on their next call.
type Store struct {
	mu   sync.RWMutex
	db   *gorm.DB
	path string
}

// Open opens (or creates) the local database and migrates the sync
// engine's own tables. The business schema is owned by the host
// application and is never created here.
func Open(path string) (*Store, error) {
	db, err := openGorm(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func openGorm(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&entities.CloudConnection{}, &entities.SyncJob{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sync schema: %w", err)
	}
	return db, nil
}

// DB returns the current gorm handle.
func (s *Store) DB() *gorm.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// Path returns the database file path.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// Reopen closes the current connection and opens the given path,
// swapping the handle in place.
func (s *Store) Reopen(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	db, err := openGorm(path)
	if err != nil {
		return err
	}

	s.db = db
	s.path = path
	log.Printf("Local store: reopened at %s", path)
	return nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HasTable reports whether a table exists locally.
func (s *Store) HasTable(table string) bool {
	return s.DB().Migrator().HasTable(table)
}

// Columns enumerates a table's columns via sqlite's table_info pragma,
// in declaration order. Returns ErrUnknownTable for absent tables.
func (s *Store) Columns(table string) ([]Column, error) {
	if !s.HasTable(table) {
		return nil, ErrUnknownTable
	}

	type tableInfo struct {
		Name    string `gorm:"column:name"`
		Type    string `gorm:"column:type"`
		NotNull int    `gorm:"column:notnull"`
		Pk      int    `gorm:"column:pk"`
	}

	var infos []tableInfo
	err := s.DB().Raw("PRAGMA table_info(" + quoteIdent(table) + ")").Scan(&infos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}

	cols := make([]Column, 0, len(infos))
	for _, info := range infos {
		cols = append(cols, Column{
			Name:       info.Name,
			Type:       info.Type,
			NotNull:    info.NotNull != 0,
			PrimaryKey: info.Pk != 0,
		})
	}
	return cols, nil
}

// AllRows reads every row of a table as ordered maps. Rows are ordered
// by id when the table has one, so checksums are deterministic.
func (s *Store) AllRows(table string) ([]map[string]any, error) {
	cols, err := s.Columns(table)
	if err != nil {
		return nil, err
	}

	query := s.DB().Table(table)
	if hasColumn(cols, "id") {
		query = query.Order("id")
	}

	var rows []map[string]any
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read rows of %s: %w", table, err)
	}
	return rows, nil
}

// CountRows returns the number of rows in a table, or -1 if the table
// is absent.
func (s *Store) CountRows(table string) (int64, error) {
	if !s.HasTable(table) {
		return -1, nil
	}
	var count int64
	if err := s.DB().Table(table).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", table, err)
	}
	return count, nil
}

// RowByID fetches a single row by primary key. Returns nil when absent.
func (s *Store) RowByID(tx *gorm.DB, table string, id any) (map[string]any, error) {
	var rows []map[string]any
	err := tx.Table(table).Where("id = ?", id).Limit(1).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read %s row: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// InsertRow inserts a row from a column map.
func (s *Store) InsertRow(tx *gorm.DB, table string, row map[string]any) error {
	return tx.Table(table).Create(row).Error
}

// UpdateRow updates a row's columns by primary key.
func (s *Store) UpdateRow(tx *gorm.DB, table string, id any, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	return tx.Table(table).Where("id = ?", id).Updates(values).Error
}

// Begin starts an explicit transaction on the current handle.
func (s *Store) Begin() *gorm.DB {
	return s.DB().Begin()
}

func hasColumn(cols []Column, name string) bool {
	for _, c := range cols {
		if c.Name == name {
			return true
		}
	}
	return false
}

// quoteIdent wraps an identifier in double quotes, stripping any
// embedded quotes. Only used for raw statements (PRAGMA); gorm's
// Table() quotes identifiers itself and must get the bare name.
func quoteIdent(name string) string {
	clean := ""
	for _, r := range name {
		if r != '"' {
			clean += string(r)
		}
	}
	return `"` + clean + `"`
}
