package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tillworks/cloudsync/internal/tableset"
)

// ColumnSpec describes one column when creating or extending a remote
// table.
type ColumnSpec struct {
	Name   string
	PgType string
}

// TableExists checks the remote catalog for a table in the current
// schema search path.
func (c *Client) TableExists(ctx context.Context, table string) (bool, error) {
	return tableExists(ctx, c.conn, table)
}

// TableExistsTx is TableExists inside an open transaction, so tables
// created earlier in the run are visible.
func TableExistsTx(ctx context.Context, tx pgx.Tx, table string) (bool, error) {
	return tableExists(ctx, tx, table)
}

func tableExists(ctx context.Context, q querier, table string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)`, table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return exists, nil
}

// ColumnNames returns the remote table's columns in ordinal order.
func ColumnNames(ctx context.Context, tx pgx.Tx, table string) ([]string, error) {
	rows, err := tx.Query(ctx,
		`SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CreateTable creates a remote table from the mapped column specs. The
// id column is always the primary key.
func CreateTable(ctx context.Context, tx pgx.Tx, table string, cols []ColumnSpec) error {
	defs := make([]string, 0, len(cols))
	for _, col := range cols {
		def := pgx.Identifier{col.Name}.Sanitize() + " " + col.PgType
		if col.Name == tableset.IDColumn {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
	}

	stmt := fmt.Sprintf("CREATE TABLE %s (%s)",
		pgx.Identifier{table}.Sanitize(), strings.Join(defs, ", "))
	if _, err := tx.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return nil
}

// AddMissingColumns adds any columns absent remotely. Existing columns
// are never altered and the primary key constraint is never re-added.
func AddMissingColumns(ctx context.Context, tx pgx.Tx, table string, cols []ColumnSpec, existing []string) error {
	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}

	for _, col := range cols {
		if present[col.Name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
			pgx.Identifier{table}.Sanitize(), pgx.Identifier{col.Name}.Sanitize(), col.PgType)
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to add column %s.%s: %w", table, col.Name, err)
		}
	}
	return nil
}
