package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// AllRows reads every row of a remote table ordered by id, as column
// maps.
func (c *Client) AllRows(ctx context.Context, table string) ([]map[string]any, error) {
	return allRows(ctx, c.conn, table)
}

// AllRowsTx is AllRows inside an open transaction.
func AllRowsTx(ctx context.Context, tx pgx.Tx, table string) ([]map[string]any, error) {
	return allRows(ctx, tx, table)
}

func allRows(ctx context.Context, q querier, table string) ([]map[string]any, error) {
	rows, err := q.Query(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY id", pgx.Identifier{table}.Sanitize()))
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %s: %w", table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var result []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row of %s: %w", table, err)
		}
		row := make(map[string]any, len(fields))
		for i, field := range fields {
			row[string(field.Name)] = values[i]
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// CountRows counts a remote table's rows, returning -1 when the table
// is absent.
func (c *Client) CountRows(ctx context.Context, table string) (int64, error) {
	exists, err := c.TableExists(ctx, table)
	if err != nil {
		return 0, err
	}
	if !exists {
		return -1, nil
	}

	var count int64
	err = c.conn.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", pgx.Identifier{table}.Sanitize())).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", table, err)
	}
	return count, nil
}

// UpsertRow inserts a row by primary key, updating all non-key columns
// on conflict. Reports whether the row was inserted (true) or updated
// (false); xmax = 0 only holds for freshly inserted tuples.
func UpsertRow(ctx context.Context, tx pgx.Tx, table string, columns []string, values []any) (bool, error) {
	colIdents := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	var updates []string
	for i, col := range columns {
		colIdents[i] = pgx.Identifier{col}.Sanitize()
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if col != "id" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", colIdents[i], colIdents[i]))
		}
	}

	var stmt string
	if len(updates) == 0 {
		stmt = fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id RETURNING (xmax = 0)",
			pgx.Identifier{table}.Sanitize(),
			strings.Join(colIdents, ", "),
			strings.Join(placeholders, ", "))
	} else {
		stmt = fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s RETURNING (xmax = 0)",
			pgx.Identifier{table}.Sanitize(),
			strings.Join(colIdents, ", "),
			strings.Join(placeholders, ", "),
			strings.Join(updates, ", "))
	}

	var inserted bool
	if err := tx.QueryRow(ctx, stmt, values...).Scan(&inserted); err != nil {
		return false, err
	}
	return inserted, nil
}
