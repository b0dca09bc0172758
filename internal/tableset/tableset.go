// Package tableset defines the business tables covered by cloud sync.
//
// The table list is hand-maintained in dependency order: referencing
// tables follow their referenced tables. Import replays tables in this
// order to avoid foreign-key violations, and export creates remote
// tables in the same order. Do not sort it.
package tableset

import (
	"fmt"
	"strings"
)

// IDColumn is the primary key column shared by every synced table.
const IDColumn = "id"

// Tables is the fixed, dependency-ordered set of synced tables.
var Tables = []string{
	"categories",
	"colors",
	"products",
	"product_variants",
	"customers",
	"sales",
	"sale_items",
	"returns",
	"return_items",
	"stock_movements",
	"app_settings",
}

// requiredFields lists the minimal columns a row must carry to be worth
// exporting. A row missing one is counted as an error, not exported.
var requiredFields = map[string][]string{
	"categories":       {"name"},
	"colors":           {"name"},
	"products":         {"name"},
	"product_variants": {"product_id"},
	"customers":        {"name"},
	"sales":            {"invoice_no"},
	"sale_items":       {"sale_id", "variant_id"},
	"returns":          {"sale_id"},
	"return_items":     {"return_id", "sale_item_id"},
	"stock_movements":  {"variant_id"},
	"app_settings":     {"key"},
}

// Contains reports whether name is a synced table.
func Contains(name string) bool {
	for _, t := range Tables {
		if t == name {
			return true
		}
	}
	return false
}

// RequiredFields returns the minimal required columns for a table.
func RequiredFields(table string) []string {
	return requiredFields[table]
}

// ValidateRow checks the per-table required fields. An empty string or
// NULL in a required column fails validation.
func ValidateRow(table string, row map[string]any) error {
	for _, field := range requiredFields[table] {
		v, ok := row[field]
		if !ok || v == nil {
			return fmt.Errorf("missing required field %q", field)
		}
		if s, isStr := v.(string); isStr && s == "" {
			return fmt.Errorf("missing required field %q", field)
		}
	}
	return nil
}

// IsTimestampColumn reports whether a column holds a point in time,
// judged by naming convention and declared type. This convention table
// is the single place "magic naming" substitutes for a type system;
// keep it centralized.
func IsTimestampColumn(name, declaredType string) bool {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, "_at") || strings.HasSuffix(lower, "_date") {
		return true
	}
	t := strings.ToUpper(declaredType)
	return strings.Contains(t, "DATE") || strings.Contains(t, "TIME")
}

// IsBooleanColumn reports whether a column holds a flag, judged by
// naming convention and declared type.
func IsBooleanColumn(name, declaredType string) bool {
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "is_") || strings.HasPrefix(lower, "has_") {
		return true
	}
	return strings.Contains(strings.ToUpper(declaredType), "BOOL")
}

// PostgresType maps a sqlite column to a Postgres column type. The
// mapping is heuristic: sqlite declared types are advisory, so naming
// conventions take precedence for timestamps and booleans.
func PostgresType(name, declaredType string) string {
	if name == IDColumn {
		return "BIGINT"
	}
	if IsTimestampColumn(name, declaredType) {
		return "TIMESTAMPTZ"
	}
	if IsBooleanColumn(name, declaredType) {
		return "BOOLEAN"
	}

	t := strings.ToUpper(declaredType)
	switch {
	case strings.Contains(t, "INT"):
		return "BIGINT"
	case strings.Contains(t, "REAL") || strings.Contains(t, "FLOA") || strings.Contains(t, "DOUB"):
		return "DOUBLE PRECISION"
	case strings.Contains(t, "BLOB"):
		return "BYTEA"
	case strings.Contains(t, "NUMERIC") || strings.Contains(t, "DECIMAL"):
		return "NUMERIC"
	default:
		return "TEXT"
	}
}
