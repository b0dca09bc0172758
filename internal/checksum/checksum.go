// Package checksum computes deterministic content hashes over table rows
// so local and remote copies can be compared for drift.
//
// Row keys are sorted before hashing, so two semantically identical rows
// with different column ordering hash identically. Values are normalized
// to a representation both the sqlite and Postgres sides agree on
// (timestamps as epoch milliseconds, booleans as 0/1, NULL as empty).
// Columns named by the timestamp convention additionally canonicalize
// epoch-second and ISO-string values, which are legal in the local store.
package checksum

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tillworks/cloudsync/internal/tableset"
)

// NotFound is the sentinel checksum reported for a table that is absent
// on one side. It can never collide with a real hex digest.
const NotFound = "not_found"

// NormalizeValue converts a raw database value to its canonical string
// form for hashing.
func NormalizeValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case bool:
		if val {
			return "1"
		}
		return "0"
	case time.Time:
		return strconv.FormatInt(val.UTC().UnixMilli(), 10)
	case []byte:
		return base64.StdEncoding.EncodeToString(val)
	case string:
		return val
	case int:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case float64:
		// Whole floats normalize to their integer form so sqlite REAL
		// and Postgres bigint round-trips compare equal.
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		// Driver-specific types fall back to their printed form.
		return fmt.Sprintf("%v", val)
	}
}

// Row hashes a single row with its keys sorted.
func Row(row map[string]any) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(normalizeColumn(k, row[k]))
		b.WriteByte('\x1f')
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// normalizeColumn applies the column naming convention before the
// value-level normalization: timestamp-named columns canonicalize to
// epoch milliseconds whatever representation they were stored in.
func normalizeColumn(name string, v any) string {
	if v != nil && tableset.IsTimestampColumn(name, "") {
		if ms, ok := tableset.EpochMillis(v); ok {
			return strconv.FormatInt(ms, 10)
		}
	}
	return NormalizeValue(v)
}

// Table hashes an ordered set of rows. Callers must pass rows in a
// deterministic order (by id) for cross-side comparisons to hold.
func Table(rows []map[string]any) string {
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(Row(row))
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Overall hashes the concatenation of all per-table "table:checksum"
// strings in the given table order.
func Overall(tableOrder []string, checksums map[string]string) string {
	var b strings.Builder
	for _, t := range tableOrder {
		if sum, ok := checksums[t]; ok {
			b.WriteString(t)
			b.WriteByte(':')
			b.WriteString(sum)
			b.WriteByte('\n')
		}
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
