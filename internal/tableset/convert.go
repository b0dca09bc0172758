package tableset

import (
	"strconv"
	"strings"
	"time"
)

// ToRemoteValue converts a locally stored value into the representation
// the remote column expects: epoch-millisecond or ISO timestamps become
// time values for timestamp columns, and flag columns are coerced to
// real booleans.
func ToRemoteValue(name, declaredType string, v any) any {
	if v == nil {
		return nil
	}

	if IsTimestampColumn(name, declaredType) {
		if ts, ok := toTime(v); ok {
			return ts
		}
		return v
	}

	if IsBooleanColumn(name, declaredType) {
		return toBool(v)
	}

	return v
}

// ToLocalValue converts a remote value back into the local sqlite
// representation: timestamps become epoch milliseconds and booleans
// become 0/1 integers.
func ToLocalValue(name, declaredType string, v any) any {
	if v == nil {
		return nil
	}

	if ts, ok := v.(time.Time); ok {
		return ts.UTC().UnixMilli()
	}

	if b, ok := v.(bool); ok {
		if b {
			return int64(1)
		}
		return int64(0)
	}

	_ = name
	_ = declaredType
	return v
}

// EpochMillis canonicalizes any accepted timestamp representation
// (time value, epoch seconds or milliseconds, ISO string) to epoch
// milliseconds. Reports false for values that are not timestamps.
func EpochMillis(v any) (int64, bool) {
	ts, ok := toTime(v)
	if !ok {
		return 0, false
	}
	return ts.UTC().UnixMilli(), true
}

// IsEmpty reports whether a value counts as "empty" for the merge
// strategy: NULL, empty string, or a zero-length blob. Numeric zero is
// a value, not empty.
func IsEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []byte:
		return len(val) == 0
	default:
		return false
	}
}

func toTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case int64:
		return fromEpoch(val), true
	case int:
		return fromEpoch(int64(val)), true
	case float64:
		return fromEpoch(int64(val)), true
	case string:
		if val == "" {
			return time.Time{}, false
		}
		if ts, err := time.Parse(time.RFC3339, val); err == nil {
			return ts, true
		}
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return fromEpoch(n), true
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// fromEpoch interprets values above 1e11 as epoch milliseconds and
// smaller ones as epoch seconds, matching how the local store writes
// timestamps.
func fromEpoch(n int64) time.Time {
	if n > 100_000_000_000 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

func toBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case int64:
		return val != 0
	case int:
		return val != 0
	case float64:
		return val != 0
	case string:
		lower := strings.ToLower(val)
		return lower == "1" || lower == "true" || lower == "yes"
	default:
		return false
	}
}
