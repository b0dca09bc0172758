package importer

import (
	"time"

	"github.com/tillworks/cloudsync/internal/entities"
	"github.com/tillworks/cloudsync/internal/tableset"
)

// resolveConflict decides what to do with a row that exists on both
// sides. Returns the column updates to apply, or skip=true to leave the
// local row untouched.
func resolveConflict(strategy entities.ConflictStrategy, local, remote map[string]any) (updates map[string]any, skip bool) {
	switch strategy {
	case entities.StrategySkip:
		return nil, true

	case entities.StrategyOverwrite:
		return nonKeyColumns(remote), false

	case entities.StrategyMerge:
		updates = make(map[string]any)
		for name, remoteVal := range remote {
			if name == tableset.IDColumn {
				continue
			}
			if tableset.IsEmpty(local[name]) && !tableset.IsEmpty(remoteVal) {
				updates[name] = remoteVal
			}
		}
		if len(updates) == 0 {
			return nil, true
		}
		return updates, false

	case entities.StrategyNewest:
		if modifiedAt(remote) > modifiedAt(local) {
			return nonKeyColumns(remote), false
		}
		return nil, true

	default:
		return nil, true
	}
}

func nonKeyColumns(row map[string]any) map[string]any {
	updates := make(map[string]any, len(row))
	for name, value := range row {
		if name == tableset.IDColumn {
			continue
		}
		updates[name] = value
	}
	return updates
}

// modifiedAt extracts a row's last-modified time as epoch milliseconds,
// preferring updated_at and falling back to created_at. A row missing
// both is treated as older than anything.
func modifiedAt(row map[string]any) int64 {
	for _, field := range []string{"updated_at", "created_at"} {
		if ts := asEpochMillis(row[field]); ts != 0 {
			return ts
		}
	}
	return 0
}

func asEpochMillis(v any) int64 {
	switch val := v.(type) {
	case nil:
		return 0
	case int64:
		return normalizeEpoch(val)
	case int:
		return normalizeEpoch(int64(val))
	case float64:
		return normalizeEpoch(int64(val))
	case time.Time:
		return val.UTC().UnixMilli()
	default:
		return 0
	}
}

// normalizeEpoch promotes epoch seconds to milliseconds so timestamps
// written in either precision compare correctly.
func normalizeEpoch(n int64) int64 {
	if n != 0 && n < 100_000_000_000 {
		return n * 1000
	}
	return n
}
