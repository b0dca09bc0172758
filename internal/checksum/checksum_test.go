package checksum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeValue(t *testing.T) {
	t.Run("nil becomes empty string", func(t *testing.T) {
		assert.Equal(t, "", NormalizeValue(nil))
	})

	t.Run("booleans become 0 and 1", func(t *testing.T) {
		assert.Equal(t, "1", NormalizeValue(true))
		assert.Equal(t, "0", NormalizeValue(false))
	})

	t.Run("timestamps become epoch milliseconds", func(t *testing.T) {
		ts := time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)
		assert.Equal(t, "1742034600000", NormalizeValue(ts))
	})

	t.Run("timestamps normalize across zones", func(t *testing.T) {
		utc := time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)
		zone := time.FixedZone("plus2", 2*3600)
		assert.Equal(t, NormalizeValue(utc), NormalizeValue(utc.In(zone)))
	})

	t.Run("whole floats match integers", func(t *testing.T) {
		assert.Equal(t, NormalizeValue(int64(42)), NormalizeValue(float64(42)))
	})

	t.Run("fractional floats keep their fraction", func(t *testing.T) {
		assert.Equal(t, "42.5", NormalizeValue(float64(42.5)))
	})

	t.Run("blobs become base64", func(t *testing.T) {
		assert.Equal(t, "aGVsbG8=", NormalizeValue([]byte("hello")))
	})
}

func TestRow(t *testing.T) {
	t.Run("ignores key order", func(t *testing.T) {
		a := map[string]any{"id": int64(1), "name": "Widget", "price": 9.99}
		b := map[string]any{"price": 9.99, "id": int64(1), "name": "Widget"}
		assert.Equal(t, Row(a), Row(b))
	})

	t.Run("changes when a value changes", func(t *testing.T) {
		a := map[string]any{"id": int64(1), "name": "Widget"}
		b := map[string]any{"id": int64(1), "name": "Gadget"}
		assert.NotEqual(t, Row(a), Row(b))
	})

	t.Run("changes when a column is added", func(t *testing.T) {
		a := map[string]any{"id": int64(1)}
		b := map[string]any{"id": int64(1), "name": ""}
		assert.NotEqual(t, Row(a), Row(b))
	})

	t.Run("legal local timestamp representations hash identically", func(t *testing.T) {
		asMillis := map[string]any{"id": int64(1), "updated_at": int64(1742034600000)}
		asSeconds := map[string]any{"id": int64(1), "updated_at": int64(1742034600)}
		asISO := map[string]any{"id": int64(1), "updated_at": "2025-03-15T10:30:00Z"}
		asTime := map[string]any{"id": int64(1), "updated_at": time.UnixMilli(1742034600000).UTC()}

		assert.Equal(t, Row(asMillis), Row(asSeconds))
		assert.Equal(t, Row(asMillis), Row(asISO))
		assert.Equal(t, Row(asMillis), Row(asTime))
	})

	t.Run("timestamp canonicalization only applies to timestamp columns", func(t *testing.T) {
		a := map[string]any{"id": int64(1), "name": "2025-03-15T10:30:00Z"}
		b := map[string]any{"id": int64(1), "name": "1742034600000"}
		assert.NotEqual(t, Row(a), Row(b))
	})

	t.Run("null timestamp columns stay empty", func(t *testing.T) {
		a := map[string]any{"id": int64(1), "deleted_at": nil}
		b := map[string]any{"id": int64(1), "deleted_at": ""}
		assert.Equal(t, Row(a), Row(b))
	})

	t.Run("sqlite and postgres representations hash identically", func(t *testing.T) {
		local := map[string]any{
			"id":         int64(3),
			"is_active":  int64(1),
			"updated_at": int64(1742034600000),
		}
		remote := map[string]any{
			"id":         int64(3),
			"is_active":  true,
			"updated_at": time.UnixMilli(1742034600000).UTC(),
		}
		assert.Equal(t, Row(local), Row(remote))
	})
}

func TestTable(t *testing.T) {
	t.Run("empty table has a stable checksum", func(t *testing.T) {
		assert.Equal(t, Table(nil), Table([]map[string]any{}))
	})

	t.Run("row order matters", func(t *testing.T) {
		r1 := map[string]any{"id": int64(1)}
		r2 := map[string]any{"id": int64(2)}
		assert.NotEqual(t,
			Table([]map[string]any{r1, r2}),
			Table([]map[string]any{r2, r1}))
	})

	t.Run("never equals the not found sentinel", func(t *testing.T) {
		assert.NotEqual(t, NotFound, Table(nil))
	})
}

func TestOverall(t *testing.T) {
	order := []string{"products", "sales"}

	t.Run("is deterministic", func(t *testing.T) {
		sums := map[string]string{"products": "aaa", "sales": "bbb"}
		assert.Equal(t, Overall(order, sums), Overall(order, sums))
	})

	t.Run("depends on per-table checksums", func(t *testing.T) {
		a := map[string]string{"products": "aaa", "sales": "bbb"}
		b := map[string]string{"products": "aaa", "sales": "ccc"}
		assert.NotEqual(t, Overall(order, a), Overall(order, b))
	})

	t.Run("skips tables missing from the map", func(t *testing.T) {
		full := map[string]string{"products": "aaa", "sales": "bbb"}
		partial := map[string]string{"products": "aaa"}
		assert.NotEqual(t, Overall(order, full), Overall(order, partial))
	})
}
