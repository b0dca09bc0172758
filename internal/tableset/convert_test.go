package tableset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRemoteValue(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.Nil(t, ToRemoteValue("created_at", "INTEGER", nil))
	})

	t.Run("epoch milliseconds become time", func(t *testing.T) {
		got := ToRemoteValue("created_at", "INTEGER", int64(1742034600000))
		ts, ok := got.(time.Time)
		require.True(t, ok)
		assert.Equal(t, int64(1742034600000), ts.UnixMilli())
	})

	t.Run("epoch seconds become time", func(t *testing.T) {
		got := ToRemoteValue("created_at", "INTEGER", int64(1742034600))
		ts, ok := got.(time.Time)
		require.True(t, ok)
		assert.Equal(t, int64(1742034600), ts.Unix())
	})

	t.Run("iso strings become time", func(t *testing.T) {
		got := ToRemoteValue("sale_date", "TEXT", "2025-03-15T10:30:00Z")
		ts, ok := got.(time.Time)
		require.True(t, ok)
		assert.Equal(t, 2025, ts.Year())
	})

	t.Run("unparseable timestamp passes through", func(t *testing.T) {
		assert.Equal(t, "garbage", ToRemoteValue("created_at", "INTEGER", "garbage"))
	})

	t.Run("flag integers become booleans", func(t *testing.T) {
		assert.Equal(t, true, ToRemoteValue("is_active", "INTEGER", int64(1)))
		assert.Equal(t, false, ToRemoteValue("is_active", "INTEGER", int64(0)))
	})

	t.Run("flag strings become booleans", func(t *testing.T) {
		assert.Equal(t, true, ToRemoteValue("is_active", "INTEGER", "true"))
		assert.Equal(t, false, ToRemoteValue("is_active", "INTEGER", "no"))
	})

	t.Run("plain columns pass through", func(t *testing.T) {
		assert.Equal(t, "Widget", ToRemoteValue("name", "TEXT", "Widget"))
		assert.Equal(t, int64(5), ToRemoteValue("quantity", "INTEGER", int64(5)))
	})
}

func TestToLocalValue(t *testing.T) {
	t.Run("time becomes epoch milliseconds", func(t *testing.T) {
		ts := time.UnixMilli(1742034600000).UTC()
		assert.Equal(t, int64(1742034600000), ToLocalValue("created_at", "INTEGER", ts))
	})

	t.Run("booleans become 0 and 1", func(t *testing.T) {
		assert.Equal(t, int64(1), ToLocalValue("is_active", "INTEGER", true))
		assert.Equal(t, int64(0), ToLocalValue("is_active", "INTEGER", false))
	})

	t.Run("nil and plain values pass through", func(t *testing.T) {
		assert.Nil(t, ToLocalValue("name", "TEXT", nil))
		assert.Equal(t, "Widget", ToLocalValue("name", "TEXT", "Widget"))
	})
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty([]byte{}))

	assert.False(t, IsEmpty("x"))
	assert.False(t, IsEmpty([]byte{0}))
	// Numeric zero is a real value, not empty.
	assert.False(t, IsEmpty(int64(0)))
	assert.False(t, IsEmpty(float64(0)))
	assert.False(t, IsEmpty(false))
}

func TestEpochMillis(t *testing.T) {
	t.Run("canonicalizes every accepted representation", func(t *testing.T) {
		for _, v := range []any{
			int64(1742034600000),
			int64(1742034600),
			"2025-03-15T10:30:00Z",
			time.UnixMilli(1742034600000).UTC(),
		} {
			ms, ok := EpochMillis(v)
			require.True(t, ok, "value %v", v)
			assert.EqualValues(t, 1742034600000, ms, "value %v", v)
		}
	})

	t.Run("rejects non timestamps", func(t *testing.T) {
		for _, v := range []any{nil, "", "garbage", true} {
			_, ok := EpochMillis(v)
			assert.False(t, ok, "value %v", v)
		}
	})
}

func TestFromEpoch(t *testing.T) {
	t.Run("large values are milliseconds", func(t *testing.T) {
		assert.Equal(t, int64(1742034600000), fromEpoch(1742034600000).UnixMilli())
	})

	t.Run("small values are seconds", func(t *testing.T) {
		assert.Equal(t, int64(1742034600), fromEpoch(1742034600).Unix())
	})
}
