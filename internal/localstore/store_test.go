package localstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "localstore-test-*")
	require.NoError(t, err)

	store, err := Open(filepath.Join(tempDir, "test.db"))
	require.NoError(t, err)

	cleanup := func() {
		store.Close()
		os.RemoveAll(tempDir)
	}
	return store, cleanup
}

// createProductsTable mimics a host-application business table.
func createProductsTable(t *testing.T, store *Store) {
	t.Helper()
	err := store.DB().Exec(`CREATE TABLE products (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		price REAL,
		is_active INTEGER,
		created_at INTEGER
	)`).Error
	require.NoError(t, err)
}

func TestOpen(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	t.Run("migrates the sync schema", func(t *testing.T) {
		assert.True(t, store.HasTable("cloud_connections"))
		assert.True(t, store.HasTable("sync_jobs"))
	})

	t.Run("does not create business tables", func(t *testing.T) {
		assert.False(t, store.HasTable("products"))
	})
}

func TestColumns(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	createProductsTable(t, store)

	t.Run("lists columns in declaration order", func(t *testing.T) {
		cols, err := store.Columns("products")
		require.NoError(t, err)
		require.Len(t, cols, 5)

		assert.Equal(t, "id", cols[0].Name)
		assert.True(t, cols[0].PrimaryKey)
		assert.Equal(t, "name", cols[1].Name)
		assert.True(t, cols[1].NotNull)
		assert.Equal(t, "REAL", cols[2].Type)
	})

	t.Run("unknown table", func(t *testing.T) {
		_, err := store.Columns("missing")
		assert.ErrorIs(t, err, ErrUnknownTable)
	})
}

func TestRows(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	createProductsTable(t, store)

	t.Run("insert and read back", func(t *testing.T) {
		tx := store.Begin()
		err := store.InsertRow(tx, "products", map[string]any{
			"id": 2, "name": "Gadget", "price": 19.99, "is_active": 1,
		})
		require.NoError(t, err)
		err = store.InsertRow(tx, "products", map[string]any{
			"id": 1, "name": "Widget", "price": 9.99, "is_active": 1,
		})
		require.NoError(t, err)
		require.NoError(t, tx.Commit().Error)

		rows, err := store.AllRows("products")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		// Ordered by id regardless of insertion order.
		assert.EqualValues(t, 1, rows[0]["id"])
		assert.EqualValues(t, 2, rows[1]["id"])
	})

	t.Run("row by id", func(t *testing.T) {
		row, err := store.RowByID(store.DB(), "products", 1)
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, "Widget", row["name"])

		missing, err := store.RowByID(store.DB(), "products", 999)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("update row", func(t *testing.T) {
		tx := store.Begin()
		err := store.UpdateRow(tx, "products", 1, map[string]any{"price": 12.50})
		require.NoError(t, err)
		require.NoError(t, tx.Commit().Error)

		row, err := store.RowByID(store.DB(), "products", 1)
		require.NoError(t, err)
		assert.EqualValues(t, 12.50, row["price"])
	})

	t.Run("empty update is a no-op", func(t *testing.T) {
		assert.NoError(t, store.UpdateRow(store.DB(), "products", 1, nil))
	})

	t.Run("count rows", func(t *testing.T) {
		count, err := store.CountRows("products")
		require.NoError(t, err)
		assert.EqualValues(t, 2, count)
	})

	t.Run("count of absent table is minus one", func(t *testing.T) {
		count, err := store.CountRows("missing")
		require.NoError(t, err)
		assert.EqualValues(t, -1, count)
	})

	t.Run("empty business table reads cleanly", func(t *testing.T) {
		err := store.DB().Exec(`CREATE TABLE colors (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`).Error
		require.NoError(t, err)

		rows, err := store.AllRows("colors")
		require.NoError(t, err)
		assert.Empty(t, rows)

		count, err := store.CountRows("colors")
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)
	})
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"products"`, quoteIdent("products"))
	assert.Equal(t, `"bad"`, quoteIdent(`b"ad`))
}
