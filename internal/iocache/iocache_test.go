package iocache

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/examlens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRemoteStore(t *testing.T) *RemoteStoreImpl {
	t.Helper()
	store, err := NewRemoteStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRemoteStoreUpsertAndGet(t *testing.T) {
	ctx := t.Context()
	store := newTestRemoteStore(t)
	base := time.UnixMilli(1_700_000_000_000)

	t.Run("missing key", func(t *testing.T) {
		_, ok, err := store.Get(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("last writer wins", func(t *testing.T) {
		require.NoError(t, store.Upsert(ctx, schema.CloudRecord{Key: "k1", Content: "first", UpdatedAt: base}))
		require.NoError(t, store.Upsert(ctx, schema.CloudRecord{Key: "k1", Content: "second", UpdatedAt: base.Add(time.Second)}))

		rec, ok, err := store.Get(ctx, "k1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "second", rec.Content)
		assert.Equal(t, base.Add(time.Second).UnixMilli(), rec.UpdatedAt.UnixMilli())
	})

	t.Run("zero timestamp is stamped", func(t *testing.T) {
		require.NoError(t, store.Upsert(ctx, schema.CloudRecord{Key: "k2", Content: "x"}))
		rec, ok, err := store.Get(ctx, "k2")
		require.NoError(t, err)
		require.True(t, ok)
		assert.WithinDuration(t, time.Now(), rec.UpdatedAt, time.Minute)
	})

	t.Run("empty key rejected", func(t *testing.T) {
		assert.Error(t, store.Upsert(ctx, schema.CloudRecord{Content: "x"}))
	})
}

func TestRemoteStoreListLike(t *testing.T) {
	ctx := t.Context()
	store := newTestRemoteStore(t)
	base := time.UnixMilli(1_700_000_000_000)

	records := []schema.CloudRecord{
		{Key: "TEACHERS_2024级_2025-2026-1", Content: "a", UpdatedAt: base},
		{Key: "TEACHERS_2024级_2024-2025-2", Content: "b", UpdatedAt: base.Add(2 * time.Minute)},
		{Key: "TEACHERS_2023级_2025-2026-1", Content: "c", UpdatedAt: base.Add(time.Minute)},
		{Key: "2024级_7年级_2025-2026_上学期_期中", Content: "d", UpdatedAt: base.Add(3 * time.Minute)},
	}
	for _, rec := range records {
		require.NoError(t, store.Upsert(ctx, rec))
	}

	t.Run("newest first", func(t *testing.T) {
		got, err := store.ListLike(ctx, "TEACHERS_%", 10)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "TEACHERS_2024级_2024-2025-2", got[0].Key)
		assert.Equal(t, "TEACHERS_2023级_2025-2026-1", got[1].Key)
		assert.Equal(t, "TEACHERS_2024级_2025-2026-1", got[2].Key)
	})

	t.Run("limit", func(t *testing.T) {
		got, err := store.ListLike(ctx, "TEACHERS_%", 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "TEACHERS_2024级_2024-2025-2", got[0].Key)
	})

	t.Run("cohort pattern", func(t *testing.T) {
		got, err := store.ListLike(ctx, "TEACHERS_2024级_%", 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "b", got[0].Content)
		assert.Equal(t, "a", got[1].Content)
	})

	t.Run("term pattern", func(t *testing.T) {
		got, err := store.ListLike(ctx, "TEACHERS_%_2025-2026-1", 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "c", got[0].Content)
	})

	t.Run("non-positive limit", func(t *testing.T) {
		got, err := store.ListLike(ctx, "%", 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("status", func(t *testing.T) {
		status, err := store.GetStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, "sqlite", status.Backend)
		assert.True(t, status.Connected)
		assert.Equal(t, 4, status.TotalEntries)
		assert.Equal(t, 3, status.TeacherEntries)
		assert.Equal(t, base.Add(3*time.Minute).UnixMilli(), status.LastEntryTime.UnixMilli())
		assert.Equal(t, base.UnixMilli(), status.OldestEntryTime.UnixMilli())
		assert.Positive(t, status.TableSizeBytes)
	})
}

func TestLocalStore(t *testing.T) {
	ctx := t.Context()

	t.Run("sqlite", func(t *testing.T) {
		store, err := NewLocalStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "cache.db"))
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		status, err := store.GetStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, status.TotalEntries)

		_, ok, err := store.Get(ctx, "CURRENT_PROJECT_KEY")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, store.Set(ctx, "CURRENT_PROJECT_KEY", "k1"))
		require.NoError(t, store.Set(ctx, "CURRENT_PROJECT_KEY", "k2"))
		value, ok, err := store.Get(ctx, "CURRENT_PROJECT_KEY")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "k2", value)

		status, err = store.GetStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, status.TotalEntries)
		assert.False(t, status.LastEntryTime.IsZero())
	})

	t.Run("none backend", func(t *testing.T) {
		store, err := NewLocalStore(schema.NoneBackend, "")
		require.NoError(t, err)
		require.NoError(t, store.Set(ctx, "a", "b"))
		_, ok, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.False(t, ok)

		status, err := store.GetStatus(ctx)
		require.NoError(t, err)
		assert.False(t, status.Connected)
		assert.NoError(t, store.Close())
	})
}

func TestNewRemoteStoreUnsupported(t *testing.T) {
	_, err := NewRemoteStore(schema.DatabaseBackend("oracle"), "")
	assert.Error(t, err)
	_, err = NewRemoteStore(schema.NoneBackend, "")
	assert.Error(t, err)
}

func TestValidateTableName(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		wantErr bool
	}{
		{"valid", "system_data", false},
		{"leading underscore", "_cache", false},
		{"empty", "", true},
		{"leading digit", "1table", true},
		{"injection", "t; DROP TABLE x", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTableName(tt.table)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "`key`", quoteIdent("key", schema.MySQLBackend))
	assert.Equal(t, `"key"`, quoteIdent("key", schema.PostgreSQLBackend))
	assert.Equal(t, `"key"`, quoteIdent("key", schema.SQLiteBackend))
}

func TestUpsertQueries(t *testing.T) {
	mysqlStore := &RemoteStoreImpl{tableName: systemDataTable, backend: schema.MySQLBackend}
	assert.Contains(t, mysqlStore.getUpsertQuery(), "ON DUPLICATE KEY UPDATE")
	assert.Contains(t, mysqlStore.getUpsertQuery(), "`key`")

	pgStore := &RemoteStoreImpl{tableName: systemDataTable, backend: schema.PostgreSQLBackend}
	assert.Contains(t, pgStore.getUpsertQuery(), `ON CONFLICT ("key")`)

	sqliteStore := &RemoteStoreImpl{tableName: systemDataTable, backend: schema.SQLiteBackend}
	assert.Contains(t, sqliteStore.getUpsertQuery(), "INSERT OR REPLACE")
}

func TestInitStores(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		initOnce = sync.Once{}  // Reset for test
		closeOnce = sync.Once{} // Reset for test
		dir := t.TempDir()

		err := InitStores(schema.SQLiteBackend, filepath.Join(dir, "store.db"), schema.SQLiteBackend, filepath.Join(dir, "cache.db"))
		require.NoError(t, err)
		assert.NotNil(t, Manager.GetRemoteStore())
		assert.NotNil(t, Manager.GetLocalStore())

		// Multiple initializations are safe
		assert.NoError(t, InitStores(schema.SQLiteBackend, "", schema.SQLiteBackend, ""))

		CloseStores()
		CloseStores()

		_, err = os.Stat(filepath.Join(dir, "store.db"))
		assert.NoError(t, err)
	})

	t.Run("none backend", func(t *testing.T) {
		initOnce = sync.Once{}  // Reset for test
		closeOnce = sync.Once{} // Reset for test

		require.NoError(t, InitStores(schema.NoneBackend, "", schema.NoneBackend, ""))
		assert.Nil(t, Manager.GetRemoteStore())
		assert.NotNil(t, Manager.GetLocalStore())
		CloseStores()
	})
}

func TestClearStoreAndCache(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "store.db")
	store, err := NewRemoteStore(schema.SQLiteBackend, storePath)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	require.NoError(t, ClearStore(schema.SQLiteBackend, storePath, ""))
	_, err = os.Stat(storePath)
	assert.True(t, os.IsNotExist(err))

	// Clearing a missing file is fine
	assert.NoError(t, ClearCache(schema.SQLiteBackend, filepath.Join(dir, "missing.db"), ""))
	assert.NoError(t, ClearCache(schema.NoneBackend, "", ""))
	assert.Error(t, ClearStore(schema.SQLiteBackend, "", ""))
	assert.Error(t, ClearStore(schema.DatabaseBackend("oracle"), "", ""))
}

func TestMigrateStore(t *testing.T) {
	t.Run("none backend", func(t *testing.T) {
		_, err := MigrateStore(schema.NoneBackend, "", -1)
		assert.Error(t, err)
	})

	t.Run("sqlite", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "migrate.db")

		result, err := MigrateStore(schema.SQLiteBackend, dbPath, -1)
		require.NoError(t, err)
		assert.True(t, result.Changed)
		assert.Equal(t, uint(2), result.ToVersion)

		result, err = MigrateStore(schema.SQLiteBackend, dbPath, -1)
		require.NoError(t, err)
		assert.False(t, result.Changed)
		assert.Contains(t, result.String(), "already at version 2")

		result, err = MigrateStore(schema.SQLiteBackend, dbPath, 1)
		require.NoError(t, err)
		assert.True(t, result.Changed)
		assert.Equal(t, uint(1), result.ToVersion)

		result, err = MigrateStore(schema.SQLiteBackend, dbPath, 0)
		require.NoError(t, err)
		assert.Equal(t, uint(0), result.ToVersion)

		// The migrated table works with the store
		_, err = MigrateStore(schema.SQLiteBackend, dbPath, -1)
		require.NoError(t, err)
		store, err := NewRemoteStore(schema.SQLiteBackend, dbPath)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()
		require.NoError(t, store.Upsert(t.Context(), schema.CloudRecord{Key: "k", Content: "v"}))
	})
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintStoreStatus(&buf, schema.StoreStatus{Backend: "sqlite", Connected: true, TotalEntries: 2, TeacherEntries: 1, TableSizeBytes: 4096})
	out := buf.String()
	assert.Contains(t, out, "Store Backend: sqlite")
	assert.Contains(t, out, "Teacher Entries: 1")
	assert.Contains(t, out, "Table Size: 4096 bytes")

	buf.Reset()
	PrintCacheStatus(&buf, schema.CacheStatus{Backend: "none"})
	assert.Contains(t, buf.String(), "Connected: false")
	assert.NotContains(t, buf.String(), "Table Size")
}
