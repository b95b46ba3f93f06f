package iocache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/schema"
	"github.com/jmoiron/sqlx"
)

// LocalStoreImpl is a key/value cache kept on the local machine.
type LocalStoreImpl struct {
	db        *sqlx.DB
	tableName string
	backend   schema.DatabaseBackend
	connStr   string
	now       func() time.Time
}

var _ contract.LocalStore = &LocalStoreImpl{} // Compile-time check

// NewLocalStore initializes the local cache. NoneBackend returns a store that remembers nothing.
func NewLocalStore(backend schema.DatabaseBackend, connStr string) (*LocalStoreImpl, error) {
	if backend == schema.NoneBackend {
		return &LocalStoreImpl{tableName: localCacheTable, backend: backend, now: time.Now}, nil
	}
	if err := validateTableName(localCacheTable); err != nil {
		return nil, err
	}
	db, err := openDB(backend, connStr, contract.GetCacheDBFilePath())
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(getCreateCacheTableQuery(localCacheTable, backend)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", localCacheTable, err)
	}
	return &LocalStoreImpl{db: db, tableName: localCacheTable, backend: backend, connStr: connStr, now: time.Now}, nil
}

// getCreateCacheTableQuery returns the CREATE TABLE query for the given backend.
func getCreateCacheTableQuery(tableName string, backend schema.DatabaseBackend) string {
	quotedTableName := quoteIdent(tableName, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				cache_key VARCHAR(255) PRIMARY KEY,
				cache_value LONGTEXT NOT NULL,
				cache_timestamp BIGINT NOT NULL
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				cache_key TEXT PRIMARY KEY,
				cache_value TEXT NOT NULL,
				cache_timestamp BIGINT NOT NULL
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				cache_key TEXT PRIMARY KEY,
				cache_value TEXT NOT NULL,
				cache_timestamp INTEGER NOT NULL
			);
		`, quotedTableName)
	}
}

// Get retrieves a value by key.
func (ls *LocalStoreImpl) Get(ctx context.Context, key string) (string, bool, error) {
	if ls.db == nil {
		return "", false, nil
	}
	query := ls.db.Rebind(fmt.Sprintf(`SELECT cache_value FROM %s WHERE cache_key = ?`, quoteIdent(ls.tableName, ls.backend)))

	var value string
	if err := ls.db.GetContext(ctx, &value, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	return value, true, nil
}

// Set inserts or replaces a key/value pair.
func (ls *LocalStoreImpl) Set(ctx context.Context, key string, value string) error {
	if ls.db == nil {
		return nil
	}
	if _, err := ls.db.ExecContext(ctx, ls.getUpsertQuery(), key, value, ls.now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// getUpsertQuery returns the UPSERT query for the backend.
func (ls *LocalStoreImpl) getUpsertQuery() string {
	quotedTableName := quoteIdent(ls.tableName, ls.backend)
	switch ls.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (cache_key, cache_value, cache_timestamp) VALUES (?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE cache_value = new.cache_value, cache_timestamp = new.cache_timestamp`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (cache_key, cache_value, cache_timestamp) VALUES ($1, $2, $3)
			ON CONFLICT (cache_key) DO UPDATE SET cache_value = EXCLUDED.cache_value, cache_timestamp = EXCLUDED.cache_timestamp`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (cache_key, cache_value, cache_timestamp) VALUES (?, ?, ?)`, quotedTableName)
	}
}

// Close closes the underlying DB connection.
func (ls *LocalStoreImpl) Close() error {
	if ls.db != nil {
		return ls.db.Close()
	}
	return nil
}

// GetStatus returns status information about the cache.
func (ls *LocalStoreImpl) GetStatus(ctx context.Context) (schema.CacheStatus, error) {
	status := schema.CacheStatus{
		Backend:   string(ls.backend),
		Connected: ls.db != nil,
	}
	if ls.db == nil {
		return status, nil
	}

	quotedTableName := quoteIdent(ls.tableName, ls.backend)
	if err := ls.db.GetContext(ctx, &status.TotalEntries, fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedTableName)); err != nil {
		return status, fmt.Errorf("failed to get total entries: %w", err)
	}
	if status.TotalEntries == 0 {
		return status, nil
	}

	var bounds struct {
		Last   int64 `db:"last_ts"`
		Oldest int64 `db:"oldest_ts"`
	}
	boundsQuery := fmt.Sprintf("SELECT MAX(cache_timestamp) AS last_ts, MIN(cache_timestamp) AS oldest_ts FROM %s", quotedTableName)
	if err := ls.db.GetContext(ctx, &bounds, boundsQuery); err != nil {
		return status, fmt.Errorf("failed to get entry times: %w", err)
	}
	status.LastEntryTime = time.UnixMilli(bounds.Last)
	status.OldestEntryTime = time.UnixMilli(bounds.Oldest)

	status.TableSizeBytes = tableSize(ctx, ls.db, ls.backend, ls.connStr, ls.tableName, status.TotalEntries)
	return status, nil
}
