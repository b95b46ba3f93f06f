package iocache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/huangsam/examlens/core/keys"
	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/schema"
	"github.com/jmoiron/sqlx"
)

// recordRow is the database shape of a CloudRecord. updated_at holds unix milliseconds.
type recordRow struct {
	Key       string `db:"key"`
	Content   string `db:"content"`
	UpdatedAt int64  `db:"updated_at"`
}

func (r recordRow) record() schema.CloudRecord {
	return schema.CloudRecord{Key: r.Key, Content: r.Content, UpdatedAt: time.UnixMilli(r.UpdatedAt)}
}

// RemoteStoreImpl is the shared key/value table (system_data) on a SQL backend.
type RemoteStoreImpl struct {
	db        *sqlx.DB
	tableName string
	backend   schema.DatabaseBackend
	connStr   string
}

var _ contract.RemoteStore = &RemoteStoreImpl{} // Compile-time check

// NewRemoteStore opens the system_data table, creating it when missing.
// An empty connStr with SQLite uses the default store file.
func NewRemoteStore(backend schema.DatabaseBackend, connStr string) (*RemoteStoreImpl, error) {
	return newRemoteStore(systemDataTable, backend, connStr)
}

func newRemoteStore(tableName string, backend schema.DatabaseBackend, connStr string) (*RemoteStoreImpl, error) {
	if err := validateTableName(tableName); err != nil {
		return nil, err
	}
	db, err := openDB(backend, connStr, contract.GetStoreDBFilePath())
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(getCreateRecordTableQuery(tableName, backend)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", tableName, err)
	}
	return &RemoteStoreImpl{db: db, tableName: tableName, backend: backend, connStr: connStr}, nil
}

// getCreateRecordTableQuery returns the CREATE TABLE query for the given backend.
func getCreateRecordTableQuery(tableName string, backend schema.DatabaseBackend) string {
	quotedTableName := quoteIdent(tableName, backend)
	quotedKey := quoteIdent("key", backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				%s VARCHAR(255) PRIMARY KEY,
				content LONGTEXT NOT NULL,
				updated_at BIGINT NOT NULL
			);
		`, quotedTableName, quotedKey)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				%s TEXT PRIMARY KEY,
				content TEXT NOT NULL,
				updated_at BIGINT NOT NULL
			);
		`, quotedTableName, quotedKey)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				%s TEXT PRIMARY KEY,
				content TEXT NOT NULL,
				updated_at INTEGER NOT NULL
			);
		`, quotedTableName, quotedKey)
	}
}

// getUpsertQuery returns the insert-or-update query. The last writer wins.
func (rs *RemoteStoreImpl) getUpsertQuery() string {
	quotedTableName := quoteIdent(rs.tableName, rs.backend)
	quotedKey := quoteIdent("key", rs.backend)
	switch rs.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (%s, content, updated_at) VALUES (?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE content = new.content, updated_at = new.updated_at`, quotedTableName, quotedKey)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (%s, content, updated_at) VALUES ($1, $2, $3)
			ON CONFLICT (%s) DO UPDATE SET content = EXCLUDED.content, updated_at = EXCLUDED.updated_at`, quotedTableName, quotedKey, quotedKey)

	default: // SQLite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (%s, content, updated_at) VALUES (?, ?, ?)`, quotedTableName, quotedKey)
	}
}

// selectColumns returns the column list of a record query.
func (rs *RemoteStoreImpl) selectColumns() string {
	return quoteIdent("key", rs.backend) + ", content, updated_at"
}

// Upsert writes a record keyed by rec.Key. A zero UpdatedAt is stamped with the current time.
func (rs *RemoteStoreImpl) Upsert(ctx context.Context, rec schema.CloudRecord) error {
	if rec.Key == "" {
		return errors.New("record key cannot be empty")
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	if _, err := rs.db.ExecContext(ctx, rs.getUpsertQuery(), rec.Key, rec.Content, updatedAt.UnixMilli()); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", rec.Key, err)
	}
	return nil
}

// Get selects a record by its exact key.
func (rs *RemoteStoreImpl) Get(ctx context.Context, key string) (schema.CloudRecord, bool, error) {
	query := rs.db.Rebind(fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`,
		rs.selectColumns(), quoteIdent(rs.tableName, rs.backend), quoteIdent("key", rs.backend)))

	var row recordRow
	if err := rs.db.GetContext(ctx, &row, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return schema.CloudRecord{}, false, nil
		}
		return schema.CloudRecord{}, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return row.record(), true, nil
}

// ListLike returns records whose key matches a SQL LIKE pattern, newest first.
// Records with the same timestamp are ordered by key.
func (rs *RemoteStoreImpl) ListLike(ctx context.Context, pattern string, limit int) ([]schema.CloudRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	quotedKey := quoteIdent("key", rs.backend)
	query := rs.db.Rebind(fmt.Sprintf(`SELECT %s FROM %s WHERE %s LIKE ? ORDER BY updated_at DESC, %s ASC LIMIT ?`,
		rs.selectColumns(), quoteIdent(rs.tableName, rs.backend), quotedKey, quotedKey))

	var rows []recordRow
	if err := rs.db.SelectContext(ctx, &rows, query, pattern, limit); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", pattern, err)
	}
	records := make([]schema.CloudRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}

// Close closes the underlying DB connection.
func (rs *RemoteStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the store.
func (rs *RemoteStoreImpl) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:   string(rs.backend),
		Connected: rs.db != nil,
	}
	if rs.db == nil {
		return status, nil
	}

	quotedTableName := quoteIdent(rs.tableName, rs.backend)
	if err := rs.db.GetContext(ctx, &status.TotalEntries, fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedTableName)); err != nil {
		return status, fmt.Errorf("failed to get total entries: %w", err)
	}
	if status.TotalEntries == 0 {
		return status, nil
	}

	teacherQuery := rs.db.Rebind(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s LIKE ?", quotedTableName, quoteIdent("key", rs.backend)))
	if err := rs.db.GetContext(ctx, &status.TeacherEntries, teacherQuery, keys.AnyTeacherPattern()); err != nil {
		return status, fmt.Errorf("failed to get teacher entries: %w", err)
	}

	var bounds struct {
		Last   int64 `db:"last_ts"`
		Oldest int64 `db:"oldest_ts"`
	}
	boundsQuery := fmt.Sprintf("SELECT MAX(updated_at) AS last_ts, MIN(updated_at) AS oldest_ts FROM %s", quotedTableName)
	if err := rs.db.GetContext(ctx, &bounds, boundsQuery); err != nil {
		return status, fmt.Errorf("failed to get entry times: %w", err)
	}
	status.LastEntryTime = time.UnixMilli(bounds.Last)
	status.OldestEntryTime = time.UnixMilli(bounds.Oldest)

	status.TableSizeBytes = tableSize(ctx, rs.db, rs.backend, rs.connStr, rs.tableName, status.TotalEntries)
	return status, nil
}

// tableSize estimates the storage used by a table. Failures fall back to a rough estimate.
func tableSize(ctx context.Context, db *sqlx.DB, backend schema.DatabaseBackend, connStr, tableName string, entries int) int64 {
	estimate := int64(entries) * 1000
	var size int64
	switch backend {
	case schema.SQLiteBackend:
		if err := db.GetContext(ctx, &size, "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()"); err != nil {
			return 0
		}
		return size

	case schema.MySQLBackend:
		cfg, err := mysql.ParseDSN(connStr)
		if err != nil || cfg.DBName == "" {
			return estimate
		}
		query := "SELECT data_length + index_length FROM information_schema.tables WHERE table_schema = ? AND table_name = ?"
		if err := db.GetContext(ctx, &size, query, cfg.DBName, tableName); err != nil {
			return estimate
		}
		return size

	case schema.PostgreSQLBackend:
		if err := db.GetContext(ctx, &size, "SELECT pg_total_relation_size($1)", tableName); err != nil {
			return estimate
		}
		return size

	default:
		return estimate
	}
}
