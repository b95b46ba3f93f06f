package iocache

import (
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/schema"
)

// Global Manager instance for main logic.
var (
	Manager   = &StoreManagerImpl{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// GetStoreDBFilePath returns the path to the SQLite DB file for the system_data store.
func GetStoreDBFilePath() string {
	return contract.GetStoreDBFilePath()
}

// GetCacheDBFilePath returns the path to the SQLite DB file for the local cache.
func GetCacheDBFilePath() string {
	return contract.GetCacheDBFilePath()
}

// InitStores initializes the global manager with the shared store and the local cache.
// A NoneBackend store leaves the remote store nil so sync operations report NotConnected.
func InitStores(storeBackend schema.DatabaseBackend, storeConnStr string, cacheBackend schema.DatabaseBackend, cacheConnStr string) error {
	var initErr error

	initOnce.Do(func() {
		// This function body runs exactly once, even with concurrent calls.
		var remote contract.RemoteStore
		if storeBackend != "" && storeBackend != schema.NoneBackend {
			rs, err := NewRemoteStore(storeBackend, storeConnStr)
			if err != nil {
				initErr = fmt.Errorf("failed to initialize system_data store: %w", err)
				return
			}
			remote = rs
		}

		if cacheBackend == "" {
			cacheBackend = schema.NoneBackend
		}
		local, err := NewLocalStore(cacheBackend, cacheConnStr)
		if err != nil {
			if remote != nil {
				_ = remote.Close()
			}
			initErr = fmt.Errorf("failed to initialize local cache: %w", err)
			return
		}

		Manager.Lock()
		defer Manager.Unlock()
		Manager.remote = remote
		Manager.local = local
	})

	return initErr
}

// CloseStores should be called on application shutdown.
func CloseStores() { // called in main defer
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.remote != nil {
			_ = Manager.remote.Close()
		}
		if Manager.local != nil {
			_ = Manager.local.Close()
		}
	})
}

// ClearStore removes the system_data store.
// For SQLite, it deletes the database file. For MySQL and PostgreSQL, it drops the table.
func ClearStore(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearBackend(backend, dbFilePath, connStr, systemDataTable)
}

// ClearCache removes the local cache.
// For SQLite, it deletes the database file. For MySQL and PostgreSQL, it drops the table.
func ClearCache(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearBackend(backend, dbFilePath, connStr, localCacheTable)
}

func clearBackend(backend schema.DatabaseBackend, dbFilePath, connStr, tableName string) error {
	switch backend {
	case schema.SQLiteBackend:
		if dbFilePath == "" {
			return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
		}
		// Remove the file; ignore if it doesn't exist
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
		}
		return nil

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return clearSQLTable(backend, connStr, tableName)

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported backend for clearing: %s", backend)
	}
}

// clearSQLTable connects to the SQL database and drops the table if it exists.
func clearSQLTable(backend schema.DatabaseBackend, connStr, tableName string) error {
	if err := validateTableName(tableName); err != nil {
		return err
	}
	db, err := openDB(backend, connStr, "")
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	query := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(tableName, backend))
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", tableName, err)
	}
	return nil
}
