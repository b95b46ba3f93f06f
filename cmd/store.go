package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/internal/iocache"
	"github.com/huangsam/examlens/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// storeConfig reads and validates the shared store backend without opening it.
func storeConfig() (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}
	backend := schema.DatabaseBackend(viper.GetString("store-backend"))
	connStr := viper.GetString("store-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// storeSetup loads minimal configuration and opens the shared store only.
func storeSetup() error {
	backend, connStr, err := storeConfig()
	if err != nil {
		return err
	}
	if err := iocache.InitStores(backend, connStr, schema.NoneBackend, ""); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	cfg.StoreBackend = backend
	cfg.StoreDBConnect = connStr
	return nil
}

// storeSetupWrapper wraps storeSetup to provide PreRunE for store commands.
func storeSetupWrapper(_ *cobra.Command, _ []string) error {
	return storeSetup()
}

// storeMigrateSetup is a specialized setup that does NOT initialize stores or
// create tables, allowing migrations to run on a fresh database.
func storeMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := storeConfig()
	if err != nil {
		return err
	}
	// For SQLite backend with empty connection string, use default path
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = iocache.GetStoreDBFilePath()
	}
	cfg.StoreBackend = backend
	cfg.StoreDBConnect = connStr
	return nil
}

// sqlitePath returns the configured SQLite file, or the default one.
func sqlitePath(connStr, defaultPath string) string {
	if connStr != "" {
		return connStr
	}
	return defaultPath
}

// storeCmd focused on shared store management.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the shared system_data store",
	Long: `Manage the shared store that holds exam snapshots and teacher tables.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show store statistics and connection info
  clear   - Remove all stored records
  migrate - Run schema migrations`,
}

// storeStatusCmd shows store status.
var storeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display store statistics and connection details",
	Long: `Show the backend, record counts, record timestamps and table size of the shared store.

Examples:
  examlens store status
  EXAMLENS_STORE_BACKEND=postgresql EXAMLENS_STORE_DB_CONNECT="host=... dbname=..." examlens store status`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetRemoteStore()
		if store == nil {
			iocache.PrintStoreStatus(os.Stdout, schema.StoreStatus{Backend: string(cfg.StoreBackend)})
			return
		}
		status, err := store.GetStatus(rootCtx)
		if err != nil {
			contract.LogFatal("Failed to get store status", err)
		}
		iocache.PrintStoreStatus(os.Stdout, status)
	},
}

// storeClearCmd clears the store.
var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every record from the shared store",
	Long: `Delete every exam snapshot and teacher table from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the system_data table

Examples:
  examlens store clear`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if cfg.StoreBackend == schema.NoneBackend {
			contract.LogFatal("Failed to clear store", errors.New("no store backend configured"))
		}
		iocache.CloseStores()
		if err := iocache.ClearStore(cfg.StoreBackend, sqlitePath(cfg.StoreDBConnect, iocache.GetStoreDBFilePath()), cfg.StoreDBConnect); err != nil {
			contract.LogFatal("Failed to clear store", err)
		}
		fmt.Println("Store cleared successfully.")
	},
}

// storeMigrateCmd runs database migrations for the shared store.
var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage schema versions of the system_data table.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  examlens store migrate

  # Migrate to specific version
  examlens store migrate --target-version 1

  # Rollback to initial state
  examlens store migrate --target-version 0`,
	PreRunE: storeMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		res, err := iocache.MigrateStore(cfg.StoreBackend, cfg.StoreDBConnect, targetVersion)
		if err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
		fmt.Println(res.String())
	},
}
