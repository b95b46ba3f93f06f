// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"

	"github.com/huangsam/examlens/schema"
)

// MetadataProvider supplies the caller's exam, term and user state for one operation.
// It is the only hook a reconciler cannot work without.
type MetadataProvider interface {
	Current(ctx context.Context) (schema.SyncContext, error)
}

// LocalCache is the local persistent key/value cache mirrored after sync operations.
type LocalCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
}

// NoticeLevel is the severity of a user notification.
type NoticeLevel string

// Notification levels.
const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notifier receives loading indicator changes and user-facing messages.
type Notifier interface {
	Loading(active bool, message string)
	Notify(level NoticeLevel, message string)
}

// AuditLog records user-visible actions.
type AuditLog interface {
	Record(ctx context.Context, action string, detail string) error
}

// RemoteStore is the shared system_data table.
type RemoteStore interface {
	// Upsert writes a record, replacing any row with the same key.
	Upsert(ctx context.Context, rec schema.CloudRecord) error

	// Get returns the record with the exact key and whether it exists.
	Get(ctx context.Context, key string) (schema.CloudRecord, bool, error)

	// ListLike returns records whose key matches a LIKE pattern, newest first.
	ListLike(ctx context.Context, pattern string, limit int) ([]schema.CloudRecord, error)

	// GetStatus returns status information about the store.
	GetStatus(ctx context.Context) (schema.StoreStatus, error)

	// Close closes the underlying connection.
	Close() error
}

// LocalStore is a LocalCache backed by a database.
type LocalStore interface {
	LocalCache
	GetStatus(ctx context.Context) (schema.CacheStatus, error)
	Close() error
}

// StoreManager defines the interface for managing the shared store and the local cache.
// This allows the storage layer to be mocked for testing.
type StoreManager interface {
	GetRemoteStore() RemoteStore
	GetLocalStore() LocalStore
}

// StaticMetadata is a MetadataProvider that always returns the same context.
type StaticMetadata schema.SyncContext

// Current returns the fixed context.
func (m StaticMetadata) Current(_ context.Context) (schema.SyncContext, error) {
	return schema.SyncContext(m), nil
}

var _ MetadataProvider = StaticMetadata{}
