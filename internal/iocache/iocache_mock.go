package iocache

import (
	"context"

	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetRemoteStore implements the StoreManager interface.
func (m *MockStoreManager) GetRemoteStore() contract.RemoteStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.RemoteStore)
	return store
}

// GetLocalStore implements the StoreManager interface.
func (m *MockStoreManager) GetLocalStore() contract.LocalStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.LocalStore)
	return store
}

// MockRemoteStore is a mock implementation of RemoteStore for testing.
type MockRemoteStore struct {
	mock.Mock
}

var _ contract.RemoteStore = &MockRemoteStore{} // Compile-time check

// Upsert implements the RemoteStore interface.
func (m *MockRemoteStore) Upsert(ctx context.Context, rec schema.CloudRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// Get implements the RemoteStore interface.
func (m *MockRemoteStore) Get(ctx context.Context, key string) (schema.CloudRecord, bool, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(schema.CloudRecord), args.Bool(1), args.Error(2)
}

// ListLike implements the RemoteStore interface.
func (m *MockRemoteStore) ListLike(ctx context.Context, pattern string, limit int) ([]schema.CloudRecord, error) {
	args := m.Called(ctx, pattern, limit)
	records, _ := args.Get(0).([]schema.CloudRecord)
	return records, args.Error(1)
}

// GetStatus implements the RemoteStore interface.
func (m *MockRemoteStore) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.StoreStatus), args.Error(1)
}

// Close implements the RemoteStore interface.
func (m *MockRemoteStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockLocalStore is a mock implementation of LocalStore for testing.
type MockLocalStore struct {
	mock.Mock
}

var _ contract.LocalStore = &MockLocalStore{} // Compile-time check

// Get implements the LocalCache interface.
func (m *MockLocalStore) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

// Set implements the LocalCache interface.
func (m *MockLocalStore) Set(ctx context.Context, key string, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

// GetStatus implements the LocalStore interface.
func (m *MockLocalStore) GetStatus(ctx context.Context) (schema.CacheStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.CacheStatus), args.Error(1)
}

// Close implements the LocalStore interface.
func (m *MockLocalStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
