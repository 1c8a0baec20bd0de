package mocks

import (
	"context"
	"sync/atomic"
)

// MockVersionStore is an in-memory VersionStore for testing.
type MockVersionStore struct {
	version atomic.Int64

	// Fail, when set, is returned by every call
	Fail error
}

// NewMockVersionStore creates a new MockVersionStore at the given version
func NewMockVersionStore(version int64) *MockVersionStore {
	m := &MockVersionStore{}
	m.version.Store(version)
	return m
}

func (m *MockVersionStore) Current(ctx context.Context) (int64, error) {
	if m.Fail != nil {
		return 0, m.Fail
	}
	return m.version.Load(), nil
}

func (m *MockVersionStore) Advance(ctx context.Context) (int64, error) {
	if m.Fail != nil {
		return 0, m.Fail
	}
	return m.version.Add(1), nil
}

func (m *MockVersionStore) Ping(ctx context.Context) error {
	return m.Fail
}
