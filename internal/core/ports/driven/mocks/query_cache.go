package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
)

// MockQueryCache is an in-memory QueryCache for testing.
type MockQueryCache struct {
	mu      sync.RWMutex
	entries map[string]*domain.CacheEntry

	// Fail, when set, is returned by every call to simulate an
	// unavailable cache
	Fail error

	// Call counters
	GetCalls int
	PutCalls int
}

// NewMockQueryCache creates a new MockQueryCache
func NewMockQueryCache() *MockQueryCache {
	return &MockQueryCache{
		entries: make(map[string]*domain.CacheEntry),
	}
}

func (m *MockQueryCache) Get(ctx context.Context, fingerprint string) (*domain.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls++
	if m.Fail != nil {
		return nil, m.Fail
	}

	entry, ok := m.entries[fingerprint]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return entry, nil
}

func (m *MockQueryCache) Put(ctx context.Context, entry *domain.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PutCalls++
	if m.Fail != nil {
		return m.Fail
	}

	m.entries[entry.Fingerprint] = entry
	return nil
}

func (m *MockQueryCache) Delete(ctx context.Context, fingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Fail != nil {
		return m.Fail
	}
	delete(m.entries, fingerprint)
	return nil
}

func (m *MockQueryCache) Ping(ctx context.Context) error {
	return m.Fail
}
