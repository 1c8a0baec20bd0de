package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
)

// MockDocumentStore is an in-memory DocumentStore for testing.
type MockDocumentStore struct {
	mu     sync.RWMutex
	docs   map[string]*domain.Document
	chunks map[string]*domain.Chunk
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		docs:   make(map[string]*domain.Document),
		chunks: make(map[string]*domain.Chunk),
	}
}

func (m *MockDocumentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}

func (m *MockDocumentStore) SaveChunks(ctx context.Context, chunks []*domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.chunks[c.ID] = c
	}
	return nil
}

func (m *MockDocumentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *MockDocumentStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chunk, ok := m.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return chunk, nil
}

func (m *MockDocumentStore) ListByVersion(ctx context.Context, version int64) ([]*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var docs []*domain.Document
	for _, doc := range m.docs {
		if doc.IngestedAtVersion == version {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (m *MockDocumentStore) Ping(ctx context.Context) error {
	return nil
}

// MockContentFetcher resolves document refs from an in-memory map.
type MockContentFetcher struct {
	mu      sync.RWMutex
	content map[string]string

	// FailFetch, when set, is returned by every Fetch call
	FailFetch error
}

// NewMockContentFetcher creates a new MockContentFetcher
func NewMockContentFetcher() *MockContentFetcher {
	return &MockContentFetcher{content: make(map[string]string)}
}

// SetContent scripts the content returned for a URI
func (m *MockContentFetcher) SetContent(uri, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[uri] = content
}

func (m *MockContentFetcher) Fetch(ctx context.Context, ref domain.DocumentRef) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailFetch != nil {
		return "", m.FailFetch
	}
	content, ok := m.content[ref.URI]
	if !ok {
		return "", domain.ErrNotFound
	}
	return content, nil
}
