package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
)

// MockSearchBackend is an in-memory SearchBackend for testing.
// Results are scripted per query; Search failures can be injected.
type MockSearchBackend struct {
	mu      sync.RWMutex
	name    string
	results map[string][]domain.RetrievalCandidate
	indexed map[int64][]*domain.Chunk

	// FailSearch, when set, is returned by every Search call
	FailSearch error

	// FailQueries maps a query to an error returned only for that query;
	// other queries keep their scripted results
	FailQueries map[string]error

	// SearchCalls counts Search invocations
	SearchCalls int
}

// NewMockSearchBackend creates a new MockSearchBackend
func NewMockSearchBackend(name string) *MockSearchBackend {
	return &MockSearchBackend{
		name:        name,
		results:     make(map[string][]domain.RetrievalCandidate),
		indexed:     make(map[int64][]*domain.Chunk),
		FailQueries: make(map[string]error),
	}
}

// SetResults scripts the candidates returned for a query
func (m *MockSearchBackend) SetResults(query string, candidates []domain.RetrievalCandidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[query] = candidates
}

func (m *MockSearchBackend) Name() string {
	return m.name
}

func (m *MockSearchBackend) Search(ctx context.Context, query string, queryVector []float32, k int, corpusVersion int64) ([]domain.RetrievalCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SearchCalls++
	if m.FailSearch != nil {
		return nil, m.FailSearch
	}
	if err, ok := m.FailQueries[query]; ok {
		return nil, err
	}

	candidates := m.results[query]
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]domain.RetrievalCandidate, len(candidates))
	copy(out, candidates)
	for i := range out {
		out[i].Backend = m.name
	}
	return out, nil
}

func (m *MockSearchBackend) Index(ctx context.Context, chunks []*domain.Chunk, corpusVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexed[corpusVersion] = append(m.indexed[corpusVersion], chunks...)
	return nil
}

// IndexedAt returns the chunks indexed under a corpus version
func (m *MockSearchBackend) IndexedAt(corpusVersion int64) []*domain.Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexed[corpusVersion]
}

func (m *MockSearchBackend) HealthCheck(ctx context.Context) error {
	return nil
}
