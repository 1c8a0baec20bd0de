package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/retriva-core/internal/core/ports/driven"
)

// MockLLMService is an in-memory LLMService for testing.
// Decompositions and rerank scores are scripted; failures can be injected
// per method.
type MockLLMService struct {
	mu sync.Mutex

	// Decompositions maps a query to its scripted sub-queries
	Decompositions map[string][]string

	// Scores maps chunk ID to a scripted relevance score; unscripted
	// chunks keep their input score
	Scores map[string]float64

	// Compressed maps chunk ID to its compressed text; an entry with an
	// empty string makes the reranker drop the chunk
	Compressed map[string]string

	// Answer is returned by GenerateAnswer
	Answer string

	// Per-method failure injection
	FailDecompose error
	FailRerank    error
	FailGenerate  error

	// Call counters
	DecomposeCalls int
	RerankCalls    int
	GenerateCalls  int
}

// NewMockLLMService creates a new MockLLMService
func NewMockLLMService() *MockLLMService {
	return &MockLLMService{
		Decompositions: make(map[string][]string),
		Scores:         make(map[string]float64),
		Compressed:     make(map[string]string),
		Answer:         "mock answer",
	}
}

func (m *MockLLMService) DecomposeQuery(ctx context.Context, query string, max int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DecomposeCalls++
	if m.FailDecompose != nil {
		return nil, m.FailDecompose
	}

	subs, ok := m.Decompositions[query]
	if !ok {
		return []string{query}, nil
	}
	if max > 0 && len(subs) > max {
		subs = subs[:max]
	}
	return subs, nil
}

func (m *MockLLMService) RerankChunks(ctx context.Context, query string, chunks []driven.RerankedChunk) ([]driven.RerankedChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RerankCalls++
	if m.FailRerank != nil {
		return nil, m.FailRerank
	}

	out := make([]driven.RerankedChunk, len(chunks))
	copy(out, chunks)
	for i := range out {
		if score, ok := m.Scores[out[i].ChunkID]; ok {
			out[i].Score = score
		}
		if text, ok := m.Compressed[out[i].ChunkID]; ok {
			out[i].Text = text
		}
	}
	return out, nil
}

func (m *MockLLMService) GenerateAnswer(ctx context.Context, query string, contexts []driven.RerankedChunk) (*driven.GeneratedAnswer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GenerateCalls++
	if m.FailGenerate != nil {
		return nil, m.FailGenerate
	}

	ids := make([]string, 0, len(contexts))
	for _, c := range contexts {
		ids = append(ids, c.ChunkID)
	}
	return &driven.GeneratedAnswer{Answer: m.Answer, ChunkIDs: ids}, nil
}

func (m *MockLLMService) Model() string {
	return "mock-llm"
}

func (m *MockLLMService) Ping(ctx context.Context) error {
	return nil
}

func (m *MockLLMService) Close() error {
	return nil
}
