package mocks

import (
	"context"
	"sync"
)

// MockEmbeddingService is an in-memory EmbeddingService for testing.
// Vectors are deterministic functions of the input text.
type MockEmbeddingService struct {
	mu sync.Mutex

	// FailEmbed, when set, is returned by Embed and EmbedQuery
	FailEmbed error

	// EmbedCalls counts embedding invocations
	EmbedCalls int
}

// NewMockEmbeddingService creates a new MockEmbeddingService
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EmbedCalls++
	if m.FailEmbed != nil {
		return nil, m.FailEmbed
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = vectorFor(t)
	}
	return out, nil
}

func (m *MockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EmbedCalls++
	if m.FailEmbed != nil {
		return nil, m.FailEmbed
	}
	return vectorFor(query), nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return 4
}

func (m *MockEmbeddingService) Model() string {
	return "mock-embedding"
}

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MockEmbeddingService) Close() error {
	return nil
}

// vectorFor derives a stable 4-dimensional vector from text
func vectorFor(text string) []float32 {
	var sum float32
	for _, r := range text {
		sum += float32(r)
	}
	return []float32{sum, float32(len(text)), 1, 0}
}
