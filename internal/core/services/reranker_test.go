package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
	"github.com/custodia-labs/retriva-core/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/retriva-core/internal/runtime"
)

func setupReranker(t *testing.T, llm *mocks.MockLLMService) (*Reranker, *mocks.MockDocumentStore) {
	t.Helper()
	services := runtime.NewServices()
	if llm != nil {
		services.SetLLMService(llm)
	}
	store := mocks.NewMockDocumentStore()
	admission := NewAdmissionController(0.001, 100)
	return NewReranker(services, admission, store, 1, nil), store
}

func storeChunk(t *testing.T, store *mocks.MockDocumentStore, id, text string) {
	t.Helper()
	err := store.SaveChunks(context.Background(), []*domain.Chunk{
		{ID: id, DocumentID: "doc-1", Text: text},
	})
	require.NoError(t, err)
}

func fused(ids ...string) []domain.FusedResult {
	out := make([]domain.FusedResult, len(ids))
	for i, id := range ids {
		out[i] = domain.FusedResult{ChunkID: id, Score: 1.0 / float64(i+1)}
	}
	return out
}

func TestRerank_EmptyCandidates(t *testing.T) {
	reranker, _ := setupReranker(t, mocks.NewMockLLMService())

	results, err := reranker.Rerank(context.Background(), "caller-1", "query", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRerank_OrdersByScore(t *testing.T) {
	llm := mocks.NewMockLLMService()
	llm.Scores["a"] = 0.2
	llm.Scores["b"] = 0.9
	llm.Compressed["a"] = "text a"
	llm.Compressed["b"] = "text b"
	reranker, store := setupReranker(t, llm)
	storeChunk(t, store, "a", "full text a")
	storeChunk(t, store, "b", "full text b")

	results, err := reranker.Rerank(context.Background(), "caller-1", "query", fused("a", "b"), 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].ChunkID)
	assert.Equal(t, "text b", results[0].Text)
	assert.Equal(t, "a", results[1].ChunkID)
}

func TestRerank_EqualScoresKeepInputOrder(t *testing.T) {
	llm := mocks.NewMockLLMService()
	llm.Scores["a"] = 0.5
	llm.Scores["b"] = 0.5
	llm.Scores["c"] = 0.5
	llm.Compressed["a"] = "ta"
	llm.Compressed["b"] = "tb"
	llm.Compressed["c"] = "tc"
	reranker, _ := setupReranker(t, llm)

	results, err := reranker.Rerank(context.Background(), "caller-1", "query", fused("a", "b", "c"), 5)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"a", "b", "c"},
		[]string{results[0].ChunkID, results[1].ChunkID, results[2].ChunkID})
}

func TestRerank_DropsEmptyCompressedText(t *testing.T) {
	llm := mocks.NewMockLLMService()
	llm.Scores["a"] = 0.9
	llm.Compressed["a"] = ""
	llm.Scores["b"] = 0.5
	llm.Compressed["b"] = "kept"
	reranker, _ := setupReranker(t, llm)

	results, err := reranker.Rerank(context.Background(), "caller-1", "query", fused("a", "b"), 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ChunkID)
}

func TestRerank_TruncatesToTopN(t *testing.T) {
	llm := mocks.NewMockLLMService()
	for _, id := range []string{"a", "b", "c", "d"} {
		llm.Compressed[id] = "text " + id
	}
	reranker, _ := setupReranker(t, llm)

	results, err := reranker.Rerank(context.Background(), "caller-1", "query", fused("a", "b", "c", "d"), 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRerank_AdmissionRejectionSurfaces(t *testing.T) {
	services := runtime.NewServices()
	services.SetLLMService(mocks.NewMockLLMService())
	admission := NewAdmissionController(0.001, 1)
	reranker := NewReranker(services, admission, mocks.NewMockDocumentStore(), 1, nil)

	// Exhaust the caller's bucket
	require.NoError(t, admission.TryAdmit("caller-1", 1))

	_, err := reranker.Rerank(context.Background(), "caller-1", "query", fused("a"), 5)
	require.Error(t, err)
	_, ok := domain.IsAdmissionRejected(err)
	assert.True(t, ok)
}

func TestRerank_LLMFailure(t *testing.T) {
	llm := mocks.NewMockLLMService()
	llm.FailRerank = errors.New("model down")
	reranker, _ := setupReranker(t, llm)

	_, err := reranker.Rerank(context.Background(), "caller-1", "query", fused("a"), 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRerankFailed)
}

func TestRerank_PassthroughWithoutLLM(t *testing.T) {
	reranker, store := setupReranker(t, nil)
	storeChunk(t, store, "a", "text a")
	storeChunk(t, store, "b", "text b")

	results, err := reranker.Rerank(context.Background(), "caller-1", "query", fused("a", "b"), 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ChunkID, "fused order preserved")
	assert.Equal(t, "text a", results[0].Text)
}
