package driven

import (
	"context"
)

// RerankedChunk is one LLM-scored candidate. An empty Text signals the
// content was judged irrelevant and the candidate should be dropped.
type RerankedChunk struct {
	ChunkID string
	Score   float64
	Text    string
}

// GeneratedAnswer is the output of the downstream generation call.
type GeneratedAnswer struct {
	Answer   string
	ChunkIDs []string
}

// LLMService provides the expensive language-model calls. Every method here
// except Ping must be funneled through the admission controller by callers.
type LLMService interface {
	// DecomposeQuery splits a compound query into at most max independent
	// sub-queries. An atomic query yields a single-element result.
	DecomposeQuery(ctx context.Context, query string, max int) ([]string, error)

	// RerankChunks re-scores candidates against the query and compresses
	// each candidate's content. Output order is model-determined; callers
	// re-sort with a stable tie-break.
	RerankChunks(ctx context.Context, query string, chunks []RerankedChunk) ([]RerankedChunk, error)

	// GenerateAnswer produces the final natural-language answer over the
	// supplied context texts, keyed by chunk ID.
	GenerateAnswer(ctx context.Context, query string, contexts []RerankedChunk) (*GeneratedAnswer, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the LLM service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the LLM service
	Close() error
}
