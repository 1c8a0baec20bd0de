package driven

import (
	"context"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
)

// SearchBackend is one retrieval index (dense vector or sparse keyword).
// The corpus is opaque to the core: backends only expose ranked candidates.
type SearchBackend interface {
	// Name identifies the backend in fusion weights and result provenance
	Name() string

	// Search returns up to k candidates ordered best-first. The
	// corpusVersion pins which index generation is searched so retrieval
	// stays consistent with the version used for cache-key construction.
	// queryVector may be nil for backends that rank on text alone.
	Search(ctx context.Context, query string, queryVector []float32, k int, corpusVersion int64) ([]domain.RetrievalCandidate, error)

	// Index writes chunks into the backend for the given target version.
	// Chunks become visible to searches pinned at or after that version.
	Index(ctx context.Context, chunks []*domain.Chunk, corpusVersion int64) error

	// HealthCheck verifies the backend is available
	HealthCheck(ctx context.Context) error
}
