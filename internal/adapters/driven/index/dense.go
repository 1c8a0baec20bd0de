package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/vecgo"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
	"github.com/custodia-labs/retriva-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SearchBackend = (*DenseBackend)(nil)

// vectorID is the ID width vecgo hands to search filters. BatchInsert
// reports uint64 IDs, so inserts narrow through this alias; if vecgo ever
// widens its filter IDs, the version map and the narrowing conversion below
// change together here.
type vectorID = uint32

// DenseBackend implements SearchBackend on an embedded vecgo HNSW index.
// Chunk IDs are stored as the vector payload; each insert records the corpus
// version it belongs to so queries pinned to an older version never see
// chunks from a newer generation.
type DenseBackend struct {
	db         *vecgo.Vecgo[string]
	dimensions int

	mu       sync.RWMutex
	versions map[vectorID]int64
}

// NewDenseBackend creates a dense vector backend with the given embedding
// dimensionality.
func NewDenseBackend(dimensions int) (*DenseBackend, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", domain.ErrInvalidInput)
	}

	db, err := vecgo.HNSW[string](dimensions).Cosine().Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build dense index: %w", err)
	}

	return &DenseBackend{
		db:         db,
		dimensions: dimensions,
		versions:   make(map[vectorID]int64),
	}, nil
}

// Name returns the backend name used in fusion weights and diagnostics.
func (d *DenseBackend) Name() string {
	return "dense"
}

// Search returns up to k candidates nearest to the query vector, restricted
// to chunks visible at the pinned corpus version. A missing query vector
// yields no candidates; the text-only path is the sparse backend's job.
func (d *DenseBackend) Search(ctx context.Context, query string, queryVector []float32, k int, corpusVersion int64) ([]domain.RetrievalCandidate, error) {
	if len(queryVector) == 0 {
		return nil, nil
	}
	if len(queryVector) != d.dimensions {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, index has %d", domain.ErrInvalidInput, len(queryVector), d.dimensions)
	}

	results, err := d.db.Search(queryVector).
		KNN(k).
		Filter(func(id uint32) bool {
			d.mu.RLock()
			version, ok := d.versions[id]
			d.mu.RUnlock()
			return ok && version <= corpusVersion
		}).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: dense search: %v", domain.ErrBackendUnavailable, err)
	}

	candidates := make([]domain.RetrievalCandidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, domain.RetrievalCandidate{
			ChunkID: r.Data,
			// Cosine distance inverted into a similarity-like score
			Score:   1.0 / (1.0 + float64(r.Distance)),
			Backend: d.Name(),
		})
	}
	return candidates, nil
}

// Index inserts the chunks' embeddings under the target corpus version.
// Chunks without an embedding are skipped; they remain reachable through
// the sparse backend.
func (d *DenseBackend) Index(ctx context.Context, chunks []*domain.Chunk, corpusVersion int64) error {
	items := make([]vecgo.VectorWithData[string], 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		if len(chunk.Embedding) != d.dimensions {
			return fmt.Errorf("%w: chunk %s embedding has %d dimensions, index has %d", domain.ErrInvalidInput, chunk.ID, len(chunk.Embedding), d.dimensions)
		}
		items = append(items, vecgo.VectorWithData[string]{
			Vector: chunk.Embedding,
			Data:   chunk.ID,
		})
	}
	if len(items) == 0 {
		return nil
	}

	result := d.db.BatchInsert(ctx, items)
	for _, err := range result.Errors {
		if err != nil {
			return fmt.Errorf("failed to index chunks: %w", err)
		}
	}

	d.mu.Lock()
	for _, id := range result.IDs {
		d.versions[vectorID(id)] = corpusVersion
	}
	d.mu.Unlock()

	return nil
}

// HealthCheck reports backend health. The index is in-process, so it is
// healthy as long as it exists.
func (d *DenseBackend) HealthCheck(ctx context.Context) error {
	return nil
}

// Close releases index resources.
func (d *DenseBackend) Close() error {
	return d.db.Close()
}
