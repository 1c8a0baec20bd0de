package index

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/vecgo/lexical/bm25"
	"github.com/hupe1980/vecgo/model"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
	"github.com/custodia-labs/retriva-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SearchBackend = (*SparseBackend)(nil)

type sparseEntry struct {
	chunkID string
	version int64
}

// SparseBackend implements SearchBackend on an in-memory BM25 index.
// Version filtering happens after scoring: the index is asked for extra
// candidates so the post-filter can still fill k slots.
type SparseBackend struct {
	idx *bm25.MemoryIndex

	mu      sync.RWMutex
	entries map[model.PrimaryKey]sparseEntry
	nextPK  model.PrimaryKey
}

// NewSparseBackend creates a sparse keyword backend.
func NewSparseBackend() *SparseBackend {
	return &SparseBackend{
		idx:     bm25.New(),
		entries: make(map[model.PrimaryKey]sparseEntry),
	}
}

// Name returns the backend name used in fusion weights and diagnostics.
func (s *SparseBackend) Name() string {
	return "sparse"
}

// Search returns up to k candidates for the query text, restricted to chunks
// visible at the pinned corpus version. The query vector is ignored.
func (s *SparseBackend) Search(ctx context.Context, query string, queryVector []float32, k int, corpusVersion int64) ([]domain.RetrievalCandidate, error) {
	if strings.TrimSpace(query) == "" || k <= 0 {
		return nil, nil
	}

	// Over-fetch so version filtering can still fill k slots
	matches, err := s.idx.SearchDAAT(query, k*4)
	if err != nil {
		return nil, fmt.Errorf("%w: sparse search: %v", domain.ErrBackendUnavailable, err)
	}

	s.mu.RLock()
	candidates := make([]domain.RetrievalCandidate, 0, k)
	for _, m := range matches {
		entry, ok := s.entries[m.PK]
		if !ok || entry.version > corpusVersion {
			continue
		}
		candidates = append(candidates, domain.RetrievalCandidate{
			ChunkID: entry.chunkID,
			Score:   float64(m.Score),
			Backend: s.Name(),
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// Index adds the chunks' text under the target corpus version.
func (s *SparseBackend) Index(ctx context.Context, chunks []*domain.Chunk, corpusVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		pk := s.nextPK
		s.nextPK++

		if err := s.idx.Add(pk, chunk.Text); err != nil {
			return fmt.Errorf("failed to index chunk %s: %w", chunk.ID, err)
		}
		s.entries[pk] = sparseEntry{chunkID: chunk.ID, version: corpusVersion}
	}
	return nil
}

// HealthCheck reports backend health. The index is in-process, so it is
// healthy as long as it exists.
func (s *SparseBackend) HealthCheck(ctx context.Context) error {
	return nil
}

// Close releases index resources.
func (s *SparseBackend) Close() error {
	return s.idx.Close()
}
