package services

import (
	"sort"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
)

// DefaultRankOffset is the standard reciprocal-rank fusion constant.
const DefaultRankOffset = 60.0

// RankFusion merges ranked candidate lists from multiple backends into one
// ordering. A candidate's fused score is the sum over contributing backends
// of weight[backend] / (rank + offset), with 0-based ranks. Candidates
// absent from a backend get no contribution from it. The output order is
// total: fused score descending, then smallest rank across backends, then
// chunk ID - identical inputs always fuse identically.
type RankFusion struct {
	weights map[string]float64
	offset  float64
}

// NewRankFusion creates a RankFusion with per-backend weights. Backends
// without an explicit weight count as 1.0. A non-positive offset falls back
// to DefaultRankOffset.
func NewRankFusion(weights map[string]float64, offset float64) *RankFusion {
	if offset <= 0 {
		offset = DefaultRankOffset
	}
	return &RankFusion{weights: weights, offset: offset}
}

// Fuse merges per-backend result lists into at most k fused results.
func (f *RankFusion) Fuse(perBackend map[string][]domain.RetrievalCandidate, k int) []domain.FusedResult {
	type accum struct {
		score    float64
		backends []string
		minRank  int
	}
	acc := make(map[string]*accum)

	// Deterministic iteration over backends
	names := make([]string, 0, len(perBackend))
	for name := range perBackend {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		weight := 1.0
		if w, ok := f.weights[name]; ok {
			weight = w
		}
		for rank, candidate := range perBackend[name] {
			a, ok := acc[candidate.ChunkID]
			if !ok {
				a = &accum{minRank: rank}
				acc[candidate.ChunkID] = a
			}
			a.score += weight / (float64(rank) + f.offset)
			a.backends = append(a.backends, name)
			if rank < a.minRank {
				a.minRank = rank
			}
		}
	}

	fused := make([]domain.FusedResult, 0, len(acc))
	for chunkID, a := range acc {
		fused = append(fused, domain.FusedResult{
			ChunkID:  chunkID,
			Score:    a.score,
			Backends: a.backends,
			MinRank:  a.minRank,
		})
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		if fused[i].MinRank != fused[j].MinRank {
			return fused[i].MinRank < fused[j].MinRank
		}
		return fused[i].ChunkID < fused[j].ChunkID
	})

	if k > 0 && len(fused) > k {
		fused = fused[:k]
	}
	return fused
}
