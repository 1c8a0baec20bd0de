package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
)

func candidates(backend string, ids ...string) []domain.RetrievalCandidate {
	out := make([]domain.RetrievalCandidate, len(ids))
	for i, id := range ids {
		out[i] = domain.RetrievalCandidate{
			ChunkID: id,
			Score:   1.0 / float64(i+1),
			Backend: backend,
		}
	}
	return out
}

func TestRankFusion_Deterministic(t *testing.T) {
	fusion := NewRankFusion(nil, 0)
	perBackend := map[string][]domain.RetrievalCandidate{
		"dense":  candidates("dense", "A", "B", "C"),
		"sparse": candidates("sparse", "B", "A", "D"),
	}

	first := fusion.Fuse(perBackend, 10)
	for i := 0; i < 10; i++ {
		again := fusion.Fuse(perBackend, 10)
		assert.Equal(t, first, again, "identical inputs must fuse identically")
	}
}

func TestRankFusion_CrossBackendAgreementWins(t *testing.T) {
	fusion := NewRankFusion(nil, 0)
	perBackend := map[string][]domain.RetrievalCandidate{
		"dense":  candidates("dense", "A", "B", "C"),
		"sparse": candidates("sparse", "B", "A", "D"),
	}

	fused := fusion.Fuse(perBackend, 10)
	require.Len(t, fused, 4)

	// A and B appear in both backends at ranks {0,1}; C and D in one
	// backend at rank 2. Both pairs tie internally, so chunk ID breaks
	// the ties.
	assert.Equal(t, "A", fused[0].ChunkID)
	assert.Equal(t, "B", fused[1].ChunkID)
	assert.Equal(t, "C", fused[2].ChunkID)
	assert.Equal(t, "D", fused[3].ChunkID)

	assert.InDelta(t, fused[0].Score, fused[1].Score, 1e-12)
	assert.Greater(t, fused[1].Score, fused[2].Score)
	assert.ElementsMatch(t, []string{"dense", "sparse"}, fused[0].Backends)
	assert.Equal(t, 0, fused[0].MinRank)
}

func TestRankFusion_ExtraContributionNeverHurts(t *testing.T) {
	fusion := NewRankFusion(nil, 0)

	without := fusion.Fuse(map[string][]domain.RetrievalCandidate{
		"dense": candidates("dense", "A", "B"),
	}, 10)
	with := fusion.Fuse(map[string][]domain.RetrievalCandidate{
		"dense":  candidates("dense", "A", "B"),
		"sparse": candidates("sparse", "A"),
	}, 10)

	scoreOf := func(results []domain.FusedResult, id string) float64 {
		for _, r := range results {
			if r.ChunkID == id {
				return r.Score
			}
		}
		t.Fatalf("chunk %s not in results", id)
		return 0
	}

	// An extra backend contribution can only raise a candidate's score
	assert.Greater(t, scoreOf(with, "A"), scoreOf(without, "A"))
	assert.InDelta(t, scoreOf(without, "B"), scoreOf(with, "B"), 1e-12)
}

func TestRankFusion_Weights(t *testing.T) {
	fusion := NewRankFusion(map[string]float64{"sparse": 3.0}, 0)
	perBackend := map[string][]domain.RetrievalCandidate{
		"dense":  candidates("dense", "A"),
		"sparse": candidates("sparse", "B"),
	}

	fused := fusion.Fuse(perBackend, 10)
	require.Len(t, fused, 2)
	assert.Equal(t, "B", fused[0].ChunkID, "weighted backend should dominate at equal rank")
}

func TestRankFusion_TruncatesToK(t *testing.T) {
	fusion := NewRankFusion(nil, 0)
	perBackend := map[string][]domain.RetrievalCandidate{
		"dense": candidates("dense", "A", "B", "C", "D", "E"),
	}

	fused := fusion.Fuse(perBackend, 3)
	assert.Len(t, fused, 3)
}

func TestRankFusion_EmptyInput(t *testing.T) {
	fusion := NewRankFusion(nil, 0)

	assert.Empty(t, fusion.Fuse(nil, 10))
	assert.Empty(t, fusion.Fuse(map[string][]domain.RetrievalCandidate{}, 10))
}
