package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
	"github.com/custodia-labs/retriva-core/internal/core/ports/driven"
	"github.com/custodia-labs/retriva-core/internal/runtime"
)

// Reranker re-scores fused candidates with the LLM and compresses their
// content. Every invocation is funneled through the admission controller
// before the model is called. Candidates whose compressed text comes back
// empty were judged irrelevant and are dropped, not replaced. Equal scores
// keep their input order.
type Reranker struct {
	services  *runtime.Services
	admission *AdmissionController
	store     driven.DocumentStore
	cost      int
	logger    *slog.Logger
}

// NewReranker creates a new Reranker. cost is the admission cost charged
// per rerank call.
func NewReranker(services *runtime.Services, admission *AdmissionController, store driven.DocumentStore, cost int, logger *slog.Logger) *Reranker {
	if cost <= 0 {
		cost = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reranker{
		services:  services,
		admission: admission,
		store:     store,
		cost:      cost,
		logger:    logger,
	}
}

// Rerank returns at most topN reranked results for the candidates, ordered
// by relevance. Admission rejection surfaces as *domain.AdmissionError.
func (r *Reranker) Rerank(ctx context.Context, callerID, query string, candidates []domain.FusedResult, topN int) ([]domain.RankedResult, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	if err := r.admission.TryAdmit(callerID, r.cost); err != nil {
		return nil, err
	}

	llm := r.services.LLMService()
	if llm == nil {
		// No model available: keep the fused order, load texts as-is
		return r.passthrough(ctx, candidates, topN), nil
	}

	chunks := make([]driven.RerankedChunk, 0, len(candidates))
	for _, c := range candidates {
		text := ""
		if chunk, err := r.store.GetChunk(ctx, c.ChunkID); err == nil {
			text = chunk.Text
		}
		chunks = append(chunks, driven.RerankedChunk{
			ChunkID: c.ChunkID,
			Score:   c.Score,
			Text:    text,
		})
	}

	reranked, err := llm.RerankChunks(ctx, query, chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRerankFailed, err)
	}

	// Stable sort: equal relevance keeps input order
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	results := make([]domain.RankedResult, 0, topN)
	for _, c := range reranked {
		if c.Text == "" {
			// Judged irrelevant by the compressor
			continue
		}
		results = append(results, domain.RankedResult{
			ChunkID: c.ChunkID,
			Score:   c.Score,
			Text:    c.Text,
		})
		if topN > 0 && len(results) == topN {
			break
		}
	}
	return results, nil
}

// passthrough keeps the fused ordering when no LLM is configured.
func (r *Reranker) passthrough(ctx context.Context, candidates []domain.FusedResult, topN int) []domain.RankedResult {
	results := make([]domain.RankedResult, 0, topN)
	for _, c := range candidates {
		text := ""
		if chunk, err := r.store.GetChunk(ctx, c.ChunkID); err == nil {
			text = chunk.Text
		}
		results = append(results, domain.RankedResult{
			ChunkID: c.ChunkID,
			Score:   c.Score,
			Text:    text,
		})
		if topN > 0 && len(results) == topN {
			break
		}
	}
	return results
}
