package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
	"github.com/custodia-labs/retriva-core/internal/runtime"
)

// QueryDecomposer splits a compound query into independent sub-queries via
// the LLM service. Decomposition is best-effort: if the LLM is unavailable,
// fails, or times out, the decomposer falls back to the identity sequence
// (the normalized query as the single sub-query) instead of failing the
// request.
type QueryDecomposer struct {
	services *runtime.Services
	timeout  time.Duration
	logger   *slog.Logger
}

// NewQueryDecomposer creates a new QueryDecomposer.
// The LLM service is accessed dynamically via runtime.Services.
func NewQueryDecomposer(services *runtime.Services, timeout time.Duration, logger *slog.Logger) *QueryDecomposer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryDecomposer{
		services: services,
		timeout:  timeout,
		logger:   logger,
	}
}

// Decompose returns between 1 and maxSubQueries sub-queries for the query,
// in ordinal order. The identity sequence is always a valid outcome.
func (d *QueryDecomposer) Decompose(ctx context.Context, queryID, query string, maxSubQueries int) []domain.SubQuery {
	normalized := domain.NormalizeQuery(query)

	identity := []domain.SubQuery{{
		ParentQueryID: queryID,
		Ordinal:       0,
		Text:          normalized,
	}}

	if maxSubQueries <= 1 {
		return identity
	}

	llm := d.services.LLMService()
	if llm == nil {
		return identity
	}

	llmCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	parts, err := llm.DecomposeQuery(llmCtx, normalized, maxSubQueries)
	if err != nil {
		// Local recovery, never surfaced as an error
		d.logger.Warn("query decomposition failed, using identity", "query_id", queryID, "error", err)
		return identity
	}

	subs := make([]domain.SubQuery, 0, maxSubQueries)
	seen := make(map[string]bool)
	for _, part := range parts {
		text := domain.NormalizeQuery(part)
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		subs = append(subs, domain.SubQuery{
			ParentQueryID: queryID,
			Ordinal:       len(subs),
			Text:          text,
		})
		if len(subs) == maxSubQueries {
			break
		}
	}

	if len(subs) == 0 {
		return identity
	}
	return subs
}
