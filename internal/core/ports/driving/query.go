package driving

import (
	"context"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
)

// QueryService is the query surface: decompose, retrieve, fuse, rerank,
// generate, cache.
type QueryService interface {
	// ProcessQuery runs the full pipeline for one request. Admission
	// rejection surfaces as *domain.AdmissionError; sub-query failures do
	// not fail the request, they are flagged in the result breakdown.
	ProcessQuery(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error)
}
