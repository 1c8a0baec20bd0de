package driving

import (
	"context"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
	"github.com/custodia-labs/retriva-core/internal/core/ports/driven"
)

// IngestionService is the ingestion trigger surface.
type IngestionService interface {
	// Enqueue queues documents for background (re)indexing and returns
	// the job ID
	Enqueue(ctx context.Context, refs []domain.DocumentRef) (string, error)

	// JobStatus returns the current state of a job
	JobStatus(ctx context.Context, jobID string) (*domain.IngestionJob, error)

	// ListJobs lists jobs matching the filter
	ListJobs(ctx context.Context, filter driven.JobFilter) ([]*domain.IngestionJob, error)

	// QueueStats returns queue statistics
	QueueStats(ctx context.Context) (*driven.QueueStats, error)
}
