package driven

import (
	"context"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
)

// JobQueue handles background ingestion job queuing and processing.
type JobQueue interface {
	// Enqueue adds a job to the queue for processing.
	Enqueue(ctx context.Context, job *domain.IngestionJob) error

	// Dequeue retrieves the next available job for processing.
	// This should block until a job is available or context is cancelled.
	// Returns nil, nil if no jobs are available (for non-blocking
	// implementations).
	Dequeue(ctx context.Context) (*domain.IngestionJob, error)

	// DequeueWithTimeout retrieves the next available job, waiting up to
	// timeout seconds. Returns nil, nil if the timeout is reached with no
	// jobs available.
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.IngestionJob, error)

	// Ack acknowledges successful completion of a job.
	Ack(ctx context.Context, jobID string) error

	// Nack indicates job processing failed. The job is re-queued with an
	// updated retry count, or marked failed once max retries is exceeded.
	Nack(ctx context.Context, jobID string, reason string) error

	// GetJob retrieves a job by ID (for status polling).
	GetJob(ctx context.Context, jobID string) (*domain.IngestionJob, error)

	// ListJobs retrieves jobs matching the filter criteria.
	ListJobs(ctx context.Context, filter JobFilter) ([]*domain.IngestionJob, error)

	// PurgeJobs removes terminal jobs older than the specified age in
	// seconds. Returns how many were removed.
	PurgeJobs(ctx context.Context, olderThanSeconds int) (int, error)

	// Stats returns queue statistics.
	Stats(ctx context.Context) (*QueueStats, error)

	// Ping checks if the queue backend is healthy.
	Ping(ctx context.Context) error

	// Close cleans up resources.
	Close() error
}

// JobFilter specifies criteria for listing jobs
type JobFilter struct {
	// State filters by job state (optional, empty means all)
	State domain.JobState

	// Limit is the maximum number of jobs to return
	Limit int
}

// QueueStats contains queue statistics
type QueueStats struct {
	// QueuedCount is the number of jobs waiting to be processed
	QueuedCount int64 `json:"queued_count"`

	// RunningCount is the number of jobs currently being processed
	RunningCount int64 `json:"running_count"`

	// SucceededCount is the number of successfully completed jobs
	SucceededCount int64 `json:"succeeded_count"`

	// FailedCount is the number of jobs that failed after all retries
	FailedCount int64 `json:"failed_count"`
}
