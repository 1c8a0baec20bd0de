package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
	"github.com/custodia-labs/retriva-core/internal/core/ports/driven"
)

// MockJobQueue is an in-memory JobQueue for testing.
type MockJobQueue struct {
	mu      sync.Mutex
	pending []string
	jobs    map[string]*domain.IngestionJob
}

// NewMockJobQueue creates a new MockJobQueue
func NewMockJobQueue() *MockJobQueue {
	return &MockJobQueue{
		jobs: make(map[string]*domain.IngestionJob),
	}
}

func (m *MockJobQueue) Enqueue(ctx context.Context, job *domain.IngestionJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	m.pending = append(m.pending, job.ID)
	return nil
}

func (m *MockJobQueue) Dequeue(ctx context.Context) (*domain.IngestionJob, error) {
	return m.DequeueWithTimeout(ctx, 0)
}

func (m *MockJobQueue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.IngestionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, id := range m.pending {
		job := m.jobs[id]
		if job == nil || !job.IsReady() {
			continue
		}
		m.pending = append(m.pending[:i], m.pending[i+1:]...)
		job.MarkRunning()
		return job, nil
	}
	return nil, nil
}

func (m *MockJobQueue) Ack(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	job.MarkSucceeded()
	return nil
}

func (m *MockJobQueue) Nack(ctx context.Context, jobID string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.CanRetry() {
		job.Retry(reason)
		m.pending = append(m.pending, job.ID)
	} else {
		job.MarkFailed(reason)
	}
	return nil
}

func (m *MockJobQueue) GetJob(ctx context.Context, jobID string) (*domain.IngestionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

func (m *MockJobQueue) ListJobs(ctx context.Context, filter driven.JobFilter) ([]*domain.IngestionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var jobs []*domain.IngestionJob
	for _, job := range m.jobs {
		if filter.State != "" && job.State != filter.State {
			continue
		}
		jobs = append(jobs, job)
		if filter.Limit > 0 && len(jobs) >= filter.Limit {
			break
		}
	}
	return jobs, nil
}

func (m *MockJobQueue) PurgeJobs(ctx context.Context, olderThanSeconds int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-time.Duration(olderThanSeconds) * time.Second)
	purged := 0
	for id, job := range m.jobs {
		if job.IsTerminal() && job.UpdatedAt.Before(cutoff) {
			delete(m.jobs, id)
			purged++
		}
	}
	return purged, nil
}

func (m *MockJobQueue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &driven.QueueStats{}
	for _, job := range m.jobs {
		switch job.State {
		case domain.JobStateQueued:
			stats.QueuedCount++
		case domain.JobStateRunning:
			stats.RunningCount++
		case domain.JobStateSucceeded:
			stats.SucceededCount++
		case domain.JobStateFailed:
			stats.FailedCount++
		}
	}
	return stats, nil
}

func (m *MockJobQueue) Ping(ctx context.Context) error {
	return nil
}

func (m *MockJobQueue) Close() error {
	return nil
}
