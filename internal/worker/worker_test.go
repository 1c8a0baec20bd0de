package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
	"github.com/custodia-labs/retriva-core/internal/core/ports/driven"
)

// mockJobQueue implements driven.JobQueue for testing
type mockJobQueue struct {
	mu           sync.Mutex
	jobs         []*domain.IngestionJob
	dequeueDelay time.Duration
	dequeueFn    func() (*domain.IngestionJob, error)
	ackFn        func(string) error
	nackFn       func(string, string) error
	pingFn       func() error
}

func newMockJobQueue() *mockJobQueue {
	return &mockJobQueue{
		jobs: make([]*domain.IngestionJob, 0),
	}
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *domain.IngestionJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *mockJobQueue) Dequeue(ctx context.Context) (*domain.IngestionJob, error) {
	if m.dequeueFn != nil {
		return m.dequeueFn()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.jobs) == 0 {
		return nil, nil
	}
	job := m.jobs[0]
	m.jobs = m.jobs[1:]
	return job, nil
}

func (m *mockJobQueue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.IngestionJob, error) {
	if m.dequeueDelay > 0 {
		select {
		case <-time.After(m.dequeueDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.Dequeue(ctx)
}

func (m *mockJobQueue) Ack(ctx context.Context, jobID string) error {
	if m.ackFn != nil {
		return m.ackFn(jobID)
	}
	return nil
}

func (m *mockJobQueue) Nack(ctx context.Context, jobID string, reason string) error {
	if m.nackFn != nil {
		return m.nackFn(jobID, reason)
	}
	return nil
}

func (m *mockJobQueue) GetJob(ctx context.Context, jobID string) (*domain.IngestionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.ID == jobID {
			return j, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockJobQueue) ListJobs(ctx context.Context, filter driven.JobFilter) ([]*domain.IngestionJob, error) {
	return m.jobs, nil
}

func (m *mockJobQueue) PurgeJobs(ctx context.Context, olderThanSeconds int) (int, error) {
	return 0, nil
}

func (m *mockJobQueue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	return &driven.QueueStats{
		QueuedCount: int64(len(m.jobs)),
	}, nil
}

func (m *mockJobQueue) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn()
	}
	return nil
}

func (m *mockJobQueue) Close() error {
	return nil
}

// Test that mock implements the interface
func TestMockJobQueueInterface(t *testing.T) {
	var _ driven.JobQueue = (*mockJobQueue)(nil)
}

// mockProcessor implements Processor for testing
type mockProcessor struct {
	processFn func(ctx context.Context, job *domain.IngestionJob) error
}

func (m *mockProcessor) ProcessJob(ctx context.Context, job *domain.IngestionJob) error {
	if m.processFn != nil {
		return m.processFn(ctx, job)
	}
	return nil
}

func TestMockProcessorInterface(t *testing.T) {
	var _ Processor = (*mockProcessor)(nil)
}

func TestNewWorker(t *testing.T) {
	queue := newMockJobQueue()
	logger := slog.Default()

	w := NewWorker(WorkerConfig{
		JobQueue:       queue,
		Logger:         logger,
		Concurrency:    2,
		DequeueTimeout: 5,
	})

	if w == nil {
		t.Fatal("expected non-nil worker")
	}
	if w.concurrency != 2 {
		t.Errorf("expected concurrency 2, got %d", w.concurrency)
	}
	if w.dequeueTimeout != 5 {
		t.Errorf("expected dequeue timeout 5, got %d", w.dequeueTimeout)
	}
}

func TestNewWorker_Defaults(t *testing.T) {
	queue := newMockJobQueue()

	w := NewWorker(WorkerConfig{
		JobQueue:       queue,
		Concurrency:    0, // Should default to 1
		DequeueTimeout: 0, // Should default to 5
	})

	if w.concurrency != 1 {
		t.Errorf("expected default concurrency 1, got %d", w.concurrency)
	}
	if w.dequeueTimeout != 5 {
		t.Errorf("expected default dequeue timeout 5, got %d", w.dequeueTimeout)
	}
	if w.logger == nil {
		t.Error("expected default logger")
	}
}

func TestWorker_StartStop(t *testing.T) {
	queue := newMockJobQueue()
	// Add delay so workers don't spin too fast
	queue.dequeueDelay = 100 * time.Millisecond

	w := NewWorker(WorkerConfig{
		JobQueue:       queue,
		Processor:      &mockProcessor{},
		Concurrency:    1,
		DequeueTimeout: 1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := w.Start(ctx)
	if err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}

	// Verify worker is running
	health := w.Health(ctx)
	if !health.Running {
		t.Error("expected worker to be running")
	}

	// Start again should be no-op
	err = w.Start(ctx)
	if err != nil {
		t.Errorf("second start should not error: %v", err)
	}

	// Stop the worker
	w.Stop()

	// Verify worker is stopped
	health = w.Health(ctx)
	if health.Running {
		t.Error("expected worker to be stopped")
	}

	// Stop again should be no-op
	w.Stop() // Should not panic
}

func TestWorker_Health(t *testing.T) {
	queue := newMockJobQueue()

	w := NewWorker(WorkerConfig{
		JobQueue:    queue,
		Concurrency: 1,
	})

	ctx := context.Background()

	// Not running initially
	health := w.Health(ctx)
	if health.Running {
		t.Error("expected not running")
	}
	if !health.QueueHealth {
		t.Error("expected queue to be healthy")
	}
}

func TestWorker_Health_QueueError(t *testing.T) {
	queue := newMockJobQueue()
	queue.pingFn = func() error {
		return errors.New("connection failed")
	}

	w := NewWorker(WorkerConfig{
		JobQueue:    queue,
		Concurrency: 1,
	})

	ctx := context.Background()

	health := w.Health(ctx)
	if health.QueueHealth {
		t.Error("expected queue to be unhealthy")
	}
	if health.Error != "connection failed" {
		t.Errorf("expected error message, got %q", health.Error)
	}
}

func TestWorker_ProcessJob_Success(t *testing.T) {
	queue := newMockJobQueue()
	proc := &mockProcessor{
		processFn: func(ctx context.Context, job *domain.IngestionJob) error {
			return nil
		},
	}

	var acked []string
	queue.ackFn = func(jobID string) error {
		acked = append(acked, jobID)
		return nil
	}

	job := domain.NewIngestionJob([]domain.DocumentRef{{URI: "https://example.com/doc"}})

	w := NewWorker(WorkerConfig{
		JobQueue:    queue,
		Processor:   proc,
		Concurrency: 1,
	})

	ctx := context.Background()
	w.processJob(ctx, job, slog.Default())

	if len(acked) != 1 {
		t.Errorf("expected 1 ack, got %d", len(acked))
	}
	if len(acked) == 1 && acked[0] != job.ID {
		t.Errorf("expected ack for %s, got %s", job.ID, acked[0])
	}
}

func TestWorker_ProcessJob_Failure(t *testing.T) {
	queue := newMockJobQueue()
	proc := &mockProcessor{
		processFn: func(ctx context.Context, job *domain.IngestionJob) error {
			return errors.New("fetch failed")
		},
	}

	var nacked []string
	var reasons []string
	queue.nackFn = func(jobID, reason string) error {
		nacked = append(nacked, jobID)
		reasons = append(reasons, reason)
		return nil
	}

	job := domain.NewIngestionJob([]domain.DocumentRef{{URI: "https://example.com/doc"}})

	w := NewWorker(WorkerConfig{
		JobQueue:    queue,
		Processor:   proc,
		Concurrency: 1,
	})

	ctx := context.Background()
	w.processJob(ctx, job, slog.Default())

	if len(nacked) != 1 {
		t.Fatalf("expected 1 nack, got %d", len(nacked))
	}
	if reasons[0] != "fetch failed" {
		t.Errorf("expected nack reason 'fetch failed', got %q", reasons[0])
	}
}

func TestWorker_ContextCancellation(t *testing.T) {
	queue := newMockJobQueue()
	// Slow dequeue so we can cancel
	queue.dequeueDelay = 500 * time.Millisecond

	w := NewWorker(WorkerConfig{
		JobQueue:       queue,
		Processor:      &mockProcessor{},
		Concurrency:    1,
		DequeueTimeout: 10,
	})

	ctx, cancel := context.WithCancel(context.Background())

	err := w.Start(ctx)
	if err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}

	// Cancel context after short delay
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	// Wait for worker to stop
	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()

	select {
	case <-done:
		// Good, worker stopped
	case <-time.After(2 * time.Second):
		t.Error("worker did not stop after context cancellation")
		w.Stop() // Force stop
	}
}

func TestWorker_ProcessLoop_WithJobs(t *testing.T) {
	queue := newMockJobQueue()
	proc := &mockProcessor{
		processFn: func(ctx context.Context, job *domain.IngestionJob) error {
			return nil
		},
	}

	job := domain.NewIngestionJob([]domain.DocumentRef{{URI: "https://example.com/doc"}})
	_ = queue.Enqueue(context.Background(), job)

	var mu sync.Mutex
	var acked []string
	queue.ackFn = func(jobID string) error {
		mu.Lock()
		defer mu.Unlock()
		acked = append(acked, jobID)
		return nil
	}

	w := NewWorker(WorkerConfig{
		JobQueue:       queue,
		Processor:      proc,
		Concurrency:    1,
		DequeueTimeout: 1,
	})

	ctx, cancel := context.WithCancel(context.Background())

	err := w.Start(ctx)
	if err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}

	// Wait for job to be processed
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(acked)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(acked) != 1 {
		t.Errorf("expected 1 ack, got %d", len(acked))
	}
}

func TestWorker_ProcessLoop_DequeueError(t *testing.T) {
	queue := newMockJobQueue()
	var mu sync.Mutex
	callCount := 0
	queue.dequeueFn = func() (*domain.IngestionJob, error) {
		mu.Lock()
		defer mu.Unlock()
		callCount++
		if callCount < 3 {
			return nil, errors.New("temporary error")
		}
		return nil, nil // No more errors
	}

	w := NewWorker(WorkerConfig{
		JobQueue:       queue,
		Processor:      &mockProcessor{},
		Concurrency:    1,
		DequeueTimeout: 1,
	})

	// Use a longer timeout since there's a 1s backoff after errors
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := w.Start(ctx)
	if err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}

	// Wait for worker to process and handle errors (need time for backoff)
	time.Sleep(2 * time.Second)
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	if callCount < 2 {
		t.Errorf("expected at least 2 dequeue attempts, got %d", callCount)
	}
}

func TestWorker_Ack_Error(t *testing.T) {
	queue := newMockJobQueue()
	proc := &mockProcessor{}

	ackCalled := false
	queue.ackFn = func(jobID string) error {
		ackCalled = true
		return errors.New("ack failed")
	}

	job := domain.NewIngestionJob([]domain.DocumentRef{{URI: "https://example.com/doc"}})

	w := NewWorker(WorkerConfig{
		JobQueue:    queue,
		Processor:   proc,
		Concurrency: 1,
	})

	ctx := context.Background()
	// This should not panic even if ack fails
	w.processJob(ctx, job, slog.Default())

	if !ackCalled {
		t.Error("expected ack to be called")
	}
}

func TestWorker_Nack_Error(t *testing.T) {
	queue := newMockJobQueue()
	proc := &mockProcessor{
		processFn: func(ctx context.Context, job *domain.IngestionJob) error {
			return errors.New("ingestion failed")
		},
	}

	nackCalled := false
	queue.nackFn = func(jobID, reason string) error {
		nackCalled = true
		return errors.New("nack failed")
	}

	job := domain.NewIngestionJob([]domain.DocumentRef{{URI: "https://example.com/doc"}})

	w := NewWorker(WorkerConfig{
		JobQueue:    queue,
		Processor:   proc,
		Concurrency: 1,
	})

	ctx := context.Background()
	// This should not panic even if nack fails
	w.processJob(ctx, job, slog.Default())

	if !nackCalled {
		t.Error("expected nack to be called")
	}
}
