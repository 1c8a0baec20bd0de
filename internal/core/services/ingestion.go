package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
	"github.com/custodia-labs/retriva-core/internal/core/ports/driven"
	"github.com/custodia-labs/retriva-core/internal/core/ports/driving"
	"github.com/custodia-labs/retriva-core/internal/runtime"
)

// ingestionApplyLock serializes the apply+advance step across instances so
// the corpus version advances exactly once per successful batch.
const ingestionApplyLock = "ingestion:apply"

// Ensure IngestionCoordinator implements IngestionService
var _ driving.IngestionService = (*IngestionCoordinator)(nil)

// IngestionCoordinator drives the ingestion job lifecycle: enqueue on the
// trigger surface, and fetch -> chunk -> embed -> index -> version advance
// when a worker hands it a job. On any step failure the job fails and the
// corpus version is left untouched, so the version number always denotes a
// fully-applied index generation.
type IngestionCoordinator struct {
	queue    driven.JobQueue
	fetcher  driven.ContentFetcher
	pipeline driven.ChunkPipeline
	backends []driven.SearchBackend
	docs     driven.DocumentStore
	versions driven.VersionStore
	lock     driven.DistributedLock
	services *runtime.Services
	logger   *slog.Logger
}

// NewIngestionCoordinator creates a new IngestionCoordinator.
// The embedding service is accessed dynamically via runtime.Services; lock
// may be nil for single-instance deployments.
func NewIngestionCoordinator(
	queue driven.JobQueue,
	fetcher driven.ContentFetcher,
	pipeline driven.ChunkPipeline,
	backends []driven.SearchBackend,
	docs driven.DocumentStore,
	versions driven.VersionStore,
	lock driven.DistributedLock,
	services *runtime.Services,
	logger *slog.Logger,
) *IngestionCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestionCoordinator{
		queue:    queue,
		fetcher:  fetcher,
		pipeline: pipeline,
		backends: backends,
		docs:     docs,
		versions: versions,
		lock:     lock,
		services: services,
		logger:   logger,
	}
}

// Enqueue queues documents for background (re)indexing.
func (c *IngestionCoordinator) Enqueue(ctx context.Context, refs []domain.DocumentRef) (string, error) {
	if len(refs) == 0 {
		return "", fmt.Errorf("%w: no document refs", domain.ErrInvalidInput)
	}
	for _, ref := range refs {
		if ref.URI == "" {
			return "", fmt.Errorf("%w: document ref without uri", domain.ErrInvalidInput)
		}
	}

	job := domain.NewIngestionJob(refs)
	if err := c.queue.Enqueue(ctx, job); err != nil {
		return "", fmt.Errorf("failed to enqueue ingestion job: %w", err)
	}

	c.logger.Info("ingestion job enqueued", "job_id", job.ID, "documents", len(refs))
	return job.ID, nil
}

// JobStatus returns the current state of a job.
func (c *IngestionCoordinator) JobStatus(ctx context.Context, jobID string) (*domain.IngestionJob, error) {
	job, err := c.queue.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

// ListJobs lists jobs matching the filter.
func (c *IngestionCoordinator) ListJobs(ctx context.Context, filter driven.JobFilter) ([]*domain.IngestionJob, error) {
	return c.queue.ListJobs(ctx, filter)
}

// QueueStats returns queue statistics.
func (c *IngestionCoordinator) QueueStats(ctx context.Context) (*driven.QueueStats, error) {
	return c.queue.Stats(ctx)
}

// ProcessJob performs the full ingestion for one job. Called by the worker.
// The returned error means the job must be nacked; the corpus version has
// not been advanced.
func (c *IngestionCoordinator) ProcessJob(ctx context.Context, job *domain.IngestionJob) error {
	if c.lock != nil {
		acquired, err := c.lock.Acquire(ctx, ingestionApplyLock, 2*time.Minute)
		if err != nil {
			return fmt.Errorf("failed to acquire ingestion lock: %w", err)
		}
		if !acquired {
			return fmt.Errorf("%w: ingestion lock held by another instance", domain.ErrIngestionFailed)
		}
		defer func() {
			_ = c.lock.Release(ctx, ingestionApplyLock)
		}()
	}

	current, err := c.versions.Current(ctx)
	if err != nil {
		return fmt.Errorf("failed to read corpus version: %w", err)
	}
	targetVersion := current + 1

	for _, ref := range job.DocumentRefs {
		if err := c.ingestDocument(ctx, ref, targetVersion); err != nil {
			return fmt.Errorf("%w: document %s: %v", domain.ErrIngestionFailed, ref.URI, err)
		}
	}

	// Every step succeeded: the new generation becomes visible atomically
	advanced, err := c.versions.Advance(ctx)
	if err != nil {
		return fmt.Errorf("failed to advance corpus version: %w", err)
	}
	if advanced != targetVersion {
		c.logger.Warn("corpus version advanced past target", "target", targetVersion, "actual", advanced)
	}

	c.logger.Info("ingestion job applied",
		"job_id", job.ID,
		"documents", len(job.DocumentRefs),
		"corpus_version", advanced,
	)
	return nil
}

// ingestDocument fetches, chunks, embeds and indexes one document under the
// target corpus version.
func (c *IngestionCoordinator) ingestDocument(ctx context.Context, ref domain.DocumentRef, targetVersion int64) error {
	content, err := c.fetcher.Fetch(ctx, ref)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	textChunks := c.pipeline.Process(content)
	if len(textChunks) == 0 {
		return fmt.Errorf("no chunks produced")
	}

	doc := &domain.Document{
		ID:                domain.GenerateID(),
		SourceURI:         ref.URI,
		Title:             ref.Title,
		IngestedAtVersion: targetVersion,
		CreatedAt:         time.Now(),
	}

	texts := make([]string, len(textChunks))
	for i, tc := range textChunks {
		texts[i] = tc.Content
	}

	var embeddings [][]float32
	if embedding := c.services.EmbeddingService(); embedding != nil {
		embeddings, err = embedding.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed: %w", err)
		}
	}

	chunks := make([]*domain.Chunk, len(textChunks))
	for i, tc := range textChunks {
		chunk := &domain.Chunk{
			ID:          domain.GenerateID(),
			DocumentID:  doc.ID,
			Position:    tc.Position,
			Text:        tc.Content,
			SparseTerms: sparseTerms(tc.Content),
		}
		if embeddings != nil {
			chunk.Embedding = embeddings[i]
		}
		chunks[i] = chunk
	}

	for _, backend := range c.backends {
		if err := backend.Index(ctx, chunks, targetVersion); err != nil {
			return fmt.Errorf("index into %s: %w", backend.Name(), err)
		}
	}

	if err := c.docs.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	if err := c.docs.SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}
	return nil
}

// sparseTerms extracts the unique lowercase terms for the sparse index.
func sparseTerms(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	seen := make(map[string]bool, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()[]")
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	sort.Strings(terms)
	return terms
}
