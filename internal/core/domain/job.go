package domain

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// JobState represents the current state of an ingestion job
type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
)

// IngestionJob represents a background (re)indexing job processed by the
// ingestion coordinator. A job advances the corpus version by exactly one on
// success; any failure leaves the version untouched.
type IngestionJob struct {
	// ID is the unique identifier for this job
	ID string `json:"id"`

	// DocumentRefs are the documents to ingest
	DocumentRefs []DocumentRef `json:"document_refs"`

	// State is the current lifecycle state
	State JobState `json:"state"`

	// Attempts is how many times this job has been attempted
	Attempts int `json:"attempts"`

	// MaxAttempts is the maximum retry count before giving up
	MaxAttempts int `json:"max_attempts"`

	// Error contains the last error message if failed
	Error string `json:"error,omitempty"`

	// EnqueuedAt is when the job was enqueued
	EnqueuedAt time.Time `json:"enqueued_at"`

	// UpdatedAt is when the job was last modified
	UpdatedAt time.Time `json:"updated_at"`

	// StartedAt is when processing began (nil if not started)
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when processing finished (nil if not complete)
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// ScheduledFor is when the job should be processed (for delayed retries)
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewIngestionJob creates a new job with default values
func NewIngestionJob(refs []DocumentRef) *IngestionJob {
	now := time.Now()
	return &IngestionJob{
		ID:           GenerateID(),
		DocumentRefs: refs,
		State:        JobStateQueued,
		Attempts:     0,
		MaxAttempts:  3,
		EnqueuedAt:   now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// CanRetry returns true if the job can be retried
func (j *IngestionJob) CanRetry() bool {
	return j.Attempts < j.MaxAttempts
}

// IsReady returns true if the job is ready to be processed
func (j *IngestionJob) IsReady() bool {
	return j.State == JobStateQueued && time.Now().After(j.ScheduledFor)
}

// IsTerminal returns true if the job has finished, successfully or not
func (j *IngestionJob) IsTerminal() bool {
	return j.State == JobStateSucceeded || j.State == JobStateFailed
}

// MarkRunning updates the job to running state
func (j *IngestionJob) MarkRunning() {
	now := time.Now()
	j.State = JobStateRunning
	j.StartedAt = &now
	j.UpdatedAt = now
	j.Attempts++
}

// MarkSucceeded updates the job to succeeded state
func (j *IngestionJob) MarkSucceeded() {
	now := time.Now()
	j.State = JobStateSucceeded
	j.CompletedAt = &now
	j.UpdatedAt = now
	j.Error = ""
}

// MarkFailed updates the job to failed state
func (j *IngestionJob) MarkFailed(err string) {
	now := time.Now()
	j.State = JobStateFailed
	j.UpdatedAt = now
	j.Error = err
}

// Retry resets the job for retry with exponential backoff
func (j *IngestionJob) Retry(err string) {
	now := time.Now()
	j.State = JobStateQueued
	j.UpdatedAt = now
	j.Error = err

	// Exponential backoff: 1s, 2s, 4s, 8s, etc.
	backoff := time.Duration(1<<j.Attempts) * time.Second
	if backoff > 5*time.Minute {
		backoff = 5 * time.Minute
	}
	j.ScheduledFor = now.Add(backoff)
}
