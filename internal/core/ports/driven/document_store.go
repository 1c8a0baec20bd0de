package driven

import (
	"context"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
)

// DocumentStore persists document and chunk metadata written by the
// ingestion coordinator and read back for answer citations.
type DocumentStore interface {
	// SaveDocument upserts a document record
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// SaveChunks records chunk metadata for a document
	SaveChunks(ctx context.Context, chunks []*domain.Chunk) error

	// GetDocument retrieves a document by ID
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetChunk retrieves a chunk by ID
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// ListByVersion lists documents ingested at the given corpus version
	ListByVersion(ctx context.Context, version int64) ([]*domain.Document, error)

	// Ping checks if the store is healthy
	Ping(ctx context.Context) error
}

// ContentFetcher resolves a document reference to its raw text content.
// Parsing of rich formats happens outside the core; the coordinator only
// sees text.
type ContentFetcher interface {
	// Fetch returns the text content for a document reference
	Fetch(ctx context.Context, ref domain.DocumentRef) (string, error)
}
