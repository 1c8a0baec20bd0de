package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
	"github.com/custodia-labs/retriva-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using PostgreSQL.
// Note: embeddings and sparse terms live in the search backends, not here;
// this store holds the metadata and text needed for citations.
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// SaveDocument creates or updates a document
func (s *DocumentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO documents (id, source_uri, title, ingested_at_version, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			source_uri = EXCLUDED.source_uri,
			title = EXCLUDED.title,
			ingested_at_version = EXCLUDED.ingested_at_version
	`

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, query,
		doc.ID,
		doc.SourceURI,
		doc.Title,
		doc.IngestedAtVersion,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// SaveChunks records chunk metadata for a document.
// All chunks are written in one transaction so a document is never
// partially visible.
func (s *DocumentStore) SaveChunks(ctx context.Context, chunks []*domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	query := `
		INSERT INTO chunks (id, document_id, position, text)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			position = EXCLUDED.position,
			text = EXCLUDED.text
	`

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		for _, chunk := range chunks {
			if _, err := tx.ExecContext(ctx, query,
				chunk.ID,
				chunk.DocumentID,
				chunk.Position,
				chunk.Text,
			); err != nil {
				return fmt.Errorf("failed to save chunk %s: %w", chunk.ID, err)
			}
		}
		return nil
	})
}

// GetDocument retrieves a document by ID
func (s *DocumentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	query := `
		SELECT id, source_uri, title, ingested_at_version, created_at
		FROM documents
		WHERE id = $1
	`

	var doc domain.Document
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID,
		&doc.SourceURI,
		&doc.Title,
		&doc.IngestedAtVersion,
		&doc.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// GetChunk retrieves a chunk by ID
func (s *DocumentStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	query := `
		SELECT id, document_id, position, text
		FROM chunks
		WHERE id = $1
	`

	var chunk domain.Chunk
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&chunk.ID,
		&chunk.DocumentID,
		&chunk.Position,
		&chunk.Text,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}
	return &chunk, nil
}

// ListByVersion lists documents ingested at the given corpus version
func (s *DocumentStore) ListByVersion(ctx context.Context, version int64) ([]*domain.Document, error) {
	query := `
		SELECT id, source_uri, title, ingested_at_version, created_at
		FROM documents
		WHERE ingested_at_version = $1
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query, version)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(
			&doc.ID,
			&doc.SourceURI,
			&doc.Title,
			&doc.IngestedAtVersion,
			&doc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// Ping checks if the store is healthy
func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
