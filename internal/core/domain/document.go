package domain

import "time"

// Document is an immutable content unit. Once ingested it is never mutated,
// only superseded by re-ingestion under a later corpus version.
type Document struct {
	// ID is the unique identifier for this document
	ID string `json:"id"`

	// SourceURI is where the document content came from
	SourceURI string `json:"source_uri"`

	// Title is an optional human-readable title
	Title string `json:"title,omitempty"`

	// IngestedAtVersion is the corpus version at which this document
	// became visible to queries
	IngestedAtVersion int64 `json:"ingested_at_version"`

	// CreatedAt is when the document record was written
	CreatedAt time.Time `json:"created_at"`
}

// Chunk is a retrievable fragment derived from a Document. Chunks are owned
// by the indexes that store them and are never mutated after creation.
type Chunk struct {
	// ID is the unique identifier for this chunk
	ID string `json:"id"`

	// DocumentID is the parent document
	DocumentID string `json:"document_id"`

	// Position is the chunk's ordinal within its document
	Position int `json:"position"`

	// Text is the chunk content
	Text string `json:"text"`

	// Embedding is the dense vector representation. Opaque to the core;
	// produced by the embedding service, consumed by the dense index.
	Embedding []float32 `json:"embedding,omitempty"`

	// SparseTerms are the keyword terms for the sparse index. Opaque to
	// the core.
	SparseTerms []string `json:"sparse_terms,omitempty"`
}

// DocumentRef identifies a document to be ingested.
type DocumentRef struct {
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}
