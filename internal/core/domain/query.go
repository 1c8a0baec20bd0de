package domain

import (
	"strings"
	"time"
)

// TTLClass selects how long a cached query outcome may live.
type TTLClass string

const (
	// TTLClassShort is for answers touching frequently-updated content
	TTLClassShort TTLClass = "short"
	// TTLClassLong is for answers touching rarely-updated content
	TTLClassLong TTLClass = "long"
)

// Valid reports whether the class is one of the supported values.
func (c TTLClass) Valid() bool {
	return c == TTLClassShort || c == TTLClassLong
}

// QueryRequest is a request on the query surface.
type QueryRequest struct {
	// Query is the raw user query text
	Query string `json:"query"`

	// CallerID identifies the caller for admission control
	CallerID string `json:"caller_id"`

	// Tier is the requester tier; part of the cache fingerprint
	Tier string `json:"tier"`

	// MaxSubQueries caps how many sub-queries decomposition may produce
	MaxSubQueries int `json:"max_sub_queries"`

	// MaxParallelism caps simultaneously in-flight sub-query pipelines
	MaxParallelism int `json:"max_parallelism"`

	// K is how many candidates each backend is asked for
	K int `json:"k"`

	// TopN is how many reranked results each sub-query keeps
	TopN int `json:"top_n"`

	// TTL selects the cache class for the outcome (default short)
	TTL TTLClass `json:"ttl,omitempty"`

	// Deadline bounds the whole request; zero means no deadline
	Deadline time.Duration `json:"deadline,omitempty"`
}

// RetrievalParams are the parameters that shape a retrieval outcome.
// They participate in the cache fingerprint so that semantically different
// parameter sets never collide.
type RetrievalParams struct {
	K             int `json:"k"`
	TopN          int `json:"top_n"`
	MaxSubQueries int `json:"max_sub_queries"`
}

// Params extracts the fingerprint-relevant retrieval parameters.
func (r QueryRequest) Params() RetrievalParams {
	return RetrievalParams{K: r.K, TopN: r.TopN, MaxSubQueries: r.MaxSubQueries}
}

// SubQuery is one unit of a decomposed query. Ordinal defines deterministic
// re-assembly order, not execution order.
type SubQuery struct {
	ParentQueryID string `json:"parent_query_id"`
	Ordinal       int    `json:"ordinal"`
	Text          string `json:"text"`
}

// RetrievalCandidate is produced per backend search call.
type RetrievalCandidate struct {
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
	Backend string  `json:"backend"`
}

// FusedResult is a candidate after rank fusion across backends.
type FusedResult struct {
	ChunkID string `json:"chunk_id"`

	// Score is a deterministic function of the contributing backend ranks
	Score float64 `json:"score"`

	// Backends that contributed to this candidate
	Backends []string `json:"backends"`

	// MinRank is the smallest 0-based rank across contributing backends;
	// used as the first tie-break on equal score
	MinRank int `json:"min_rank"`
}

// RankedResult is a candidate after reranking and compression.
type RankedResult struct {
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
}

// SubQueryResult is the outcome of one sub-query pipeline.
type SubQueryResult struct {
	SubQuery SubQuery       `json:"sub_query"`
	Results  []RankedResult `json:"results,omitempty"`

	// Degraded is set when at least one backend failed and fusion
	// proceeded with the remainder
	Degraded bool `json:"degraded,omitempty"`

	// Missing is set when the pipeline failed entirely; Results is empty
	Missing bool `json:"missing,omitempty"`

	// FailureKind names the failure when Missing is set
	FailureKind string `json:"failure_kind,omitempty"`
}

// Citation points an answer back at a source chunk.
type Citation struct {
	ChunkID    string `json:"chunk_id"`
	DocumentID string `json:"document_id,omitempty"`
	SourceURI  string `json:"source_uri,omitempty"`
}

// QueryResult is the aggregate outcome of a processed query.
type QueryResult struct {
	Query         string           `json:"query"`
	Answer        string           `json:"answer,omitempty"`
	Citations     []Citation       `json:"citations,omitempty"`
	SubQueries    []SubQueryResult `json:"sub_queries"`
	CorpusVersion int64            `json:"corpus_version"`
	CacheHit      bool             `json:"cache_hit"`
	Degraded      bool             `json:"degraded,omitempty"`
	Took          time.Duration    `json:"took"`
}

// CacheEntry is a cached query outcome bound to the corpus version in effect
// when it was written.
type CacheEntry struct {
	Fingerprint          string    `json:"fingerprint"`
	Payload              []byte    `json:"payload"`
	CorpusVersionAtWrite int64     `json:"corpus_version_at_write"`
	CreatedAt            time.Time `json:"created_at"`
	TTL                  TTLClass  `json:"ttl"`
}

// NormalizeQuery canonicalizes query text for fingerprinting and for the
// decomposer identity path: lowercase, trimmed, inner whitespace collapsed.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
