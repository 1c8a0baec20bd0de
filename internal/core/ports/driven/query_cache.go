package driven

import (
	"context"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
)

// QueryCache stores expensive query outcomes keyed by fingerprint.
// Implementations enforce TTLs; staleness against the corpus version is
// checked by the caller, which holds the version pinned for the request.
type QueryCache interface {
	// Get returns the entry for the fingerprint, or domain.ErrNotFound on
	// a miss. Infrastructure failures map to domain.ErrCacheUnavailable.
	Get(ctx context.Context, fingerprint string) (*domain.CacheEntry, error)

	// Put stores an entry under its fingerprint. Writes are idempotent;
	// last-writer-wins is acceptable since the payload is a deterministic
	// function of the fingerprinted inputs.
	Put(ctx context.Context, entry *domain.CacheEntry) error

	// Delete removes an entry. Used to evict entries found stale on read.
	Delete(ctx context.Context, fingerprint string) error

	// Ping checks if the cache backend is healthy
	Ping(ctx context.Context) error
}

// VersionStore holds the monotonic corpus version counter.
type VersionStore interface {
	// Current returns the corpus version now in effect. Callers read it
	// once per query and use that snapshot for the query's whole lifetime.
	Current(ctx context.Context) (int64, error)

	// Advance atomically increments the version by one and returns the
	// new value. Called only by the ingestion coordinator on success.
	Advance(ctx context.Context) (int64, error)

	// Ping checks if the version store is healthy
	Ping(ctx context.Context) error
}
