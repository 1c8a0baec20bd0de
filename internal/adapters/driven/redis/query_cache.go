package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
	"github.com/custodia-labs/retriva-core/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

// Verify interface compliance
var _ driven.QueryCache = (*QueryCache)(nil)

const cachePrefix = "retriva:qcache:"

// Default expirations per TTL class.
const (
	DefaultShortTTL = 5 * time.Minute
	DefaultLongTTL  = 6 * time.Hour
)

// QueryCache implements driven.QueryCache using Redis.
// Entries expire via Redis TTL chosen by the entry's class; version
// staleness is the caller's concern. Any Redis failure is reported as
// domain.ErrCacheUnavailable so callers degrade to a miss instead of
// failing the query.
type QueryCache struct {
	client   *redis.Client
	shortTTL time.Duration
	longTTL  time.Duration
}

// NewQueryCache creates a new Redis-backed QueryCache.
// Non-positive TTLs fall back to the defaults.
func NewQueryCache(client *redis.Client, shortTTL, longTTL time.Duration) *QueryCache {
	if shortTTL <= 0 {
		shortTTL = DefaultShortTTL
	}
	if longTTL <= 0 {
		longTTL = DefaultLongTTL
	}
	return &QueryCache{
		client:   client,
		shortTTL: shortTTL,
		longTTL:  longTTL,
	}
}

// Get retrieves a cached entry by fingerprint.
func (c *QueryCache) Get(ctx context.Context, fingerprint string) (*domain.CacheEntry, error) {
	data, err := c.client.Get(ctx, cachePrefix+fingerprint).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Corrupt payload reads as a miss; the caller overwrites it
		return nil, domain.ErrNotFound
	}
	return &entry, nil
}

// Put stores an entry under its fingerprint with the class expiration.
func (c *QueryCache) Put(ctx context.Context, entry *domain.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := c.client.Set(ctx, cachePrefix+entry.Fingerprint, data, c.expiration(entry.TTL)).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return nil
}

// Delete removes an entry. Deleting an absent entry is not an error.
func (c *QueryCache) Delete(ctx context.Context, fingerprint string) error {
	if err := c.client.Del(ctx, cachePrefix+fingerprint).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return nil
}

// Ping checks if the Redis backend is healthy.
func (c *QueryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *QueryCache) expiration(class domain.TTLClass) time.Duration {
	if class == domain.TTLClassLong {
		return c.longTTL
	}
	return c.shortTTL
}
