package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
)

func testEntry(fingerprint string, version int64, class domain.TTLClass) *domain.CacheEntry {
	return &domain.CacheEntry{
		Fingerprint:          fingerprint,
		Payload:              []byte(`{"query":"what is raft"}`),
		CorpusVersionAtWrite: version,
		CreatedAt:            time.Now().UTC().Truncate(time.Second),
		TTL:                  class,
	}
}

func TestQueryCache_PutGet(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewQueryCache(client, 0, 0)
	ctx := context.Background()

	entry := testEntry("fp-1", 7, domain.TTLClassShort)
	if err := cache.Put(ctx, entry); err != nil {
		t.Fatalf("unexpected error on put: %v", err)
	}

	got, err := cache.Get(ctx, "fp-1")
	if err != nil {
		t.Fatalf("unexpected error on get: %v", err)
	}
	if got.Fingerprint != "fp-1" {
		t.Errorf("expected fingerprint fp-1, got %s", got.Fingerprint)
	}
	if got.CorpusVersionAtWrite != 7 {
		t.Errorf("expected version 7, got %d", got.CorpusVersionAtWrite)
	}
	if string(got.Payload) != string(entry.Payload) {
		t.Errorf("payload mismatch: %s", got.Payload)
	}
}

func TestQueryCache_Get_Miss(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewQueryCache(client, 0, 0)

	_, err := cache.Get(context.Background(), "absent")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryCache_Get_CorruptEntry(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewQueryCache(client, 0, 0)
	ctx := context.Background()

	client.Set(ctx, cachePrefix+"bad", "not json", time.Minute)

	_, err := cache.Get(ctx, "bad")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected corrupt entry to read as miss, got %v", err)
	}
}

func TestQueryCache_Put_Overwrites(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewQueryCache(client, 0, 0)
	ctx := context.Background()

	if err := cache.Put(ctx, testEntry("fp-1", 1, domain.TTLClassShort)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cache.Put(ctx, testEntry("fp-1", 2, domain.TTLClassShort)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := cache.Get(ctx, "fp-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CorpusVersionAtWrite != 2 {
		t.Errorf("expected last write to win, got version %d", got.CorpusVersionAtWrite)
	}
}

func TestQueryCache_Delete(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewQueryCache(client, 0, 0)
	ctx := context.Background()

	if err := cache.Put(ctx, testEntry("fp-1", 1, domain.TTLClassShort)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cache.Delete(ctx, "fp-1"); err != nil {
		t.Fatalf("unexpected error on delete: %v", err)
	}

	_, err := cache.Get(ctx, "fp-1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting an absent entry is not an error
	if err := cache.Delete(ctx, "fp-1"); err != nil {
		t.Errorf("unexpected error deleting absent entry: %v", err)
	}
}

func TestQueryCache_TTLClassExpiration(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewQueryCache(client, time.Minute, time.Hour)
	ctx := context.Background()

	if err := cache.Put(ctx, testEntry("fp-short", 1, domain.TTLClassShort)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cache.Put(ctx, testEntry("fp-long", 1, domain.TTLClassLong)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	shortTTL, err := client.TTL(ctx, cachePrefix+"fp-short").Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	longTTL, err := client.TTL(ctx, cachePrefix+"fp-long").Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if shortTTL > time.Minute {
		t.Errorf("short class TTL too large: %v", shortTTL)
	}
	if longTTL <= time.Minute {
		t.Errorf("long class TTL too small: %v", longTTL)
	}
}

func TestQueryCache_Unavailable(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	cleanup() // Close the backend so every call fails

	cache := NewQueryCache(client, 0, 0)
	ctx := context.Background()

	_, err := cache.Get(ctx, "fp-1")
	if !errors.Is(err, domain.ErrCacheUnavailable) {
		t.Errorf("expected ErrCacheUnavailable on get, got %v", err)
	}

	err = cache.Put(ctx, testEntry("fp-1", 1, domain.TTLClassShort))
	if !errors.Is(err, domain.ErrCacheUnavailable) {
		t.Errorf("expected ErrCacheUnavailable on put, got %v", err)
	}
}

func TestQueryCache_Ping(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewQueryCache(client, 0, 0)
	if err := cache.Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}
}
