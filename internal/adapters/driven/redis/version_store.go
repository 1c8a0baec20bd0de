package redis

import (
	"context"
	"fmt"

	"github.com/custodia-labs/retriva-core/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

// Verify interface compliance
var _ driven.VersionStore = (*VersionStore)(nil)

const versionKey = "retriva:corpus:version"

// VersionStore implements driven.VersionStore on a single Redis counter.
// An absent key reads as version 0; Advance uses INCR so concurrent
// advancers never produce the same version.
type VersionStore struct {
	client *redis.Client
}

// NewVersionStore creates a new Redis-backed VersionStore.
func NewVersionStore(client *redis.Client) *VersionStore {
	return &VersionStore{client: client}
}

// Current returns the corpus version now in effect.
func (v *VersionStore) Current(ctx context.Context) (int64, error) {
	val, err := v.client.Get(ctx, versionKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read corpus version: %w", err)
	}
	return val, nil
}

// Advance atomically increments the version and returns the new value.
func (v *VersionStore) Advance(ctx context.Context) (int64, error) {
	val, err := v.client.Incr(ctx, versionKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to advance corpus version: %w", err)
	}
	return val, nil
}

// Ping checks if the Redis backend is healthy.
func (v *VersionStore) Ping(ctx context.Context) error {
	return v.client.Ping(ctx).Err()
}
