package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/retriva-core/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

const lockPrefix = "retriva:lock:"

// ErrNotHeld is returned when an operation requires holding the lock and the
// caller does not.
var ErrNotHeld = errors.New("lock not held by this instance")

// Lock implements DistributedLock on Redis SET NX. Ingestion uses it to
// serialize the index-then-advance step across instances, so the corpus
// version only ever moves forward one batch at a time. The TTL bounds how
// long a crashed holder can stall ingestion; release and extend are
// owner-checked so an expired holder cannot clobber its successor's lock.
type Lock struct {
	client  *redis.Client
	ownerID string
}

// NewLock creates a Redis-backed distributed lock with a generated owner ID
// unique to this instance.
func NewLock(client *redis.Client) *Lock {
	return &Lock{
		client:  client,
		ownerID: newOwnerID(),
	}
}

// newOwnerID builds a hostname:pid:nonce identity for this lock holder.
func newOwnerID() string {
	hostname, _ := os.Hostname()
	nonce := make([]byte, 8)
	_, _ = rand.Read(nonce)
	return fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), hex.EncodeToString(nonce))
}

// Owner-checked delete and expire. Both compare the stored value against the
// caller's owner ID before touching the key.
var (
	releaseScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		end
		return 0
	`)

	extendScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		end
		return 0
	`)
)

// Acquire attempts to take the named lock for at most ttl. It returns false
// without error when another instance holds it; callers treat that as "an
// apply is already in flight" and retry the job later.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	acquired, err := l.client.SetNX(ctx, lockPrefix+name, l.ownerID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return acquired, nil
}

// Release drops the named lock if this instance holds it. Releasing a lock
// that expired or belongs to another owner is a no-op.
func (l *Lock) Release(ctx context.Context, name string) error {
	_, err := releaseScript.Run(ctx, l.client, []string{lockPrefix + name}, l.ownerID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// Extend pushes the TTL of a held lock out to ttl from now. Returns
// ErrNotHeld when the lock expired or was taken over, which tells a slow
// ingestion apply to abort rather than race its successor.
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	result, err := extendScript.Run(ctx, l.client, []string{lockPrefix + name}, l.ownerID, ttl.Milliseconds()).Result()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if result.(int64) == 0 {
		return fmt.Errorf("extend lock %s: %w", name, ErrNotHeld)
	}
	return nil
}

// Ping checks if the Redis backend is healthy.
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// OwnerID returns this instance's lock holder identity.
func (l *Lock) OwnerID() string {
	return l.ownerID
}
