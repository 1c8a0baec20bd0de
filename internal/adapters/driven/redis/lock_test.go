package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, func() {
		client.Close()
		mr.Close()
	}
}

func mustAcquire(t *testing.T, l *Lock, name string) {
	t.Helper()
	acquired, err := l.Acquire(context.Background(), name, 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected acquire error: %v", err)
	}
	if !acquired {
		t.Fatalf("expected to acquire lock %s", name)
	}
}

func TestLock_OwnerIDsUnique(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	if NewLock(client).OwnerID() == NewLock(client).OwnerID() {
		t.Error("expected distinct owner IDs per instance")
	}
}

func TestLock_AcquireExcludesOthers(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	holder := NewLock(client)
	mustAcquire(t, holder, "ingestion:apply")

	// Another instance cannot take it, and the holder itself cannot
	// re-enter either
	for _, l := range []*Lock{NewLock(client), holder} {
		acquired, err := l.Acquire(ctx, "ingestion:apply", 10*time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if acquired {
			t.Error("expected acquire to fail while the lock is held")
		}
	}
}

func TestLock_ReleaseFreesLock(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	lock := NewLock(client)
	mustAcquire(t, lock, "ingestion:apply")

	if err := lock.Release(ctx, "ingestion:apply"); err != nil {
		t.Fatalf("unexpected release error: %v", err)
	}
	mustAcquire(t, NewLock(client), "ingestion:apply")
}

func TestLock_ReleaseUnheldIsNoop(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	if err := NewLock(client).Release(context.Background(), "ingestion:apply"); err != nil {
		t.Errorf("unexpected error releasing unheld lock: %v", err)
	}
}

func TestLock_ReleaseByOtherOwnerKeepsLock(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	holder := NewLock(client)
	intruder := NewLock(client)
	mustAcquire(t, holder, "ingestion:apply")

	if err := intruder.Release(ctx, "ingestion:apply"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acquired, err := intruder.Acquire(ctx, "ingestion:apply", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acquired {
		t.Error("expected the holder's lock to survive a foreign release")
	}
}

func TestLock_ExtendHeld(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	lock := NewLock(client)
	mustAcquire(t, lock, "ingestion:apply")

	if err := lock.Extend(context.Background(), "ingestion:apply", 30*time.Second); err != nil {
		t.Errorf("unexpected extend error: %v", err)
	}
}

func TestLock_ExtendUnheld(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	err := NewLock(client).Extend(context.Background(), "ingestion:apply", 30*time.Second)
	if !errors.Is(err, ErrNotHeld) {
		t.Errorf("expected ErrNotHeld, got %v", err)
	}
}

func TestLock_ExtendByOtherOwner(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	holder := NewLock(client)
	mustAcquire(t, holder, "ingestion:apply")

	err := NewLock(client).Extend(context.Background(), "ingestion:apply", 30*time.Second)
	if !errors.Is(err, ErrNotHeld) {
		t.Errorf("expected ErrNotHeld for foreign extend, got %v", err)
	}
}

func TestLock_NamesAreIndependent(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	lock := NewLock(client)
	mustAcquire(t, lock, "ingestion:apply")
	mustAcquire(t, lock, "cache:sweep")
}

func TestLock_Ping(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	if err := NewLock(client).Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}
}
