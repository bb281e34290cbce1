package cacheredis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Driver) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, New(client)
}

func TestSetIfNotExists_FirstCallSucceeds(t *testing.T) {
	_, d := setupTestRedis(t)
	ctx := context.Background()

	ok, err := d.SetIfNotExists(ctx, "LockEventId-e1", "e1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected first SetIfNotExists to succeed")
	}
}

func TestSetIfNotExists_SecondCallFails(t *testing.T) {
	_, d := setupTestRedis(t)
	ctx := context.Background()

	if _, err := d.SetIfNotExists(ctx, "k", "v1", time.Minute); err != nil {
		t.Fatal(err)
	}
	ok, err := d.SetIfNotExists(ctx, "k", "v2", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected second SetIfNotExists on same key to fail")
	}
}

func TestDeleteThenSetIfNotExistsSucceedsAgain(t *testing.T) {
	_, d := setupTestRedis(t)
	ctx := context.Background()

	if _, err := d.SetIfNotExists(ctx, "k", "v1", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := d.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	ok, err := d.SetIfNotExists(ctx, "k", "v2", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected SetIfNotExists to succeed after Delete")
	}
}

func TestWithPrefixNamespacesKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := New(client, WithPrefix("messagingcore"))
	ctx := context.Background()

	if _, err := d.SetIfNotExists(ctx, "k", "v", time.Minute); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("messagingcore:k") {
		t.Error("expected key to carry the configured prefix")
	}
}

func TestPingAndClose(t *testing.T) {
	_, d := setupTestRedis(t)
	if err := d.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}
