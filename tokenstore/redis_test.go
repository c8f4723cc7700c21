package tokenstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisStoreUsesPrefixedKeys(t *testing.T) {
	store, mr := newRedisStoreTest(t)
	ctx := context.Background()

	if err := store.Save(ctx, Pair{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got, _ := mr.Get("kx:authToken"); got != "a" {
		t.Fatalf("expected access slot under prefix, got %q", got)
	}
	if got, _ := mr.Get("kx:refreshToken"); got != "r" {
		t.Fatalf("expected refresh slot under prefix, got %q", got)
	}
}

func TestRedisStoreTTLExpiresSlots(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	store, err := NewRedisStore(rdb, RedisOptions{TTL: time.Minute})
	if err != nil {
		t.Fatalf("new redis store: %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, Pair{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got, _ := mr.Get("kinvex:authToken"); got != "a" {
		t.Fatalf("expected default prefix, got %q", got)
	}
	mr.FastForward(2 * time.Minute)

	if _, ok, err := store.Load(ctx); err != nil || ok {
		t.Fatalf("expected expired pair, ok=%v err=%v", ok, err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr := newRedisStoreTest(t)
	mr.Close()

	_, _, err := store.Load(context.Background())
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
