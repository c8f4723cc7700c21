package tokenstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	store, err := NewRedisStore(rdb, RedisOptions{Prefix: "kx"})
	if err != nil {
		t.Fatalf("new redis store: %v", err)
	}
	return store, mr
}

func newSQLiteStoreTest(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "session.db"), Keys{})
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func fastSeal() *SealConfig {
	return &SealConfig{
		Passphrase:  "correct horse battery",
		Memory:      minMemoryKB,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
	}
}

func backends(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore(Keys{}) },
		"file": func(t *testing.T) Store {
			s, err := NewFileStore(FileOptions{Path: filepath.Join(t.TempDir(), "session.json")})
			if err != nil {
				t.Fatalf("new file store: %v", err)
			}
			return s
		},
		"file-sealed": func(t *testing.T) Store {
			s, err := NewFileStore(FileOptions{Path: filepath.Join(t.TempDir(), "session.json"), Seal: fastSeal()})
			if err != nil {
				t.Fatalf("new sealed file store: %v", err)
			}
			return s
		},
		"redis": func(t *testing.T) Store {
			s, _ := newRedisStoreTest(t)
			return s
		},
		"sqlite": func(t *testing.T) Store { return newSQLiteStoreTest(t) },
	}
}

func TestStoreContract(t *testing.T) {
	for name, factory := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)

			if _, ok, err := store.Load(ctx); err != nil || ok {
				t.Fatalf("expected empty store, ok=%v err=%v", ok, err)
			}
			if _, ok, err := store.LoadUser(ctx); err != nil || ok {
				t.Fatalf("expected no cached user, ok=%v err=%v", ok, err)
			}

			pair := Pair{AccessToken: "access-1", RefreshToken: "refresh-1"}
			if err := store.Save(ctx, pair); err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := store.SaveUser(ctx, []byte(`{"id":1,"username":"admin"}`)); err != nil {
				t.Fatalf("save user: %v", err)
			}

			got, ok, err := store.Load(ctx)
			if err != nil || !ok {
				t.Fatalf("load: ok=%v err=%v", ok, err)
			}
			if got != pair {
				t.Fatalf("expected %+v, got %+v", pair, got)
			}
			user, ok, err := store.LoadUser(ctx)
			if err != nil || !ok || string(user) != `{"id":1,"username":"admin"}` {
				t.Fatalf("load user: %q ok=%v err=%v", user, ok, err)
			}

			next := Pair{AccessToken: "access-2", RefreshToken: "refresh-2"}
			if err := store.Save(ctx, next); err != nil {
				t.Fatalf("replace pair: %v", err)
			}
			if got, _, _ := store.Load(ctx); got != next {
				t.Fatalf("expected replaced pair %+v, got %+v", next, got)
			}

			if err := store.Clear(ctx); err != nil {
				t.Fatalf("clear: %v", err)
			}
			if _, ok, err := store.Load(ctx); err != nil || ok {
				t.Fatalf("expected no pair after clear, ok=%v err=%v", ok, err)
			}
			if _, ok, err := store.LoadUser(ctx); err != nil || ok {
				t.Fatalf("expected no user after clear, ok=%v err=%v", ok, err)
			}

			if err := store.Clear(ctx); err != nil {
				t.Fatalf("second clear should be a no-op, got %v", err)
			}
		})
	}
}

func TestStoreNeverObservesPartialPair(t *testing.T) {
	for name, factory := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)

			var wg sync.WaitGroup
			stop := make(chan struct{})
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					_ = store.Save(ctx, Pair{AccessToken: "a", RefreshToken: "r"})
					_ = store.Clear(ctx)
				}
				close(stop)
			}()

			for {
				select {
				case <-stop:
					wg.Wait()
					return
				default:
				}
				pair, ok, err := store.Load(ctx)
				if err != nil {
					t.Fatalf("load: %v", err)
				}
				if ok && !pair.Complete() {
					t.Fatalf("observed partial pair %+v", pair)
				}
			}
		})
	}
}

func TestMemoryStorePartialSlotReportedIncomplete(t *testing.T) {
	store := NewMemoryStore(Keys{})
	store.Set(DefaultKeys().Access, []byte("only-access"))

	pair, ok, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok || pair.Complete() {
		t.Fatalf("expected present but incomplete pair, got ok=%v pair=%+v", ok, pair)
	}
}

func TestKeysValidate(t *testing.T) {
	if err := DefaultKeys().Validate(); err != nil {
		t.Fatalf("default keys invalid: %v", err)
	}
	if err := (Keys{Access: "a", Refresh: "a", User: "u"}).Validate(); err == nil {
		t.Fatal("expected duplicate keys to be rejected")
	}
}
