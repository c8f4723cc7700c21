package kinvex

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/kinvex/internal/fakeapi"
	"github.com/MrEthical07/kinvex/tokenstore"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_760_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type redirectRecorder struct {
	count atomic.Int64
	mu    sync.Mutex
	paths []string
}

func (r *redirectRecorder) RedirectToLogin(_ context.Context, path string) {
	r.count.Add(1)
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *redirectRecorder) Count() int {
	return int(r.count.Load())
}

type harness struct {
	t         *testing.T
	clock     *testClock
	api       *fakeapi.Server
	srv       *httptest.Server
	store     *tokenstore.MemoryStore
	notes     *RecordingNotifier
	redirects *redirectRecorder
	audit     *ChannelSink
	client    *Client
}

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.API.Timeout = 2 * time.Second
	cfg.Auth.RefreshTimeout = 2 * time.Second
	cfg.Watchdog.Enabled = false
	cfg.Watchdog.Interval = 10 * time.Millisecond
	cfg.App.Environment = EnvTest
	return cfg
}

// newHarness starts a fake API and a client wired to it. mutate may adjust the
// configuration before the client is built.
func newHarness(t *testing.T, mutate ...func(*Config)) *harness {
	t.Helper()
	clock := newTestClock()
	api, err := fakeapi.New(fakeapi.Options{Now: clock.Now})
	if err != nil {
		t.Fatalf("fakeapi.New: %v", err)
	}
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL + fakeapi.BasePath)
	for _, m := range mutate {
		m(&cfg)
	}

	h := &harness{
		t:         t,
		clock:     clock,
		api:       api,
		srv:       srv,
		store:     tokenstore.NewMemoryStore(cfg.Auth.Keys),
		notes:     &RecordingNotifier{},
		redirects: &redirectRecorder{},
		audit:     NewChannelSink(1024),
	}
	client, err := New().
		WithConfig(cfg).
		WithTokenStore(h.store).
		WithHTTPClient(srv.Client()).
		WithNotifier(h.notes).
		WithNavigator(h.redirects).
		WithAuditSink(h.audit).
		WithLogger(discardLogger()).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(client.Close)
	h.client = client
	return h
}

func (h *harness) login(username, password string) *User {
	h.t.Helper()
	user, err := h.client.Login(context.Background(), username, password)
	if err != nil {
		h.t.Fatalf("Login(%s): %v", username, err)
	}
	return user
}

// seed writes a session for username straight into the store, as a previous
// process would have left it.
func (h *harness) seed(username string, accessTTL time.Duration, cacheUser bool) tokenstore.Pair {
	h.t.Helper()
	access, refresh, err := h.api.IssueSession(username, accessTTL)
	if err != nil {
		h.t.Fatalf("IssueSession: %v", err)
	}
	ctx := context.Background()
	pair := tokenstore.Pair{AccessToken: access, RefreshToken: refresh}
	if err := h.store.Save(ctx, pair); err != nil {
		h.t.Fatalf("Save: %v", err)
	}
	if cacheUser {
		u, _ := h.api.User(username)
		data, _ := json.Marshal(u)
		if err := h.store.SaveUser(ctx, data); err != nil {
			h.t.Fatalf("SaveUser: %v", err)
		}
	}
	return pair
}

func (h *harness) pair() (tokenstore.Pair, bool) {
	h.t.Helper()
	pair, ok, err := h.store.Load(context.Background())
	if err != nil {
		h.t.Fatalf("Load: %v", err)
	}
	return pair, ok
}

// requireCleared fails unless the store holds no token and no cached user.
func (h *harness) requireCleared() {
	h.t.Helper()
	pair, ok := h.pair()
	if ok || !pair.Empty() {
		h.t.Fatalf("expected no stored tokens, got %+v", pair)
	}
	if _, ok, _ := h.store.LoadUser(context.Background()); ok {
		h.t.Fatal("expected no cached user")
	}
}

// requireConsistent checks the session invariants that must hold in every
// reachable state.
func (h *harness) requireConsistent() {
	h.t.Helper()
	c := h.client
	user := c.User()
	if c.Authenticated() != (user != nil) {
		h.t.Fatalf("authenticated=%v but user=%v", c.Authenticated(), user)
	}
	switch c.State() {
	case StateAuthenticated:
		if user == nil {
			h.t.Fatal("Authenticated state without user")
		}
	case StateAnonymous:
		if user != nil {
			h.t.Fatal("Anonymous state with user")
		}
	}
	pair, ok := h.pair()
	if ok && !pair.Complete() {
		h.t.Fatalf("partial credential pair stored: %+v", pair)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}
