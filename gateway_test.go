package kinvex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/kinvex/tokenstore"
)

type rawAPI struct {
	mu       sync.Mutex
	headers  []http.Header
	handlers map[string]http.HandlerFunc
}

func (a *rawAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.headers = append(a.headers, r.Header.Clone())
	handler := a.handlers[r.Method+" "+r.URL.Path]
	a.mu.Unlock()
	if handler == nil {
		http.NotFound(w, r)
		return
	}
	handler(w, r)
}

func (a *rawAPI) last() http.Header {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.headers[len(a.headers)-1]
}

type rawHarness struct {
	api       *rawAPI
	store     *tokenstore.MemoryStore
	notes     *RecordingNotifier
	redirects *redirectRecorder
	client    *Client
}

func newRawHarness(t *testing.T, handlers map[string]http.HandlerFunc) *rawHarness {
	t.Helper()
	api := &rawAPI{handlers: handlers}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL + "/api")
	cfg.API.Timeout = 200 * time.Millisecond
	h := &rawHarness{
		api:       api,
		store:     tokenstore.NewMemoryStore(cfg.Auth.Keys),
		notes:     &RecordingNotifier{},
		redirects: &redirectRecorder{},
	}
	client, err := New().
		WithConfig(cfg).
		WithTokenStore(h.store).
		WithHTTPClient(srv.Client()).
		WithNotifier(h.notes).
		WithNavigator(h.redirects).
		WithLogger(discardLogger()).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(client.Close)
	h.client = client
	return h
}

func writeJSON(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestGatewayAttachesBearerToken(t *testing.T) {
	h := newRawHarness(t, map[string]http.HandlerFunc{
		"GET /api/ping": writeJSON(http.StatusOK, `{"ok":true}`),
	})
	ctx := context.Background()

	if err := h.client.Gateway().Get(ctx, "/ping", nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := h.api.last().Get("Authorization"); got != "" {
		t.Fatalf("expected no Authorization without a session, got %q", got)
	}

	_ = h.store.Save(ctx, tokenstore.Pair{AccessToken: "tok-1", RefreshToken: "ref-1"})
	var out struct{ OK bool }
	if err := h.client.Gateway().Get(WithRequestID(ctx, "rid-7"), "ping", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	hdr := h.api.last()
	if hdr.Get("Authorization") != "Bearer tok-1" {
		t.Fatalf("expected bearer token, got %q", hdr.Get("Authorization"))
	}
	if hdr.Get("X-Request-ID") != "rid-7" || hdr.Get("Accept") != "application/json" {
		t.Fatalf("unexpected headers %v", hdr)
	}
	if !out.OK {
		t.Fatal("expected the body decoded")
	}
}

func TestGatewayGeneratesRequestID(t *testing.T) {
	h := newRawHarness(t, map[string]http.HandlerFunc{
		"GET /api/ping": writeJSON(http.StatusNoContent, ""),
	})
	_ = h.client.Gateway().Get(context.Background(), "/ping", nil)
	first := h.api.last().Get("X-Request-ID")
	_ = h.client.Gateway().Get(context.Background(), "/ping", nil)
	second := h.api.last().Get("X-Request-ID")
	if first == "" || first == second {
		t.Fatalf("expected distinct generated ids, got %q and %q", first, second)
	}
}

func TestGatewayErrorTaxonomy(t *testing.T) {
	tests := []struct {
		status    int
		kind      error
		note      NotificationKind
		transient bool
	}{
		{http.StatusForbidden, ErrForbidden, NoteForbidden, false},
		{http.StatusNotFound, ErrNotFound, NoteNotFound, false},
		{http.StatusBadRequest, ErrValidation, "", false},
		{http.StatusConflict, ErrValidation, "", false},
		{http.StatusUnprocessableEntity, ErrValidation, "", false},
		{http.StatusInternalServerError, ErrServer, NoteServerError, true},
		{http.StatusServiceUnavailable, ErrServer, NoteServerError, true},
	}
	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			h := newRawHarness(t, map[string]http.HandlerFunc{
				"POST /api/things": writeJSON(tc.status, `{"code":"X_CODE","message":"server says no","details":{"field":"name"}}`),
			})
			_ = h.store.Save(context.Background(), tokenstore.Pair{AccessToken: "a", RefreshToken: "r"})

			err := h.client.Gateway().Post(context.Background(), "/things", map[string]string{"name": "x"}, nil)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if !errors.Is(err, tc.kind) || apiErr.Kind() != tc.kind {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
			if apiErr.Status != tc.status || apiErr.Code != "X_CODE" || apiErr.Message != "server says no" {
				t.Fatalf("body not mapped: %+v", apiErr)
			}
			if apiErr.Details["field"] != "name" {
				t.Fatalf("details not mapped: %v", apiErr.Details)
			}
			if IsTransient(err) != tc.transient {
				t.Fatalf("transient = %v, want %v", IsTransient(err), tc.transient)
			}

			notes := h.notes.All()
			if tc.note == "" {
				if len(notes) != 0 {
					t.Fatalf("validation errors are for the caller, got %+v", notes)
				}
			} else if len(notes) != 1 || notes[0].Kind != tc.note {
				t.Fatalf("expected one %s notification, got %+v", tc.note, notes)
			}
			if pair, _, _ := h.store.Load(context.Background()); pair.AccessToken != "a" {
				t.Fatal("only a 401 may clear credentials")
			}
			if h.redirects.Count() != 0 {
				t.Fatal("only a 401 may redirect")
			}
		})
	}
}

func TestGateway401EndsSession(t *testing.T) {
	h := newRawHarness(t, map[string]http.HandlerFunc{
		"GET /api/things": writeJSON(http.StatusUnauthorized, `{"code":"AUTHENTICATION_FAILED","message":"expired"}`),
	})
	_ = h.store.Save(context.Background(), tokenstore.Pair{AccessToken: "a", RefreshToken: "r"})

	err := h.client.Gateway().Get(context.Background(), "/things", nil)
	if !IsSessionInvalid(err) {
		t.Fatalf("expected session invalid, got %v", err)
	}
	if pair, ok, _ := h.store.Load(context.Background()); ok || !pair.Empty() {
		t.Fatal("expected the store cleared")
	}
	if h.redirects.Count() != 1 || h.notes.Count(NoteSessionExpired) != 1 {
		t.Fatalf("redirects=%d notes=%d", h.redirects.Count(), h.notes.Count(NoteSessionExpired))
	}

	// Without a token there is nothing left to invalidate.
	_ = h.client.Gateway().Get(context.Background(), "/things", nil)
	if h.redirects.Count() != 1 || h.notes.Count(NoteSessionExpired) != 1 {
		t.Fatal("a tokenless 401 must not redirect again")
	}
}

func TestGatewayConcurrent401sRedirectOnce(t *testing.T) {
	h := newHarness(t)
	h.login("manager", "manager123")

	const callers = 12
	h.api.Fail("/inventory/products", repeat(http.StatusUnauthorized, callers)...)

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make(chan error, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs <- h.client.Gateway().Get(context.Background(), "/inventory/products", nil)
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err == nil {
			t.Fatal("expected every request to fail")
		}
	}
	if got := h.client.State(); got != StateAnonymous {
		t.Fatalf("expected anonymous, got %v", got)
	}
	if h.client.User() != nil {
		t.Fatal("expected the user cleared")
	}
	if h.redirects.Count() != 1 {
		t.Fatalf("expected exactly one redirect, got %d", h.redirects.Count())
	}
	if h.notes.Count(NoteSessionExpired) != 1 {
		t.Fatalf("expected one expiry notification, got %d", h.notes.Count(NoteSessionExpired))
	}
	h.requireCleared()
}

func repeat(status, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = status
	}
	return out
}

func TestGatewayMalformedSuccessBody(t *testing.T) {
	h := newRawHarness(t, map[string]http.HandlerFunc{
		"GET /api/things": writeJSON(http.StatusOK, `{"broken"`),
	})
	var out map[string]any
	err := h.client.Gateway().Get(context.Background(), "/things", &out)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	if len(h.notes.All()) != 0 {
		t.Fatal("a malformed body is reported to the caller only")
	}
}

func TestGatewayTimeout(t *testing.T) {
	h := newRawHarness(t, map[string]http.HandlerFunc{
		"GET /api/slow": func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		},
	})
	err := h.client.Gateway().Get(context.Background(), "/slow", nil)
	if !errors.Is(err, ErrTimeout) || !IsTransient(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if h.notes.Count(NoteTimeout) != 1 {
		t.Fatal("expected one timeout notification")
	}
}

func TestGatewayCanceledContextIsSilent(t *testing.T) {
	h := newRawHarness(t, map[string]http.HandlerFunc{
		"GET /api/slow": func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	err := h.client.Gateway().Get(ctx, "/slow", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatal("a canceled request is not an API failure")
	}
	if len(h.notes.All()) != 0 {
		t.Fatal("a canceled request must not notify")
	}
}

func TestMalformedRefreshResponseEndsSession(t *testing.T) {
	h := newRawHarness(t, map[string]http.HandlerFunc{
		"POST /api/auth/refresh": writeJSON(http.StatusOK, `{"accessToken":"only-half"}`),
	})
	_ = h.store.Save(context.Background(), tokenstore.Pair{AccessToken: "a", RefreshToken: "r"})

	_, err := h.client.Refresh(context.Background())
	if !IsSessionInvalid(err) {
		t.Fatalf("expected session invalid, got %v", err)
	}
	if pair, ok, _ := h.store.Load(context.Background()); ok || !pair.Empty() {
		t.Fatalf("expected no partial pair, got %+v", pair)
	}
	if h.redirects.Count() != 1 {
		t.Fatalf("expected one redirect, got %d", h.redirects.Count())
	}
}

func TestRefreshOfDisabledAccountEndsSession(t *testing.T) {
	h := newRawHarness(t, map[string]http.HandlerFunc{
		"POST /api/auth/refresh": writeJSON(http.StatusOK,
			`{"accessToken":"a2","refreshToken":"r2","user":{"id":9,"username":"viewer","email":"v@example.com","role":"VIEWER","active":false}}`),
	})
	_ = h.store.Save(context.Background(), tokenstore.Pair{AccessToken: "a", RefreshToken: "r"})

	_, err := h.client.Refresh(context.Background())
	if !IsSessionInvalid(err) || !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected session invalid wrapping account disabled, got %v", err)
	}
	if h.client.Authenticated() {
		t.Fatal("a disabled user must not be adopted")
	}
	if pair, ok, _ := h.store.Load(context.Background()); ok || !pair.Empty() {
		t.Fatalf("expected the rotated pair discarded, got %+v", pair)
	}
	if h.redirects.Count() != 1 {
		t.Fatalf("expected one redirect, got %d", h.redirects.Count())
	}
}

func TestLoginMalformedResponseLeavesStoreEmpty(t *testing.T) {
	h := newRawHarness(t, map[string]http.HandlerFunc{
		"POST /api/auth/login": writeJSON(http.StatusOK, `{"accessToken":"a","refreshToken":"r"}`),
	})
	if _, err := h.client.Login(context.Background(), "viewer", "viewer123"); err == nil {
		t.Fatal("a login response without a user must fail")
	}
	if h.store.Len() != 0 {
		t.Fatal("nothing may be stored from a malformed login")
	}
	if h.client.Authenticated() {
		t.Fatal("expected anonymous")
	}
}
