package kinvex

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/kinvex/permission"
)

func TestRefreshRotatesCredentials(t *testing.T) {
	h := newHarness(t)
	h.login("viewer", "viewer123")
	before, _ := h.pair()

	user, err := h.client.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if user.Username != "viewer" {
		t.Fatalf("unexpected user %+v", user)
	}
	after, _ := h.pair()
	if after.AccessToken == before.AccessToken || after.RefreshToken == before.RefreshToken {
		t.Fatal("expected both tokens replaced")
	}
	if h.client.Metrics().Value(MetricRefreshSuccess) != 1 {
		t.Fatal("expected refresh success counted")
	}
	h.requireConsistent()
}

func TestConcurrentRefreshSharesOneExchange(t *testing.T) {
	h := newHarness(t)
	h.login("viewer", "viewer123")
	h.api.SetRefreshDelay(100 * time.Millisecond)

	const callers = 16
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make(chan error, callers)
		users = make(chan *User, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			u, err := h.client.Refresh(context.Background())
			errs <- err
			users <- u
		}()
	}
	close(start)
	wg.Wait()
	close(errs)
	close(users)

	for err := range errs {
		if err != nil {
			t.Fatalf("Refresh: %v", err)
		}
	}
	for u := range users {
		if u == nil || u.Username != "viewer" {
			t.Fatalf("unexpected user %+v", u)
		}
	}
	if got := h.api.RefreshCalls(); got != 1 {
		t.Fatalf("expected one refresh request, got %d", got)
	}
	if got := h.client.Metrics().Value(MetricRefreshShared); got == 0 {
		t.Fatal("expected shared refresh results to be counted")
	}
	if h.client.Loading() {
		t.Fatal("loading must clear once all refreshes return")
	}
	h.requireConsistent()
}

func TestRefreshRejectedEndsSession(t *testing.T) {
	h := newHarness(t)
	h.login("viewer", "viewer123")
	h.api.RevokeRefreshTokens()

	if h.client.RefreshSession(context.Background()) {
		t.Fatal("expected refresh to fail")
	}
	_, err := h.client.Refresh(context.Background())
	if !errors.Is(err, ErrNoRefreshToken) {
		t.Fatalf("second refresh after rejection: expected ErrNoRefreshToken, got %v", err)
	}
	if h.client.State() != StateAnonymous {
		t.Fatalf("expected anonymous, got %s", h.client.State())
	}
	h.requireCleared()
	if got := h.redirects.Count(); got != 1 {
		t.Fatalf("expected exactly one redirect, got %d", got)
	}
	if got := h.notes.Count(NoteSessionExpired); got != 1 {
		t.Fatalf("expected exactly one session expired notification, got %d", got)
	}
}

func TestRefreshRejectedReturnsSessionInvalid(t *testing.T) {
	h := newHarness(t)
	h.login("viewer", "viewer123")
	h.api.Fail("/auth/refresh", http.StatusForbidden)

	_, err := h.client.Refresh(context.Background())
	if !IsSessionInvalid(err) || !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected session invalid wrapping forbidden, got %v", err)
	}
	h.requireCleared()
	if h.redirects.Count() != 1 {
		t.Fatalf("expected one redirect, got %d", h.redirects.Count())
	}
}

func TestRefreshTransientFailureKeepsSession(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusServiceUnavailable} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			h := newHarness(t)
			h.login("manager", "manager123")
			before, _ := h.pair()
			h.api.Fail("/auth/refresh", status)

			_, err := h.client.Refresh(context.Background())
			if !IsTransient(err) || IsSessionInvalid(err) {
				t.Fatalf("expected transient error, got %v", err)
			}
			after, _ := h.pair()
			if after != before {
				t.Fatal("transient refresh failure must keep the stored pair")
			}
			if !h.client.Authenticated() || h.client.User().Role != permission.Manager {
				t.Fatal("transient refresh failure must keep the user")
			}
			if h.redirects.Count() != 0 {
				t.Fatal("transient refresh failure must not redirect")
			}
			if got := h.notes.Count(NoteServerError); got != 1 {
				t.Fatalf("expected one server error notification, got %d", got)
			}

			if _, err := h.client.Refresh(context.Background()); err != nil {
				t.Fatalf("refresh after recovery: %v", err)
			}
		})
	}
}

func TestRefreshTimeoutKeepsSession(t *testing.T) {
	h := newHarness(t, func(cfg *Config) {
		cfg.Auth.RefreshTimeout = 50 * time.Millisecond
	})
	h.login("viewer", "viewer123")
	before, _ := h.pair()
	h.api.SetRefreshDelay(time.Second)

	_, err := h.client.Refresh(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	after, _ := h.pair()
	if after != before || !h.client.Authenticated() {
		t.Fatal("a timed out refresh must keep the session")
	}
	if got := h.notes.Count(NoteTimeout); got != 1 {
		t.Fatalf("expected one timeout notification, got %d", got)
	}
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	h := newHarness(t)
	if err := h.client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	_, err := h.client.Refresh(context.Background())
	if !errors.Is(err, ErrNoRefreshToken) {
		t.Fatalf("expected ErrNoRefreshToken, got %v", err)
	}
	if h.client.State() != StateAnonymous {
		t.Fatalf("expected anonymous, got %s", h.client.State())
	}
	if h.redirects.Count() != 0 || len(h.notes.All()) != 0 {
		t.Fatal("refresh without a refresh token is silent")
	}
	if h.api.RefreshCalls() != 0 {
		t.Fatal("no request may be sent without a refresh token")
	}
}

func TestRefreshSupersededByLogin(t *testing.T) {
	h := newHarness(t)
	h.login("viewer", "viewer123")
	h.api.SetRefreshDelay(200 * time.Millisecond)

	result := make(chan error, 1)
	go func() {
		_, err := h.client.Refresh(context.Background())
		result <- err
	}()
	waitFor(t, time.Second, func() bool { return h.api.RefreshCalls() == 1 })

	admin := h.login("admin", "admin123")
	adminPair, _ := h.pair()

	if err := <-result; !errors.Is(err, ErrRefreshSuperseded) {
		t.Fatalf("expected ErrRefreshSuperseded, got %v", err)
	}
	if got := h.client.User(); got == nil || got.Username != admin.Username {
		t.Fatalf("late refresh replaced the user: %+v", got)
	}
	current, _ := h.pair()
	if current != adminPair {
		t.Fatal("late refresh overwrote the newer credentials")
	}
	if h.client.Metrics().Value(MetricRefreshSuperseded) != 1 {
		t.Fatal("expected superseded refresh counted")
	}
	h.requireConsistent()
}

func TestRefreshSupersededByLogout(t *testing.T) {
	h := newHarness(t)
	h.login("viewer", "viewer123")
	h.api.SetRefreshDelay(200 * time.Millisecond)

	result := make(chan error, 1)
	go func() {
		_, err := h.client.Refresh(context.Background())
		result <- err
	}()
	waitFor(t, time.Second, func() bool { return h.api.RefreshCalls() == 1 })

	if err := h.client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	// The logout revoked the refresh token the exchange carries, so the server
	// may reject it; either way the late answer must change nothing.
	if err := <-result; err == nil {
		t.Fatal("expected the late refresh to fail")
	}
	h.requireCleared()
	if h.client.Authenticated() {
		t.Fatal("a refresh finishing after logout must not resurrect the session")
	}
	if h.redirects.Count() != 0 || h.notes.Count(NoteSessionExpired) != 0 {
		t.Fatal("a stale refresh rejection must not end the session a second time")
	}
}

func TestRefreshOutlivesCanceledCaller(t *testing.T) {
	h := newHarness(t)
	h.login("viewer", "viewer123")
	before, _ := h.pair()
	h.api.SetRefreshDelay(100 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for h.api.RefreshCalls() == 0 {
			time.Sleep(5 * time.Millisecond)
		}
		cancel()
	}()
	if _, err := h.client.Refresh(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		p, _ := h.pair()
		return p.RefreshToken != before.RefreshToken
	})
	h.requireConsistent()
	if !h.client.Authenticated() {
		t.Fatal("the detached exchange should still commit")
	}
}

func TestStoredPairNeverPartial(t *testing.T) {
	h := newHarness(t)
	h.login("viewer", "viewer123")

	stop := make(chan struct{})
	violations := make(chan string, 1)
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			p, ok, _ := h.store.Load(context.Background())
			if ok && !p.Complete() {
				select {
				case violations <- "partial pair observed":
				default:
				}
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 4 {
			case 0:
				_, _ = h.client.Refresh(context.Background())
			case 1:
				_, _ = h.client.Login(context.Background(), "manager", "manager123")
			case 2:
				_ = h.client.Gateway().Get(context.Background(), "/inventory/products", nil)
			default:
				_ = h.client.Logout(context.Background())
			}
		}(i)
	}
	wg.Wait()
	close(stop)
	readers.Wait()

	select {
	case v := <-violations:
		t.Fatal(v)
	default:
	}
	h.requireConsistent()
}
