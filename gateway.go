package kinvex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/kinvex/tokenstore"
	"golang.org/x/sync/singleflight"
)

const maxResponseBytes = 4 << 20

// Gateway performs every call to the Kinvex API. It attaches the stored access
// token, maps failures onto the error taxonomy and owns all writes to the token
// store.
//
// Every save or clear of the credential pair bumps a generation counter under
// one mutex. A request remembers the generation its token was read at, and a 401
// only ends the session if that generation is still current. Concurrent requests
// failing with the same stale token therefore clear the store and redirect once.
type Gateway struct {
	baseURL   string
	http      *http.Client
	timeout   time.Duration
	userAgent string
	paths     APIConfig

	store          tokenstore.Store
	refreshTimeout time.Duration
	loginRedirect  string

	metrics   *Metrics
	logger    *log.Logger
	notifier  Notifier
	navigator Navigator

	mu         sync.Mutex
	generation atomic.Uint64
	flight     singleflight.Group
	hooks      sessionHooks
}

// sessionHooks let the owning Client mirror credential changes into its
// in-memory state. They run with the gateway mutex held and must not call back
// into the gateway.
type sessionHooks struct {
	refreshed   func(user *User)
	invalidated func()
}

type requestOptions struct {
	// anonymous requests carry no bearer token and never end the session on 401.
	anonymous bool
	// quiet requests report failures to the caller without notifying the user.
	quiet bool
	// login maps 401/403 to invalid credentials / disabled account.
	login bool
	// bearer is set by do when a token was attached.
	bearer bool
}

// Get issues a GET to path and decodes the JSON response into out.
func (g *Gateway) Get(ctx context.Context, path string, out any) error {
	return g.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with body encoded as JSON.
func (g *Gateway) Post(ctx context.Context, path string, body, out any) error {
	return g.Do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT with body encoded as JSON.
func (g *Gateway) Put(ctx context.Context, path string, body, out any) error {
	return g.Do(ctx, http.MethodPut, path, body, out)
}

// Patch issues a PATCH with body encoded as JSON.
func (g *Gateway) Patch(ctx context.Context, path string, body, out any) error {
	return g.Do(ctx, http.MethodPatch, path, body, out)
}

// Delete issues a DELETE to path.
func (g *Gateway) Delete(ctx context.Context, path string, out any) error {
	return g.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do sends an authenticated JSON request. body and out may be nil. Failures are
// returned as *APIError; the user is notified of 401, 403, 404, 5xx, timeouts and
// network errors, and a 401 additionally ends the session.
func (g *Gateway) Do(ctx context.Context, method, path string, body, out any) error {
	return g.do(ctx, method, path, body, out, requestOptions{})
}

// Generation returns the current credential generation.
func (g *Gateway) Generation() uint64 {
	return g.generation.Load()
}

func (g *Gateway) do(ctx context.Context, method, path string, body, out any, opts requestOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		token string
		gen   uint64
	)
	if !opts.anonymous {
		pair, _, snapGen, err := g.snapshot(ctx)
		if err != nil {
			return err
		}
		token, gen = pair.AccessToken, snapGen
	}

	requestID := requestIDFromContext(ctx)
	apiErr := &APIError{Method: method, Path: path, RequestID: requestID}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("kinvex: encode %s %s: %w", method, path, err)
		}
		payload = bytes.NewReader(data)
	}

	reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, joinURL(g.baseURL, path), payload)
	if err != nil {
		return fmt.Errorf("kinvex: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}
	req.Header.Set("X-Request-ID", requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		opts.bearer = true
	}

	start := time.Now()
	resp, err := g.http.Do(req)
	g.metrics.Observe(MetricRequestLatency, time.Since(start))
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		apiErr.cause = err
		apiErr.kind = ErrNetwork
		if isTimeout(err) {
			apiErr.kind = ErrTimeout
		}
		apiErr.Message = Reason(apiErr.kind)
		g.fail(ctx, apiErr, gen, opts)
		return apiErr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		apiErr.Status = resp.StatusCode
		apiErr.cause = err
		apiErr.kind = ErrNetwork
		if isTimeout(err) {
			apiErr.kind = ErrTimeout
		}
		g.fail(ctx, apiErr, gen, opts)
		return apiErr
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			apiErr.Status = resp.StatusCode
			apiErr.kind = ErrMalformedResponse
			apiErr.cause = err
			return apiErr
		}
		return nil
	}

	apiErr.Status = resp.StatusCode
	apiErr.kind = kindForStatus(resp.StatusCode, opts.login)
	var errBody ErrorResponse
	if json.Unmarshal(raw, &errBody) == nil {
		apiErr.Code = errBody.Code
		apiErr.Message = errBody.Message
		apiErr.Details = errBody.Details
	}
	if id := resp.Header.Get("X-Request-ID"); id != "" {
		apiErr.RequestID = id
	}
	g.fail(ctx, apiErr, gen, opts)
	return apiErr
}

// fail records metrics and performs the user-visible side effects of apiErr.
func (g *Gateway) fail(ctx context.Context, apiErr *APIError, gen uint64, opts requestOptions) {
	switch {
	case apiErr.kind == ErrForbidden:
		g.metrics.Inc(MetricForbidden)
	case IsTransient(apiErr):
		g.metrics.Inc(MetricTransientFailure)
	}

	if apiErr.kind == ErrSessionExpired && !opts.anonymous {
		// The invalidation emits the one session-expired notification, or none if
		// another request already ended this generation. A request sent without a
		// token had no session to end.
		if opts.bearer {
			g.invalidate(ctx, gen, apiErr)
		}
		return
	}
	if opts.quiet {
		return
	}
	if n, ok := errorNotification(apiErr); ok {
		g.notifier.Notify(ctx, n)
	}
}

// invalidate ends the session if the credential generation is still gen. It
// reports whether this call ended it.
func (g *Gateway) invalidate(ctx context.Context, gen uint64, cause error) bool {
	g.mu.Lock()
	if g.generation.Load() != gen {
		g.mu.Unlock()
		return false
	}
	if err := g.store.Clear(context.WithoutCancel(ctx)); err != nil {
		g.logger.Printf("kinvex: clear token store after session invalidation: %v", err)
	}
	g.generation.Add(1)
	if g.hooks.invalidated != nil {
		g.hooks.invalidated()
	}
	g.mu.Unlock()

	g.metrics.Inc(MetricSessionInvalidated)
	g.logger.Printf("kinvex: session invalidated: %v", cause)
	g.notifier.Notify(ctx, Notification{
		Kind:    NoteSessionExpired,
		Level:   LevelError,
		Message: Reason(ErrSessionExpired),
		Err:     cause,
	})
	g.navigator.RedirectToLogin(ctx, g.loginRedirect)
	return true
}

// snapshot reads the stored pair together with the generation it belongs to.
func (g *Gateway) snapshot(ctx context.Context) (tokenstore.Pair, bool, uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	pair, ok, err := g.store.Load(ctx)
	if err != nil {
		return tokenstore.Pair{}, false, 0, fmt.Errorf("kinvex: load credentials: %w", err)
	}
	return pair, ok, g.generation.Load(), nil
}

// storeSession atomically replaces the credentials with those in resp and runs
// apply under the same lock. A failed pair write clears the store so no partial
// pair is left behind.
func (g *Gateway) storeSession(ctx context.Context, resp *AuthResponse, apply func()) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.commitLocked(ctx, resp, apply)
}

func (g *Gateway) commitLocked(ctx context.Context, resp *AuthResponse, apply func()) (uint64, error) {
	pair := tokenstore.Pair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if err := g.store.Save(ctx, pair); err != nil {
		if clearErr := g.store.Clear(context.WithoutCancel(ctx)); clearErr != nil {
			g.logger.Printf("kinvex: clear token store after failed save: %v", clearErr)
		}
		g.generation.Add(1)
		if g.hooks.invalidated != nil {
			g.hooks.invalidated()
		}
		return g.generation.Load(), fmt.Errorf("kinvex: save credentials: %w", err)
	}
	gen := g.generation.Add(1)

	if data, err := json.Marshal(resp.User); err != nil {
		g.logger.Printf("kinvex: encode cached user: %v", err)
	} else if err := g.store.SaveUser(ctx, data); err != nil {
		// The pair is intact; a missing cached user only sends the next start down
		// the refresh path.
		g.logger.Printf("kinvex: cache user: %v", err)
	}
	if apply != nil {
		apply()
	}
	return gen, nil
}

// clearSession removes all credentials and runs apply under the same lock. It
// reports whether any credentials were stored.
func (g *Gateway) clearSession(ctx context.Context, apply func()) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.clearLocked(ctx, apply)
}

// clearSessionIf is clearSession conditioned on the generation still being gen.
// It returns false without touching the store otherwise.
func (g *Gateway) clearSessionIf(ctx context.Context, gen uint64, apply func()) (cleared, had bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.generation.Load() != gen {
		return false, false, nil
	}
	had, err = g.clearLocked(ctx, apply)
	return true, had, err
}

func (g *Gateway) clearLocked(ctx context.Context, apply func()) (bool, error) {
	ctx = context.WithoutCancel(ctx)
	pair, ok, loadErr := g.store.Load(ctx)
	_, hasUser, _ := g.store.LoadUser(ctx)
	err := g.store.Clear(ctx)
	g.generation.Add(1)
	if apply != nil {
		apply()
	}
	if err != nil {
		return true, fmt.Errorf("kinvex: clear credentials: %w", err)
	}
	return (ok && loadErr == nil && !pair.Empty()) || hasUser, nil
}

// adopt runs apply under the gateway lock if the generation is still gen.
func (g *Gateway) adopt(gen uint64, apply func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.generation.Load() != gen {
		return false
	}
	apply()
	return true
}

func (g *Gateway) login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var resp AuthResponse
	err := g.do(ctx, http.MethodPost, g.paths.LoginPath, req, &resp, requestOptions{anonymous: true, quiet: true, login: true})
	if err != nil {
		return nil, err
	}
	if err := resp.validate(); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (g *Gateway) logoutRemote(ctx context.Context, refreshToken string) error {
	return g.do(ctx, http.MethodPost, g.paths.LogoutPath, LogoutRequest{RefreshToken: refreshToken}, nil, requestOptions{anonymous: true, quiet: true})
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
