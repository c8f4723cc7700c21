package kinvex

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/MrEthical07/kinvex/permission"
	"github.com/MrEthical07/kinvex/tokenstore"
)

// Client owns the session of one user of the Kinvex API: who is signed in,
// whether an auth operation is in flight, and the credentials in its token store.
// Create it with New().Build(). All methods are safe for concurrent use.
type Client struct {
	config    Config
	gateway   *Gateway
	store     tokenstore.Store
	metrics   *Metrics
	auditor   *auditDispatcher
	logger    *log.Logger
	notifier  Notifier
	navigator Navigator
	routes    *permission.Registry
	watchdog  *Watchdog
	now       func() time.Time

	mu          sync.RWMutex
	user        *User
	initialized bool
	inflight    int
	closed      bool
	closeOnce   sync.Once
}

// User returns a copy of the signed-in user, or nil.
func (c *Client) User() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user.clone()
}

// Authenticated reports whether a user is signed in.
func (c *Client) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user != nil
}

// Loading reports whether the session is not yet resolved or an auth operation
// is in flight. Role checks are not trustworthy while Loading is true.
func (c *Client) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.initialized || c.inflight > 0
}

// State returns the lifecycle state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch {
	case c.inflight > 0:
		return StateChecking
	case !c.initialized:
		return StateUninitialized
	case c.user != nil:
		return StateAuthenticated
	default:
		return StateAnonymous
	}
}

// View returns the session as seen by a route guard.
func (c *Client) View() permission.View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v := permission.View{
		Loading:       !c.initialized || c.inflight > 0,
		Authenticated: c.user != nil,
	}
	if c.user != nil {
		v.Role = c.user.Role
	}
	return v
}

// HasRole reports whether the signed-in user's role ranks at least role. It is
// false without a session and panics if role is undefined.
func (c *Client) HasRole(role permission.Role) bool {
	c.mu.RLock()
	user := c.user
	c.mu.RUnlock()
	if user == nil {
		_ = role.Rank()
		return false
	}
	return permission.Allows(user.Role, role)
}

// HasAnyRole reports whether the signed-in user satisfies at least one of roles.
func (c *Client) HasAnyRole(roles ...permission.Role) bool {
	c.mu.RLock()
	user := c.user
	c.mu.RUnlock()
	if user == nil {
		for _, r := range roles {
			_ = r.Rank()
		}
		return false
	}
	return permission.AllowsAny(user.Role, roles...)
}

// Can reports whether the signed-in user has capability.
func (c *Client) Can(capability permission.Capability) bool {
	c.mu.RLock()
	user := c.user
	c.mu.RUnlock()
	return user != nil && permission.Grants(user.Role, capability)
}

// Navigation returns the routes the signed-in user may open.
func (c *Client) Navigation() []permission.Route {
	c.mu.RLock()
	user := c.user
	c.mu.RUnlock()
	if user == nil {
		return nil
	}
	return c.routes.Visible(user.Role)
}

// Routes returns the navigation registry the client was built with.
func (c *Client) Routes() *permission.Registry {
	return c.routes
}

// Gateway returns the API gateway, for issuing authenticated requests.
func (c *Client) Gateway() *Gateway {
	return c.gateway
}

// Watchdog returns the expiration watchdog.
func (c *Client) Watchdog() *Watchdog {
	return c.watchdog
}

// Metrics returns the client's counters.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// MetricsSnapshot implements the metrics exporter source.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (c *Client) AuditDropped() uint64 {
	return c.auditor.Dropped()
}

// Close stops the watchdog and flushes audit events. The stored credentials are
// kept so a later process can resume the session.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.watchdog.Close()
		c.auditor.Close()
	})
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// begin marks an auth operation in flight; the returned func ends it and must be
// deferred so Loading clears on every exit path.
func (c *Client) begin() func() {
	c.mu.Lock()
	c.inflight++
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.inflight--
		c.initialized = true
		c.mu.Unlock()
	}
}

// setUser replaces the in-memory user and starts or stops the watchdog to match.
// Callers hold the gateway lock.
func (c *Client) setUser(u *User) *User {
	c.mu.Lock()
	prev := c.user
	c.user = u.clone()
	c.initialized = true
	closed := c.closed
	c.mu.Unlock()

	if u != nil && !closed {
		c.watchdog.Start()
	} else {
		c.watchdog.Stop()
	}
	return prev
}

// invalidated mirrors a gateway-side end of the session, such as a 401 or a
// rejected refresh.
func (c *Client) invalidated() {
	if prev := c.setUser(nil); prev != nil {
		c.audit(context.Background(), AuditSessionInvalidated, prev, ErrSessionExpired, nil)
	}
}

func (c *Client) notify(ctx context.Context, n Notification) {
	c.notifier.Notify(ctx, n)
}
