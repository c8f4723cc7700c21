package kinvex

import (
	"context"
	"errors"
)

// Refresh exchanges the stored refresh token for a new credential pair and
// replaces the in-memory user with the one returned. Concurrent calls, including
// those from the watchdog, share one exchange.
//
// When the server rejects the refresh the session ends (IsSessionInvalid(err)
// is true and a redirect to login was signaled once). With no refresh token the
// session quietly becomes Anonymous and ErrNoRefreshToken is returned. Transient
// failures keep the session and its tokens.
func (c *Client) Refresh(ctx context.Context) (*User, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.isClosed() {
		return nil, ErrClientClosed
	}
	done := c.begin()
	defer done()
	return c.refreshLocked(ctx, "refresh")
}

// refreshLocked is Refresh for callers that already hold an in-flight marker.
func (c *Client) refreshLocked(ctx context.Context, phase string) (*User, error) {
	user := c.User()
	out, err := c.gateway.refresh(ctx)
	if err != nil {
		if errors.Is(err, ErrNoRefreshToken) {
			c.clearQuietly(ctx)
		}
		c.audit(ctx, AuditRefreshFailure, user, err, map[string]string{"phase": phase})
		return nil, err
	}
	c.audit(ctx, AuditRefreshSuccess, out.resp.User, nil, map[string]string{"phase": phase})
	return out.resp.User.clone(), nil
}

// RefreshSession is Refresh reduced to whether the session is now Authenticated
// with fresh credentials.
func (c *Client) RefreshSession(ctx context.Context) bool {
	_, err := c.Refresh(ctx)
	return err == nil
}
