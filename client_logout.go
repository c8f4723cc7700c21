package kinvex

import (
	"context"
	"errors"
)

const (
	logoutReasonUser    = "user"
	logoutReasonExpired = "expired"
)

// Logout ends the session. The server is told on a best-effort basis; an
// unreachable server never blocks the local logout. Afterwards the token store
// holds no tokens and no cached user and the session is Anonymous.
//
// Logout on an Anonymous session is a no-op with respect to stored state and
// emits no notification.
func (c *Client) Logout(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	done := c.begin()
	defer done()

	pair, _, _, err := c.gateway.snapshot(ctx)
	if err != nil {
		c.logger.Printf("kinvex: logout: %v", err)
	}
	if pair.RefreshToken != "" {
		if err := c.gateway.logoutRemote(ctx, pair.RefreshToken); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Printf("kinvex: logout: server not informed: %v", err)
		}
	}

	var prev *User
	had, clearErr := c.gateway.clearSession(ctx, func() { prev = c.setUser(nil) })
	c.loggedOut(ctx, prev, had || prev != nil, logoutReasonUser)
	return clearErr
}

// logoutIf ends the session on behalf of the watchdog, but only if the
// credentials are still those of generation gen. A refresh that committed in the
// meantime wins and the logout is skipped.
func (c *Client) logoutIf(ctx context.Context, gen uint64) bool {
	ctx = context.WithoutCancel(ctx)
	done := c.begin()
	defer done()

	pair, _, snapGen, err := c.gateway.snapshot(ctx)
	if err != nil || snapGen != gen {
		return false
	}

	var prev *User
	cleared, had, clearErr := c.gateway.clearSessionIf(ctx, gen, func() { prev = c.setUser(nil) })
	if !cleared {
		return false
	}
	if clearErr != nil {
		c.logger.Printf("kinvex: expiry logout: %v", clearErr)
	}
	if pair.RefreshToken != "" {
		if err := c.gateway.logoutRemote(ctx, pair.RefreshToken); err != nil {
			c.logger.Printf("kinvex: expiry logout: server not informed: %v", err)
		}
	}
	c.loggedOut(ctx, prev, had || prev != nil, logoutReasonExpired)
	return true
}

func (c *Client) loggedOut(ctx context.Context, prev *User, had bool, reason string) {
	if !had {
		return
	}
	c.metrics.Inc(MetricLogout)
	c.audit(ctx, AuditLogout, prev, nil, map[string]string{"reason": reason})
	if reason == logoutReasonExpired {
		c.notify(ctx, Notification{
			Kind:    NoteSessionExpired,
			Level:   LevelWarning,
			Message: Reason(ErrSessionExpired),
		})
		c.navigator.RedirectToLogin(ctx, c.config.Auth.LoginRedirectPath)
		return
	}
	c.notify(ctx, Notification{
		Kind:    NoteLoggedOut,
		Level:   LevelInfo,
		Message: "You have been signed out.",
	})
}

// clearQuietly drops every credential without telling the user. It is used
// when restoring a session finds nothing usable.
func (c *Client) clearQuietly(ctx context.Context) {
	if _, err := c.gateway.clearSession(ctx, func() { c.setUser(nil) }); err != nil {
		c.logger.Printf("kinvex: reset session: %v", err)
	}
}
