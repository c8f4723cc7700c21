package kinvex

import (
	"context"
	"fmt"
	"strings"
)

// Login authenticates against the login endpoint and, on success, stores the
// returned credential pair and user and moves the session to Authenticated.
//
// Exactly one of the results is non-nil. On failure the session is left as it
// was, and a single NoteLoginFailed notification carries Reason(err) for the UI.
// An empty username or password fails with ErrValidation without a network call.
func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.isClosed() {
		return nil, ErrClientClosed
	}
	done := c.begin()
	defer done()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, c.loginFailed(ctx, username, fmt.Errorf("%w: username and password are required", ErrValidation), "empty_credentials")
	}

	resp, err := c.gateway.login(ctx, LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, c.loginFailed(ctx, username, err, "rejected")
	}
	if !resp.User.Active {
		return nil, c.loginFailed(ctx, username, ErrAccountDisabled, "inactive")
	}

	if _, err := c.gateway.storeSession(ctx, resp, func() { c.setUser(resp.User) }); err != nil {
		return nil, c.loginFailed(ctx, username, err, "store")
	}

	c.metrics.Inc(MetricLoginSuccess)
	c.audit(ctx, AuditLoginSuccess, resp.User, nil, nil)
	c.notify(ctx, Notification{
		Kind:    NoteLoginSucceeded,
		Level:   LevelSuccess,
		Message: fmt.Sprintf("Welcome, %s!", resp.User.Username),
	})
	return resp.User.clone(), nil
}

func (c *Client) loginFailed(ctx context.Context, username string, err error, reason string) error {
	c.metrics.Inc(MetricLoginFailure)
	c.audit(ctx, AuditLoginFailure, nil, err, map[string]string{"reason": reason, "username": username})
	c.notify(ctx, Notification{
		Kind:    NoteLoginFailed,
		Level:   LevelError,
		Message: Reason(err),
		Err:     err,
	})
	return err
}
