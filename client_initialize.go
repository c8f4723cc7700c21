package kinvex

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/MrEthical07/kinvex/jwt"
)

// Initialize resolves the session from the token store at process start.
//
// A stored pair with a decodable cached user and an unexpired access token is
// adopted without a network call. Otherwise the refresh path runs. Missing,
// partial or unparseable persisted data counts as absence. Every failure ends
// Anonymous with the store cleared; only a store that cannot be read is reported
// as an error. Loading is false again when Initialize returns.
func (c *Client) Initialize(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.isClosed() {
		return ErrClientClosed
	}
	done := c.begin()
	defer done()

	pair, ok, gen, err := c.gateway.snapshot(ctx)
	if err != nil {
		c.clearQuietly(ctx)
		return err
	}
	if !ok || pair.Empty() {
		c.setUser(nil)
		return nil
	}
	if !pair.Complete() {
		c.logger.Printf("kinvex: discarding partial credential pair")
		c.clearQuietly(ctx)
		return nil
	}

	if user := c.cachedUser(ctx); user != nil && !jwt.Expired(pair.AccessToken, c.now()) {
		if c.gateway.adopt(gen, func() { c.setUser(user) }) {
			c.audit(ctx, AuditSessionRestored, user, nil, nil)
			return nil
		}
	}

	_, err = c.refreshLocked(ctx, "initialize")
	switch {
	case err == nil, errors.Is(err, ErrNoRefreshToken), errors.Is(err, ErrRefreshSuperseded):
		return nil
	case errors.Is(err, context.Canceled):
		c.clearQuietly(ctx)
		return err
	case IsSessionInvalid(err):
		return nil
	default:
		// A transient failure here still leaves no user to show; start over.
		c.clearQuietly(ctx)
		return nil
	}
}

func (c *Client) cachedUser(ctx context.Context) *User {
	data, ok, err := c.store.LoadUser(ctx)
	if err != nil {
		c.logger.Printf("kinvex: read cached user: %v", err)
		return nil
	}
	if !ok || len(data) == 0 {
		return nil
	}
	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		c.logger.Printf("kinvex: discarding unreadable cached user: %v", err)
		return nil
	}
	return &user
}
