package kinvex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

const refreshFlightKey = "refresh"

type refreshOutcome struct {
	resp       *AuthResponse
	generation uint64
}

// Refresh exchanges the stored refresh token for a new pair. Concurrent callers
// share one exchange and receive the same outcome. The exchange is bounded by the
// configured refresh timeout and keeps running if the caller that started it
// goes away, so its result is always committed or discarded consistently.
//
// On success both tokens and the cached user are replaced atomically. A refusal
// by the server, or a response naming a deactivated user, clears every
// credential and signals one redirect to login; the returned error then
// satisfies IsSessionInvalid. Transient failures leave the stored pair
// untouched. A result arriving after the session was changed by a login, logout
// or invalidation is dropped with ErrRefreshSuperseded.
func (g *Gateway) Refresh(ctx context.Context) (*AuthResponse, error) {
	out, err := g.refresh(ctx)
	if err != nil {
		return nil, err
	}
	return out.resp, nil
}

func (g *Gateway) refresh(ctx context.Context) (refreshOutcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ch := g.flight.DoChan(refreshFlightKey, func() (any, error) {
		exchangeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.refreshTimeout)
		defer cancel()
		return g.exchange(exchangeCtx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			g.metrics.Inc(MetricRefreshShared)
		}
		if res.Err != nil {
			return refreshOutcome{}, res.Err
		}
		return res.Val.(refreshOutcome), nil
	case <-ctx.Done():
		return refreshOutcome{}, ctx.Err()
	}
}

func (g *Gateway) exchange(ctx context.Context) (refreshOutcome, error) {
	pair, ok, gen, err := g.snapshot(ctx)
	if err != nil {
		return refreshOutcome{}, err
	}
	if !ok || pair.RefreshToken == "" {
		return refreshOutcome{}, ErrNoRefreshToken
	}

	var resp AuthResponse
	err = g.do(ctx, http.MethodPost, g.paths.RefreshPath, RefreshRequest{RefreshToken: pair.RefreshToken}, &resp,
		requestOptions{anonymous: true, quiet: true})
	if err == nil {
		err = resp.validate()
	}
	if err == nil && !resp.User.Active {
		// A disabled account may not keep a session it could not log in to.
		err = ErrAccountDisabled
	}
	if err != nil {
		g.metrics.Inc(MetricRefreshFailure)
		if IsTransient(err) || errors.Is(err, context.DeadlineExceeded) {
			g.logger.Printf("kinvex: refresh failed, keeping credentials: %v", err)
			if n, ok := errorNotification(err); ok {
				g.notifier.Notify(ctx, n)
			}
			return refreshOutcome{}, err
		}
		// Any other answer means the refresh token is no good.
		g.invalidate(ctx, gen, err)
		if errors.Is(err, ErrSessionExpired) {
			return refreshOutcome{}, err
		}
		return refreshOutcome{}, fmt.Errorf("%w: refresh rejected: %w", ErrSessionExpired, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.generation.Load() != gen {
		g.metrics.Inc(MetricRefreshSuperseded)
		return refreshOutcome{}, ErrRefreshSuperseded
	}
	newGen, err := g.commitLocked(ctx, &resp, func() {
		if g.hooks.refreshed != nil {
			g.hooks.refreshed(resp.User)
		}
	})
	if err != nil {
		g.metrics.Inc(MetricRefreshFailure)
		return refreshOutcome{}, err
	}
	g.metrics.Inc(MetricRefreshSuccess)
	return refreshOutcome{resp: &resp, generation: newGen}, nil
}
