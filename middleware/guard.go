package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/MrEthical07/kinvex/permission"
)

// SessionView reports the session a guard decides on. *kinvex.Client
// implements it.
type SessionView interface {
	View() permission.View
}

type decisionContextKey struct{}

// RouteFromContext returns the role the guard enforced for the request.
func RouteFromContext(ctx context.Context) (permission.Role, bool) {
	role, ok := ctx.Value(decisionContextKey{}).(permission.Role)
	return role, ok
}

// Options are the guard's redirect targets.
type Options struct {
	LoginPath        string
	UnauthorizedPath string
	// RetryAfter is sent with 503 while the session is loading.
	RetryAfter time.Duration
}

// DefaultOptions returns the login and unauthorized pages of the inventory UI.
func DefaultOptions() Options {
	return Options{
		LoginPath:        "/login",
		UnauthorizedPath: "/unauthorized",
		RetryAfter:       time.Second,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.LoginPath == "" {
		o.LoginPath = def.LoginPath
	}
	if o.UnauthorizedPath == "" {
		o.UnauthorizedPath = def.UnauthorizedPath
	}
	if o.RetryAfter <= 0 {
		o.RetryAfter = def.RetryAfter
	}
	return o
}

// RequireRole admits requests whose session holds at least required. An
// undefined required role panics at construction.
func RequireRole(sessions SessionView, required permission.Role, opts ...Options) func(http.Handler) http.Handler {
	if required != "" {
		_ = required.Rank()
	}
	o := pick(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			serve(w, r, next, sessions, required, o)
		})
	}
}

func pick(opts []Options) Options {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	return o.withDefaults()
}

func serve(w http.ResponseWriter, r *http.Request, next http.Handler, sessions SessionView, required permission.Role, o Options) {
	if sessions == nil {
		redirect(w, r, o.LoginPath, true)
		return
	}
	switch permission.Decide(sessions.View(), required) {
	case permission.Wait:
		w.Header().Set("Retry-After", strconv.Itoa(int(o.RetryAfter.Round(time.Second)/time.Second)))
		http.Error(w, "session is loading", http.StatusServiceUnavailable)
	case permission.RedirectLogin:
		redirect(w, r, o.LoginPath, true)
	case permission.RedirectUnauthorized:
		redirect(w, r, o.UnauthorizedPath, false)
	default:
		ctx := context.WithValue(r.Context(), decisionContextKey{}, required)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func redirect(w http.ResponseWriter, r *http.Request, target string, withFrom bool) {
	if withFrom {
		target += "?" + url.Values{"from": {r.URL.RequestURI()}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusFound)
}
