package middleware

import (
	"net/http"

	"github.com/MrEthical07/kinvex/permission"
)

// RequireAuthenticated admits any signed-in user.
func RequireAuthenticated(sessions SessionView, opts ...Options) func(http.Handler) http.Handler {
	return RequireRole(sessions, "", opts...)
}

// RequireRoute enforces the role registered for the request path. Paths the
// registry does not know are served without a check.
func RequireRoute(sessions SessionView, routes *permission.Registry, opts ...Options) func(http.Handler) http.Handler {
	o := pick(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, ok := routes.Lookup(r.URL.Path)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			serve(w, r, next, sessions, route.Required, o)
		})
	}
}
