// Package middleware guards net/http handlers with the role rules of a kinvex
// session.
//
// # Guards
//
//   - [RequireRole] admits users whose role ranks at least the required role.
//   - [RequireAuthenticated] admits any signed-in user.
//   - [RequireRoute] looks the required role up in a [permission.Registry].
//
// Each guard asks its [SessionView] for the current session and applies
// [permission.Decide]: while the session is still loading it answers 503 with
// Retry-After, an anonymous user is redirected to the login page with the
// requested path in the "from" query parameter, and a user with too small a
// role is redirected to the unauthorized page.
//
// # Architecture boundaries
//
// This package translates route decisions into HTTP responses. It never reads
// tokens or calls the API; the session it consults is owned by a kinvex.Client.
package middleware
