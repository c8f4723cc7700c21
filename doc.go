// Package kinvex is the session and access-control client for the Kinvex
// inventory API. It keeps one user signed in, attaches their bearer token to
// every API call, refreshes credentials, and decides what the user may open.
//
// A [Client] is built once with [New] and [Builder.Build] and passed to
// whatever needs it; there are no package-level singletons. Client methods are
// safe to call from multiple goroutines.
//
// # Architecture boundaries
//
// [Gateway] performs all HTTP and owns every write to the [tokenstore.Store].
// [Client] holds the in-memory session (user, loading, state) and orchestrates
// login, logout, refresh and start-up restore on top of the gateway. Role
// comparisons live in the permission package; token decoding lives in jwt.
// [Watchdog] polls the stored access token and calls back into the Client.
//
// # Consistency contract
//
// Token-store writes are serialized by the gateway and tagged with a credential
// generation. A 401 ends the session only if the credentials it was sent with
// are still current, refreshes are single-flight, and a watchdog logout never
// clobbers a refresh that committed first. The stored pair is always both
// tokens or neither.
package kinvex
