// Package tokenstore persists the credential pair (access token, refresh token) and the
// cached user profile of a Kinvex client session.
//
// # Slots
//
// Every backend holds exactly three named slots, configured through [Keys]: the access
// token, the refresh token and the JSON-serialized user. The user slot is opaque to this
// package; decoding and validation belong to the caller.
//
// # Atomicity
//
// [Store.Save] writes both tokens together and [Store.Clear] removes all three slots
// together. No reader may observe a half-written pair or a partial clear. Each backend
// meets this with the primitive native to its medium: a mutex for [MemoryStore],
// rename-over for [FileStore], MULTI/EXEC and multi-key DEL for [RedisStore], and a
// transaction for [SQLiteStore].
//
// # What this package must NOT do
//
//   - Import the root kinvex package (no upward imports).
//   - Interpret token contents or user payloads.
//   - Perform network I/O other than to its own storage medium.
package tokenstore
