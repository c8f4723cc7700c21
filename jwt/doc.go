// Package jwt reads and issues Kinvex access tokens.
//
// The client never holds the server's signing key, so it only needs [Expiry]: an
// unverified decode of the payload's exp claim used by the expiration watchdog and
// by session initialization. [Manager] signs and verifies tokens and is used by
// the mock API server and tests.
//
// # What this package must NOT do
//
//   - Treat an unverified decode as proof of authenticity.
//   - Access token storage or the network.
package jwt
