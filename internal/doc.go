// Package internal holds helpers private to the kinvex module, currently the
// opaque token generation shared by the development API servers.
//
// # Sub-packages
//
//   - fakeapi: an in-process Kinvex API used by tests and cmd/kinvex-mockapi
//   - rate: Redis fixed-window counters throttling failed logins to the fake API
package internal
