// Package fakeapi is an in-process Kinvex API for tests and local development.
//
// It serves the auth endpoints with real HS256 access tokens and rotating
// opaque refresh tokens, plus the inventory, order, supplier and report
// endpoints over seeded in-memory data. Tests steer it with Fail (queued error
// statuses per route), SetRefreshDelay and SetAccessTTL, and read back call
// counters.
package fakeapi
