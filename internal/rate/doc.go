// Package rate throttles failed logins with Redis fixed-window counters:
// INCR plus an EXPIRE on the first hit of each window. Keys live under the
// configured prefix:
//
//   - <prefix>:login:u:<username>
//   - <prefix>:login:ip:<address>
//
// The fake API consults it before verifying a password and answers 429 once
// either counter is over budget.
package rate
