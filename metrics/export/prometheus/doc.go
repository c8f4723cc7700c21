// Package prometheus renders client metrics in the Prometheus text exposition
// format.
//
// Counters are named kinvex_*_total, the request latency histogram is
// kinvex_request_latency_seconds, and kinvex_session_state is a gauge set to 1 for
// the current [kinvex.State] label.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the Handler.
//   - Mutate client state.
package prometheus
