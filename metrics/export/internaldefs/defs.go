package internaldefs

import (
	"github.com/MrEthical07/kinvex"
)

// CounterDef binds a client counter to its exported name.
type CounterDef struct {
	ID   kinvex.MetricID
	Name string
	Help string
}

// HistogramDef binds a client histogram to its exported name.
type HistogramDef struct {
	ID   kinvex.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: kinvex.MetricLoginSuccess, Name: "kinvex_login_success_total", Help: "Successful logins."},
	{ID: kinvex.MetricLoginFailure, Name: "kinvex_login_failure_total", Help: "Failed logins, any reason."},
	{ID: kinvex.MetricLogout, Name: "kinvex_logout_total", Help: "Local logouts."},
	{ID: kinvex.MetricRefreshSuccess, Name: "kinvex_refresh_success_total", Help: "Refresh exchanges that rotated the token pair."},
	{ID: kinvex.MetricRefreshFailure, Name: "kinvex_refresh_failure_total", Help: "Refresh exchanges that failed."},
	{ID: kinvex.MetricRefreshShared, Name: "kinvex_refresh_shared_total", Help: "Refresh callers served by an exchange already in flight."},
	{ID: kinvex.MetricRefreshSuperseded, Name: "kinvex_refresh_superseded_total", Help: "Refresh results discarded because the session changed meanwhile."},
	{ID: kinvex.MetricSessionInvalidated, Name: "kinvex_session_invalidated_total", Help: "Sessions ended by the server."},
	{ID: kinvex.MetricForbidden, Name: "kinvex_forbidden_total", Help: "Requests refused with 403."},
	{ID: kinvex.MetricTransientFailure, Name: "kinvex_transient_failure_total", Help: "Network, timeout and 5xx failures."},
	{ID: kinvex.MetricWatchdogWarning, Name: "kinvex_watchdog_warning_total", Help: "Session-expiring warnings emitted."},
	{ID: kinvex.MetricWatchdogExpired, Name: "kinvex_watchdog_expired_total", Help: "Logouts triggered by an expired access token."},
	{ID: kinvex.MetricWatchdogDecodeFailure, Name: "kinvex_watchdog_decode_failure_total", Help: "Watchdog cycles skipped on an undecodable access token."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: kinvex.MetricRequestLatency, Name: "kinvex_request_latency_seconds", Help: "API round-trip latency."},
}

// HistogramBounds are the upper bounds of the latency buckets in seconds.
var HistogramBounds = []string{
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"+Inf",
}

// HistogramBoundSuffix names each bucket for exporters that flatten buckets
// into separate instruments.
var HistogramBoundSuffix = []string{
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size bucket array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
