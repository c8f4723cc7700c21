// Package otel publishes client metrics through an OpenTelemetry Meter.
//
// Every counter becomes an Int64ObservableCounter, each latency bucket an
// Int64ObservableGauge, and kinvex_session_state a gauge with a state attribute.
// One callback reads the client snapshot per collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate client state.
package otel
