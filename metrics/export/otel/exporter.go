package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/kinvex"
	"github.com/MrEthical07/kinvex/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilMeter is returned by NewExporter without a meter.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned by NewExporter without a source.
	ErrNilSource = errors.New("nil metrics source")
)

// Source is what the exporter reads. *kinvex.Client implements it.
type Source interface {
	MetricsSnapshot() kinvex.MetricsSnapshot
	AuditDropped() uint64
	State() kinvex.State
}

type counterBinding struct {
	id         kinvex.MetricID
	instrument metric.Int64ObservableCounter
}

type histogramBinding struct {
	id      kinvex.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// Exporter keeps the callback registration alive until Close.
type Exporter struct {
	source       Source
	registration metric.Registration
	counters     []counterBinding
	histograms   []histogramBinding
	auditDropped metric.Int64ObservableCounter
	sessionState metric.Int64ObservableGauge
}

// NewExporter creates the instruments on meter and registers the collection
// callback.
func NewExporter(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, counterBinding{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h := histogramBinding{id: def.ID}
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			name := def.Name + "_bucket_le_" + suffix
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative latency bucket count."))
			if err != nil {
				return nil, fmt.Errorf("create bucket gauge %s: %w", name, err)
			}
			h.buckets[i] = ins
			observables = append(observables, ins)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Latency sample count."))
		if err != nil {
			return nil, fmt.Errorf("create count gauge %s_count: %w", def.Name, err)
		}
		h.count = count
		observables = append(observables, count)
		e.histograms = append(e.histograms, h)
	}

	var err error
	e.auditDropped, err = meter.Int64ObservableCounter("kinvex_audit_dropped_total",
		metric.WithDescription("Audit events dropped under backpressure."))
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	e.sessionState, err = meter.Int64ObservableGauge("kinvex_session_state",
		metric.WithDescription("Current session state, 1 for the active state."))
	if err != nil {
		return nil, fmt.Errorf("create session state gauge: %w", err)
	}
	observables = append(observables, e.auditDropped, e.sessionState)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		o.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
	}
	for _, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[h.id]))
		for i := range cumulative {
			o.ObserveInt64(h.buckets[i], int64(cumulative[i]))
		}
		o.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))

	current := e.source.State()
	for _, s := range []kinvex.State{kinvex.StateUninitialized, kinvex.StateChecking, kinvex.StateAuthenticated, kinvex.StateAnonymous} {
		var v int64
		if s == current {
			v = 1
		}
		o.ObserveInt64(e.sessionState, v, metric.WithAttributes(attribute.String("state", s.String())))
	}
	return nil
}

// Close unregisters the callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
