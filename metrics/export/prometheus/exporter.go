package prometheus

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/MrEthical07/kinvex"
	"github.com/MrEthical07/kinvex/metrics/export/internaldefs"
)

// Source is what the exporter reads. *kinvex.Client implements it.
type Source interface {
	MetricsSnapshot() kinvex.MetricsSnapshot
	AuditDropped() uint64
	State() kinvex.State
}

var sessionStates = []kinvex.State{
	kinvex.StateUninitialized,
	kinvex.StateChecking,
	kinvex.StateAuthenticated,
	kinvex.StateAnonymous,
}

// Exporter renders a Source on demand.
type Exporter struct {
	source Source
}

// NewExporter returns an exporter reading from source.
func NewExporter(source Source) *Exporter {
	return &Exporter{source: source}
}

// Handler serves Render with the exposition content type.
func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current exposition text. It is empty when metrics are
// disabled and nothing was dropped.
func (p *Exporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)

	for _, def := range internaldefs.CounterDefs {
		writeHeader(&b, def.Name, def.Help, "counter")
		fmt.Fprintf(&b, "%s %d\n", def.Name, snapshot.Counters[def.ID])
	}
	writeHeader(&b, "kinvex_audit_dropped_total", "Audit events dropped under backpressure.", "counter")
	fmt.Fprintf(&b, "kinvex_audit_dropped_total %d\n", dropped)

	for _, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		writeHeader(&b, def.Name, def.Help, "histogram")
		for i, le := range internaldefs.HistogramBounds {
			fmt.Fprintf(&b, "%s_bucket{le=%q} %d\n", def.Name, le, cumulative[i])
		}
		fmt.Fprintf(&b, "%s_count %d\n", def.Name, cumulative[len(cumulative)-1])
		// Snapshots carry bucket counts only.
		fmt.Fprintf(&b, "%s_sum 0\n", def.Name)
	}

	current := p.source.State()
	writeHeader(&b, "kinvex_session_state", "Current session state, 1 for the active state.", "gauge")
	for _, s := range sessionStates {
		v := 0
		if s == current {
			v = 1
		}
		fmt.Fprintf(&b, "kinvex_session_state{state=%q} %d\n", s.String(), v)
	}

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}
