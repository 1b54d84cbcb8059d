// Package metrics exposes the proxy's Prometheus metrics (spec.md §11).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "sfcproxy"
)

// Label names.
const (
	labelInterface = "interface"
	labelDirection = "direction"
	labelReason    = "reason"
	labelTable     = "table"
)

// Collector holds every Prometheus metric the proxy exports.
type Collector struct {
	// FramesTotal counts frames observed per interface and direction
	// (rx/tx).
	FramesTotal *prometheus.CounterVec

	// FramesDropped counts frames dropped per interface, labeled with the
	// reason they were dropped (parse-mismatch, session-miss,
	// rebuild-error, write-error, si-underflow).
	FramesDropped *prometheus.CounterVec

	// SessionTableSize reports the current number of entries in the
	// forward and reply session tables.
	SessionTableSize *prometheus.GaugeVec

	// NSHSIUnderflow counts frames dropped because the NSH Service Index
	// was already zero on replay.
	NSHSIUnderflow prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics against reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.FramesTotal,
		c.FramesDropped,
		c.SessionTableSize,
		c.NSHSIUnderflow,
	)

	return c
}

func newMetrics() *Collector {
	return &Collector{
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Total frames observed, per interface and direction.",
		}, []string{labelInterface, labelDirection}),

		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Total frames dropped, per interface and reason.",
		}, []string{labelInterface, labelReason}),

		SessionTableSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_table_size",
			Help:      "Current number of entries in the forward and reply session tables.",
		}, []string{labelTable}),

		NSHSIUnderflow: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nsh_si_underflow_total",
			Help:      "Total frames dropped because the NSH Service Index was already zero on replay.",
		}),
	}
}

// IncFrames increments the frame counter for the given interface and
// direction ("rx" or "tx").
func (c *Collector) IncFrames(iface, direction string) {
	c.FramesTotal.WithLabelValues(iface, direction).Inc()
}

// IncDropped increments the dropped-frame counter for the given interface
// and reason.
func (c *Collector) IncDropped(iface, reason string) {
	c.FramesDropped.WithLabelValues(iface, reason).Inc()
}

// SetTableSize sets the current size gauge for the named table ("fwd" or
// "rev").
func (c *Collector) SetTableSize(table string, n int) {
	c.SessionTableSize.WithLabelValues(table).Set(float64(n))
}

// IncSIUnderflow increments the NSH SI underflow counter.
func (c *Collector) IncSIUnderflow() {
	c.NSHSIUnderflow.Inc()
}
