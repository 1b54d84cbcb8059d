package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/nshsfc/sfcproxy/internal/metrics"
)

func TestNewCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	if c.FramesTotal == nil {
		t.Error("FramesTotal is nil")
	}
	if c.FramesDropped == nil {
		t.Error("FramesDropped is nil")
	}
	if c.SessionTableSize == nil {
		t.Error("SessionTableSize is nil")
	}
	if c.NSHSIUnderflow == nil {
		t.Error("NSHSIUnderflow is nil")
	}

	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
}

func TestNewCollectorNilRegistererUsesDefault(t *testing.T) {
	// Not parallel: registers against the global DefaultRegisterer.
	c := metrics.NewCollector(nil)
	if c == nil {
		t.Fatal("NewCollector(nil) returned nil")
	}
}

func TestIncFrames(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.IncFrames("encap", "rx")
	c.IncFrames("encap", "rx")
	c.IncFrames("encap", "tx")

	if got := counterValue(t, c.FramesTotal, "encap", "rx"); got != 2 {
		t.Errorf("FramesTotal{encap,rx} = %v, want 2", got)
	}
	if got := counterValue(t, c.FramesTotal, "encap", "tx"); got != 1 {
		t.Errorf("FramesTotal{encap,tx} = %v, want 1", got)
	}
}

func TestIncDropped(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.IncDropped("unencap_in", "session-miss")
	c.IncDropped("unencap_in", "session-miss")
	c.IncDropped("unencap_in", "parse-mismatch")

	if got := counterValue(t, c.FramesDropped, "unencap_in", "session-miss"); got != 2 {
		t.Errorf("FramesDropped{unencap_in,session-miss} = %v, want 2", got)
	}
	if got := counterValue(t, c.FramesDropped, "unencap_in", "parse-mismatch"); got != 1 {
		t.Errorf("FramesDropped{unencap_in,parse-mismatch} = %v, want 1", got)
	}
}

func TestSetTableSize(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.SetTableSize("fwd", 5)
	c.SetTableSize("rev", 2)
	c.SetTableSize("fwd", 7)

	if got := gaugeValue(t, c.SessionTableSize, "fwd"); got != 7 {
		t.Errorf("SessionTableSize{fwd} = %v, want 7", got)
	}
	if got := gaugeValue(t, c.SessionTableSize, "rev"); got != 2 {
		t.Errorf("SessionTableSize{rev} = %v, want 2", got)
	}
}

func TestIncSIUnderflow(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.IncSIUnderflow()
	c.IncSIUnderflow()
	c.IncSIUnderflow()

	m := &dto.Metric{}
	if err := c.NSHSIUnderflow.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	if got := m.GetCounter().GetValue(); got != 3 {
		t.Errorf("NSHSIUnderflow = %v, want 3", got)
	}
}

func gaugeValue(t *testing.T, vec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()

	gauge, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := gauge.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()

	counter, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetCounter().GetValue()
}
