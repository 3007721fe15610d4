package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"lanscope/internal/discovery"
)

var _ discovery.Recorder = (*Metrics)(nil)

func getCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func getCounterVecValue(cv *prometheus.CounterVec, labels ...string) float64 {
	return getCounterValue(cv.WithLabelValues(labels...))
}

func getGaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

func getHistogramCount(h prometheus.Histogram) uint64 {
	m := &dto.Metric{}
	if err := h.Write(m); err != nil {
		return 0
	}
	return m.GetHistogram().GetSampleCount()
}

func TestHostProbed(t *testing.T) {
	m := New()
	m.HostProbed(3)
	m.HostProbed(2)

	if got := getCounterValue(m.HostsProbedTotal); got != 2 {
		t.Errorf("hosts probed = %v, want 2", got)
	}
	if got := getCounterValue(m.OpenPortsTotal); got != 5 {
		t.Errorf("open ports = %v, want 5", got)
	}
}

func TestTracerouteDone(t *testing.T) {
	m := New()
	m.TracerouteDone(true)
	m.TracerouteDone(false)
	m.TracerouteDone(true)

	if got := getCounterVecValue(m.TraceroutesTotal, "true"); got != 2 {
		t.Errorf("completed = %v, want 2", got)
	}
	if got := getCounterVecValue(m.TraceroutesTotal, "false"); got != 1 {
		t.Errorf("incomplete = %v, want 1", got)
	}
}

func TestRecordRunAndLayout(t *testing.T) {
	m := New()
	m.RecordRun(OutcomeCompleted, 42*time.Second)
	m.RecordRun(OutcomeCancelled, time.Second)
	m.RecordLayout(120, 15*time.Millisecond)
	m.SetGraphSize(17)

	if got := getCounterVecValue(m.RunsTotal, OutcomeCompleted); got != 1 {
		t.Errorf("completed runs = %v", got)
	}
	if got := getHistogramCount(m.RunDurationSeconds); got != 2 {
		t.Errorf("run duration samples = %d, want 2", got)
	}
	if got := getGaugeValue(m.LayoutIterations); got != 120 {
		t.Errorf("layout iterations = %v", got)
	}
	if got := getHistogramCount(m.LayoutDurationSeconds); got != 1 {
		t.Errorf("layout samples = %d", got)
	}
	if got := getGaugeValue(m.GraphNodes); got != 17 {
		t.Errorf("graph nodes = %v", got)
	}
}

func TestRegistryGathers(t *testing.T) {
	m := New()
	m.HostProbed(1)
	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "lanscope_hosts_probed_total" {
			found = true
		}
	}
	if !found {
		t.Error("hosts probed metric not gathered")
	}
}
