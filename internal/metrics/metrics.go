// Package metrics defines Prometheus metrics for discovery runs and layout.
//
// Metric naming follows Prometheus conventions:
//   - lanscope_ prefix for all metrics
//   - _total suffix for counters
//   - _seconds suffix for duration histograms
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one process. Each instance registers on
// its own registry so tests can create as many as they need.
type Metrics struct {
	Registry *prometheus.Registry

	// HostsProbedTotal counts hosts that answered the full probe.
	HostsProbedTotal prometheus.Counter

	// OpenPortsTotal counts open ports found by the full probe.
	OpenPortsTotal prometheus.Counter

	// TraceroutesTotal counts traceroutes by completion.
	TraceroutesTotal *prometheus.CounterVec

	// RunsTotal counts discovery runs by outcome.
	RunsTotal *prometheus.CounterVec

	// RunDurationSeconds is a histogram of discovery run duration.
	RunDurationSeconds prometheus.Histogram

	// LayoutDurationSeconds is a histogram of layout compute duration.
	LayoutDurationSeconds prometheus.Histogram

	// LayoutIterations is the iteration count of the last layout compute.
	LayoutIterations prometheus.Gauge

	// GraphNodes is the node count of the current graph.
	GraphNodes prometheus.Gauge
}

// Run outcomes
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// New creates and registers the collectors
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HostsProbedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lanscope_hosts_probed_total",
			Help: "Total number of hosts with at least one open port.",
		}),
		OpenPortsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lanscope_open_ports_total",
			Help: "Total number of open ports found by the host prober.",
		}),
		TraceroutesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lanscope_traceroutes_total",
				Help: "Total traceroutes by whether they reached the target.",
			},
			[]string{"completed"},
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lanscope_discovery_runs_total",
				Help: "Total discovery runs by outcome.",
			},
			[]string{"outcome"},
		),
		RunDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lanscope_discovery_duration_seconds",
			Help:    "Duration of discovery runs in seconds.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		LayoutDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lanscope_layout_duration_seconds",
			Help:    "Duration of layout computations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		LayoutIterations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lanscope_layout_iterations",
			Help: "Iterations run by the last layout computation.",
		}),
		GraphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lanscope_graph_nodes",
			Help: "Number of nodes in the current topology graph.",
		}),
	}

	m.Registry.MustRegister(
		m.HostsProbedTotal,
		m.OpenPortsTotal,
		m.TraceroutesTotal,
		m.RunsTotal,
		m.RunDurationSeconds,
		m.LayoutDurationSeconds,
		m.LayoutIterations,
		m.GraphNodes,
		collectors.NewGoCollector(),
	)
	return m
}

// HostProbed records one probed host
func (m *Metrics) HostProbed(openPorts int) {
	m.HostsProbedTotal.Inc()
	m.OpenPortsTotal.Add(float64(openPorts))
}

// TracerouteDone records one finished traceroute
func (m *Metrics) TracerouteDone(completed bool) {
	label := "false"
	if completed {
		label = "true"
	}
	m.TraceroutesTotal.WithLabelValues(label).Inc()
}

// RecordRun records a finished discovery run
func (m *Metrics) RecordRun(outcome string, duration time.Duration) {
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.RunDurationSeconds.Observe(duration.Seconds())
}

// RecordLayout records a finished layout computation
func (m *Metrics) RecordLayout(iterations int, duration time.Duration) {
	m.LayoutIterations.Set(float64(iterations))
	m.LayoutDurationSeconds.Observe(duration.Seconds())
}

// SetGraphSize records the node count of the current graph
func (m *Metrics) SetGraphSize(nodes int) {
	m.GraphNodes.Set(float64(nodes))
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
