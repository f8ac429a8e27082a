package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/shelfbot/internal/search"
)

// Metrics exports simulation counters on its own registry so several
// servers (and tests) never collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	actions        *prometheus.CounterVec
	phase          prometheus.Gauge
	boxesRemaining prometheus.Gauge
	storageFull    prometheus.Gauge
	runs           *prometheus.CounterVec
	runActions     prometheus.Histogram
	anomalies      prometheus.Counter
}

// NewMetrics registers the simulation collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shelfbot",
			Name:      "actions_total",
			Help:      "Atomic robot actions by kind.",
		}, []string{"action"}),
		phase: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shelfbot",
			Name:      "phase",
			Help:      "Current search phase as its ordinal.",
		}),
		boxesRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shelfbot",
			Name:      "boxes_remaining",
			Help:      "Boxes still on the shelves.",
		}),
		storageFull: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shelfbot",
			Name:      "storage_full",
			Help:      "1 while the robot carries a box.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shelfbot",
			Name:      "runs_total",
			Help:      "Finished runs by status.",
		}, []string{"status"}),
		runActions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shelfbot",
			Name:      "run_actions",
			Help:      "Actions taken per finished run.",
			Buckets:   prometheus.LinearBuckets(250, 250, 8),
		}),
		anomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shelfbot",
			Name:      "scan_anomalies_total",
			Help:      "Barcode positions that returned no bit.",
		}),
	}
	m.registry.MustRegister(m.actions, m.phase, m.boxesRemaining, m.storageFull,
		m.runs, m.runActions, m.anomalies)
	return m
}

// Observe updates the per-action collectors.
func (m *Metrics) Observe(s search.Snapshot) {
	if s.Action != search.ActionStart {
		m.actions.WithLabelValues(string(s.Action)).Inc()
	}
	m.phase.Set(float64(s.Phase))
	m.boxesRemaining.Set(float64(len(s.Boxes)))
	if s.StorageFull {
		m.storageFull.Set(1)
	} else {
		m.storageFull.Set(0)
	}
}

// RecordResult counts a finished run.
func (m *Metrics) RecordResult(res search.Result) {
	status := string(res.Status)
	if status == "" {
		status = "running"
	}
	m.runs.WithLabelValues(status).Inc()
	m.runActions.Observe(float64(res.Actions))
	m.anomalies.Add(float64(res.Anomalies))
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
