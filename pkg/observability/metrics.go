// Package observability exports the gateway's Prometheus metrics.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the gateway's metric set. A nil *Metrics is a no-op, so callers
// never need to guard record calls.
type Metrics struct {
	registry *prometheus.Registry

	runsStarted  prometheus.Counter
	runsFinished prometheus.Counter
	runsFailed   prometheus.Counter
	activeRuns   prometheus.Gauge

	chunksEmitted *prometheus.CounterVec
	taskStatus    *prometheus.CounterVec

	storeDegradations prometheus.Counter
}

// NewMetrics registers the gateway metrics on a fresh registry.
func NewMetrics(namespace string) (*Metrics, error) {
	if namespace == "" {
		namespace = "prism"
	}
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Count of streaming runs started.",
		}),
		runsFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Count of streaming runs that completed normally.",
		}),
		runsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_failed_total",
			Help:      "Count of streaming runs that ended in failure.",
		}),
		activeRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Streaming runs currently in flight.",
		}),
		chunksEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_emitted_total",
			Help:      "Agent stream chunks re-emitted as wire events.",
		}, []string{"protocol"}),
		taskStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_transitions_total",
			Help:      "Task status transitions by target status.",
		}, []string{"status"}),
		storeDegradations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_degradations_total",
			Help:      "Times the durable store was unavailable and the memory fallback served.",
		}),
	}

	collectors := []prometheus.Collector{
		m.runsStarted, m.runsFinished, m.runsFailed, m.activeRuns,
		m.chunksEmitted, m.taskStatus, m.storeDegradations,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return m, nil
}

// Handler returns the scrape endpoint for this metric set.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RunStarted records a new streaming run.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.runsStarted.Inc()
	m.activeRuns.Inc()
}

// RunFinished records a normal run completion.
func (m *Metrics) RunFinished() {
	if m == nil {
		return
	}
	m.runsFinished.Inc()
	m.activeRuns.Dec()
}

// RunFailed records a failed run.
func (m *Metrics) RunFailed() {
	if m == nil {
		return
	}
	m.runsFailed.Inc()
	m.activeRuns.Dec()
}

// ChunkEmitted records one chunk re-emitted on the given protocol.
func (m *Metrics) ChunkEmitted(protocol string) {
	if m == nil {
		return
	}
	m.chunksEmitted.WithLabelValues(protocol).Inc()
}

// TaskTransition records a task entering the given status.
func (m *Metrics) TaskTransition(status string) {
	if m == nil {
		return
	}
	m.taskStatus.WithLabelValues(status).Inc()
}

// StoreDegraded records one fallback activation.
func (m *Metrics) StoreDegraded() {
	if m == nil {
		return
	}
	m.storeDegradations.Inc()
}
