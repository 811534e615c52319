package workflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus-compatible metrics for workflow execution.
//
// All metrics use the "reflectgraph" namespace:
//
//   - inflight_correlations (gauge): requests between Submit and terminal.
//   - review_cycles (histogram): rejection cycles per terminal correlation.
//   - generation_latency_ms (histogram): executor hop duration.
//     Labels: executor, status (success/error).
//   - decisions_total (counter): reviewer verdicts. Labels: outcome.
//   - terminals_total (counter): terminal outcomes. Labels: kind
//     (approved, degraded, failed, cancelled).
//   - events_dropped_total (counter): events dropped by slow observers.
//
// Expose via promhttp:
//
//	registry := prometheus.NewRegistry()
//	m := workflow.NewMetrics(registry)
//	wf := workflow.New(primary, reviewer, workflow.WithMetrics(m))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// All methods are safe on a nil receiver so the runtime can call them
// unconditionally.
type Metrics struct {
	inflight      prometheus.Gauge
	reviewCycles  prometheus.Histogram
	hopLatency    *prometheus.HistogramVec
	decisions     *prometheus.CounterVec
	terminals     *prometheus.CounterVec
	eventsDropped prometheus.Counter
}

// NewMetrics creates and registers all workflow metrics with the given
// registry. Pass nil to use the default registerer; a fresh
// prometheus.NewRegistry() is recommended for isolation.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		inflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "reflectgraph",
			Name:      "inflight_correlations",
			Help:      "Current number of correlations between submission and terminal delivery",
		}),
		reviewCycles: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reflectgraph",
			Name:      "review_cycles",
			Help:      "Rejection cycles per terminated correlation",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		}),
		hopLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reflectgraph",
			Name:      "generation_latency_ms",
			Help:      "Executor hop duration in milliseconds",
			Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 30000},
		}, []string{"executor", "status"}),
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reflectgraph",
			Name:      "decisions_total",
			Help:      "Reviewer verdicts by outcome",
		}, []string{"outcome"}), // outcome: approved, rejected
		terminals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reflectgraph",
			Name:      "terminals_total",
			Help:      "Terminal outcomes by kind",
		}, []string{"kind"}), // kind: approved, degraded, failed, cancelled
		eventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reflectgraph",
			Name:      "events_dropped_total",
			Help:      "Progress events dropped because an observer queue was full",
		}),
	}
}

// CorrelationStarted records a new in-flight correlation.
func (m *Metrics) CorrelationStarted() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

// CorrelationEnded records a correlation reaching a terminal state.
func (m *Metrics) CorrelationEnded(cycles int) {
	if m == nil {
		return
	}
	m.inflight.Dec()
	m.reviewCycles.Observe(float64(cycles))
}

// RecordHop records the duration of one executor invocation.
func (m *Metrics) RecordHop(executor string, latency time.Duration, status string) {
	if m == nil {
		return
	}
	m.hopLatency.WithLabelValues(executor, status).Observe(float64(latency.Milliseconds()))
}

// RecordDecision records a reviewer verdict.
func (m *Metrics) RecordDecision(approved bool) {
	if m == nil {
		return
	}
	outcome := "rejected"
	if approved {
		outcome = "approved"
	}
	m.decisions.WithLabelValues(outcome).Inc()
}

// RecordTerminal records a terminal outcome kind.
func (m *Metrics) RecordTerminal(kind string) {
	if m == nil {
		return
	}
	m.terminals.WithLabelValues(kind).Inc()
}

// RecordEventDropped records an observer-queue overflow.
func (m *Metrics) RecordEventDropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}
