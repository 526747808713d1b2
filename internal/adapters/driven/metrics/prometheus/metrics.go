// Package prometheus records research activity as Prometheus collectors.
package prometheus

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driven"
)

// Ensure Metrics implements the interface.
var _ driven.Metrics = (*Metrics)(nil)

const namespace = "deepresearchpod"

// Metrics exposes collectors for task outcomes, poll statuses and storage fallback.
type Metrics struct {
	gatherer prometheus.Gatherer

	tasksStarted  prometheus.Counter
	tasksActive   prometheus.Gauge
	tasksFinished *prometheus.CounterVec
	taskDuration  *prometheus.HistogramVec
	polls         *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
}

// MustNewMetrics registers the collectors with reg and panics on any
// registration error other than a collector already being registered,
// in which case the existing collector is reused.
func MustNewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{gatherer: reg}
	m.tasksStarted = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tasks",
		Name:      "started_total",
		Help:      "Number of refresh tasks that entered running.",
	}))
	m.tasksActive = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "tasks",
		Name:      "active",
		Help:      "Number of refresh tasks currently running.",
	}))
	m.tasksFinished = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tasks",
		Name:      "finished_total",
		Help:      "Number of refresh tasks that reached a terminal status.",
	}, []string{"status"}))
	m.taskDuration = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "tasks",
		Name:      "duration_seconds",
		Help:      "Time from running to a terminal status.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 180, 300, 600},
	}, []string{"status"}))
	m.polls = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "polls_total",
		Help:      "Provider status polls by normalised job status.",
	}, []string{"status"}))
	m.fallbacks = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "fallbacks_total",
		Help:      "Operations demoted from the durable store to memory.",
	}, []string{"collection", "op"}))
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// TaskStarted implements driven.Metrics.
func (m *Metrics) TaskStarted() {
	m.tasksStarted.Inc()
	m.tasksActive.Inc()
}

// TaskFinished implements driven.Metrics. A zero elapsed time marks a task
// that never started running and is not counted as active.
func (m *Metrics) TaskFinished(status domain.TaskStatus, elapsed time.Duration) {
	m.tasksFinished.WithLabelValues(string(status)).Inc()
	if elapsed > 0 {
		m.tasksActive.Dec()
		m.taskDuration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
	}
}

// PollObserved implements driven.Metrics.
func (m *Metrics) PollObserved(status domain.JobStatus) {
	m.polls.WithLabelValues(string(status)).Inc()
}

// StorageFallback implements driven.Metrics.
func (m *Metrics) StorageFallback(collection, op string) {
	m.fallbacks.WithLabelValues(collection, op).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
