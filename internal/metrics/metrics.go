// Package metrics exposes HAL's activity as Prometheus metrics. Every
// recording method is safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Alert results
const (
	AlertSent       = "sent"
	AlertSuppressed = "suppressed"
	AlertRejected   = "rejected"
)

// Metrics contains all the Prometheus metrics used by HAL
type Metrics struct {
	CyclesTotal        prometheus.Counter
	CycleDuration      prometheus.Histogram
	LastCycleTimestamp prometheus.Gauge

	PublishesTotal    *prometheus.CounterVec
	OutOfBoundsTotal  *prometheus.CounterVec
	AlertsTotal       *prometheus.CounterVec
	MissingFilesTotal *prometheus.CounterVec
	SkippedLinesTotal *prometheus.CounterVec
}

// NewMetrics creates the metric definitions under namespace
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "hal"
	}

	return &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Total number of completed polling cycles",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Time spent reading, dispatching and alerting in one cycle",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		}),
		LastCycleTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time at which the last polling cycle completed",
		}),
		PublishesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publishes_total",
				Help:      "Dashboard publish attempts by parameter and result",
			},
			[]string{"parameter", "result"},
		),
		OutOfBoundsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "out_of_bounds_total",
				Help:      "New readings that fell outside their parameter bounds",
			},
			[]string{"parameter"},
		),
		AlertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_total",
				Help:      "Out of bounds alerts by parameter and result",
			},
			[]string{"parameter", "result"},
		),
		MissingFilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "missing_log_files_total",
				Help:      "Cycles in which an expected log file did not exist",
			},
			[]string{"file_prefix"},
		),
		SkippedLinesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "skipped_lines_total",
				Help:      "Log lines that could not be resolved for a parameter",
			},
			[]string{"parameter"},
		),
	}
}

// NewRegistry creates a registry with Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry
}

// Register registers all metrics with the provided registry
func (m *Metrics) Register(registry prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{
		m.CyclesTotal,
		m.CycleDuration,
		m.LastCycleTimestamp,
		m.PublishesTotal,
		m.OutOfBoundsTotal,
		m.AlertsTotal,
		m.MissingFilesTotal,
		m.SkippedLinesTotal,
	} {
		if err := registry.Register(collector); err != nil {
			return fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return nil
}

// Cycle records a completed polling cycle
func (m *Metrics) Cycle(took time.Duration, at time.Time) {
	if m == nil {
		return
	}
	m.CyclesTotal.Inc()
	m.CycleDuration.Observe(took.Seconds())
	m.LastCycleTimestamp.Set(float64(at.Unix()))
}

// Publish records one dashboard publish attempt
func (m *Metrics) Publish(parameter string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.PublishesTotal.WithLabelValues(parameter, result).Inc()
}

// OutOfBounds records a new reading outside its bounds
func (m *Metrics) OutOfBounds(parameter string) {
	if m == nil {
		return
	}
	m.OutOfBoundsTotal.WithLabelValues(parameter).Inc()
}

// Alert records the outcome of an alert: AlertSent, AlertSuppressed or AlertRejected
func (m *Metrics) Alert(parameter, result string) {
	if m == nil {
		return
	}
	m.AlertsTotal.WithLabelValues(parameter, result).Inc()
}

// MissingFile records a log file that was expected but absent
func (m *Metrics) MissingFile(prefix string) {
	if m == nil {
		return
	}
	m.MissingFilesTotal.WithLabelValues(prefix).Inc()
}

// SkippedLines records n unresolvable lines for a parameter
func (m *Metrics) SkippedLines(parameter string, n int) {
	if m == nil {
		return
	}
	m.SkippedLinesTotal.WithLabelValues(parameter).Add(float64(n))
}
