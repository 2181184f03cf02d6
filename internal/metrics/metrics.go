// Package metrics provides Prometheus metrics for the extraction pipeline.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns the pipeline collectors and the registry they live in.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	recordsDropped     *prometheus.CounterVec
	roundsEmitted      prometheus.Counter
	roundsSkipped      *prometheus.CounterVec
	matchesProcessed   *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	matchDuration      prometheus.Histogram
}

// Match outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
)

// NewManager creates a manager with its own registry unless WithRegistry is
// given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "csfeatures",
		subsystem:        "pipeline",
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	f := promauto.With(m.registry)

	m.recordsDropped = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_dropped_total",
		Help:      "Raw records the normalizer dropped, by reason.",
	}, []string{"reason"})

	m.roundsEmitted = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rounds_emitted_total",
		Help:      "Feature rows derived.",
	})

	m.roundsSkipped = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rounds_skipped_total",
		Help:      "Rounds excluded from the output, by reason.",
	}, []string{"reason"})

	m.matchesProcessed = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "matches_processed_total",
		Help:      "Matches processed, by outcome.",
	}, []string{"outcome"})

	m.validationFailures = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "validation_failures_total",
		Help:      "Rows failing a validation check, by check.",
	}, []string{"check"})

	m.matchDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "match_duration_seconds",
		Help:      "Time spent turning one match into feature rows.",
		Buckets:   m.histogramBuckets,
	})
}

// RecordsDropped adds n drops for reason.
func (m *Manager) RecordsDropped(reason string, n int) {
	m.recordsDropped.WithLabelValues(reason).Add(float64(n))
}

// RoundEmitted counts one derived row.
func (m *Manager) RoundEmitted() { m.roundsEmitted.Inc() }

// RoundSkipped counts one excluded round.
func (m *Manager) RoundSkipped(reason string) {
	m.roundsSkipped.WithLabelValues(reason).Inc()
}

// MatchProcessed records a finished match and how long it took.
func (m *Manager) MatchProcessed(outcome string, d time.Duration) {
	m.matchesProcessed.WithLabelValues(outcome).Inc()
	m.matchDuration.Observe(d.Seconds())
}

// ValidationFailures adds n failed rows for check.
func (m *Manager) ValidationFailures(check string, n int) {
	if n > 0 {
		m.validationFailures.WithLabelValues(check).Add(float64(n))
	}
}

// Registry returns the registry holding the collectors.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes every metric in text exposition format, for the node
// exporter textfile collector.
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
