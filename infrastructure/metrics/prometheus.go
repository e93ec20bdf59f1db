// Package metrics implements the MetricsCollector port with Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/engagekit/verity/internal/ports"
)

// PrometheusMetrics implements ports.MetricsCollector on the default
// Prometheus registry. One instance per process; promauto panics on
// duplicate registration.
type PrometheusMetrics struct {
	latency    *prometheus.HistogramVec
	counters   *prometheus.CounterVec
	histograms *prometheus.HistogramVec
}

// NewPrometheusMetrics creates the collector and registers its metric
// families with the given registerer. A nil registerer uses the default
// registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "verity",
				Name:      "operation_duration_seconds",
				Help:      "Latency of verification operations and provider calls.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "outcome"},
		),
		counters: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "verity",
				Name:      "events_total",
				Help:      "Counts of verification outcomes, cache hits, and provider calls.",
			},
			[]string{"metric", "outcome"},
		),
		histograms: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "verity",
				Name:      "score_distribution",
				Help:      "Distribution of verification scores.",
				Buckets:   prometheus.LinearBuckets(0, 0.05, 21),
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency records an operation duration.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.latency.WithLabelValues(operation, outcomeLabel(labels)).Observe(duration.Seconds())
}

// RecordCounter increments an event counter.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	pm.counters.WithLabelValues(metric, outcomeLabel(labels)).Add(value)
}

// RecordHistogram records a value in a score distribution.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, _ map[string]string) {
	pm.histograms.WithLabelValues(metric).Observe(value)
}

func outcomeLabel(labels map[string]string) string {
	if outcome, ok := labels["outcome"]; ok {
		return outcome
	}
	if status, ok := labels["status"]; ok {
		return status
	}
	return "none"
}

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
