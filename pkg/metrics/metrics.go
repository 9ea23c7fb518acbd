// Package metrics holds the Prometheus instrumentation for the
// dispatch engine's Statistics component (spec §4.7), grounded on the
// promauto-based construction used throughout the teacher's
// publishing metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter/gauge exposed by the dispatch engine.
// All fields are safe for concurrent use (they wrap prometheus types).
type Metrics struct {
	Received         prometheus.Counter
	Accepted         prometheus.Counter
	RejectedOverload prometheus.Counter
	Delivered        prometheus.Counter
	FailedExhausted  prometheus.Counter
	NoTargets        prometheus.Counter

	TargetDelivered *prometheus.CounterVec
	TargetFailed    *prometheus.CounterVec
	TargetHealthy   *prometheus.GaugeVec

	BufferDepth    prometheus.Gauge
	BufferCapacity prometheus.Gauge

	DispatchAttempts prometheus.Histogram
	BackoffSeconds   prometheus.Histogram
}

// New creates and registers every metric under the given namespace
// (e.g. "dispatcher"). Registration panics are avoided by using a
// dedicated registerer per Metrics instance when reg is non-nil;
// passing nil creates the metrics without registering them with any
// registry.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Received: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_received_total",
			Help:      "Total packets offered to the intake buffer.",
		}),
		Accepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_accepted_total",
			Help:      "Total packets enqueued into the intake buffer.",
		}),
		RejectedOverload: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_rejected_overload_total",
			Help:      "Total packets refused because the intake buffer was full.",
		}),
		Delivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_delivered_total",
			Help:      "Total packets successfully delivered to a target.",
		}),
		FailedExhausted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_failed_exhausted_total",
			Help:      "Total packets dropped after exhausting all dispatch attempts.",
		}),
		NoTargets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_no_targets_total",
			Help:      "Total packets for which no healthy target was available.",
		}),

		TargetDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "target_delivered_total",
			Help:      "Total deliveries per target.",
		}, []string{"target"}),
		TargetFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "target_failed_total",
			Help:      "Total failed attempts per target.",
		}, []string{"target"}),
		TargetHealthy: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_healthy",
			Help:      "1 if the target is currently healthy, 0 otherwise.",
		}, []string{"target"}),

		BufferDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "intake_buffer_depth",
			Help:      "Current occupancy of the intake buffer.",
		}),
		BufferCapacity: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "intake_buffer_capacity",
			Help:      "Configured capacity of the intake buffer.",
		}),

		DispatchAttempts: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_attempts",
			Help:      "Number of transport attempts per dispatched packet.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
		BackoffSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_backoff_seconds",
			Help:      "Backoff delay inserted between retry attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 8),
		}),
	}
}

// RecordHealth updates the per-target healthy gauge.
func (m *Metrics) RecordHealth(target string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	m.TargetHealthy.WithLabelValues(target).Set(v)
}
