package cloudsync

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts sync operations by outcome and times them.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics registers the sync metrics on reg. A nil registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	auto := promauto.With(reg)
	return &Metrics{
		operations: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "examlens",
			Subsystem: "sync",
			Name:      "operations_total",
			Help:      "Total number of sync operations by operation and outcome",
		}, []string{"op", "outcome"}),
		duration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "examlens",
			Subsystem: "sync",
			Name:      "operation_duration_seconds",
			Help:      "Duration of sync operations in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

// Operations returns the counter of an operation and outcome.
func (m *Metrics) Operations(op, outcome string) prometheus.Counter {
	return m.operations.WithLabelValues(op, outcome)
}

func (m *Metrics) observe(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}
