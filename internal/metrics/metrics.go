package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's prometheus collectors.
type Metrics struct {
	outcomes      *prometheus.CounterVec
	registrations prometheus.Counter
	scanDuration  prometheus.Histogram
}

// New registers collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "faceattend",
			Name:      "attendance_outcomes_total",
			Help:      "Attendance attempts by outcome status.",
		}, []string{"status"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "faceattend",
			Name:      "student_registrations_total",
			Help:      "Successful student enrollments.",
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "faceattend",
			Name:      "match_scan_duration_seconds",
			Help:      "Duration of descriptor matching scans.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.outcomes, m.registrations, m.scanDuration)
	return m
}

// RecordOutcome counts one attendance attempt result.
func (m *Metrics) RecordOutcome(status string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(status).Inc()
}

// RecordRegistration counts one successful enrollment.
func (m *Metrics) RecordRegistration() {
	if m == nil {
		return
	}
	m.registrations.Inc()
}

// ObserveScan records how long a matching scan took.
func (m *Metrics) ObserveScan(d time.Duration) {
	if m == nil {
		return
	}
	m.scanDuration.Observe(d.Seconds())
}
