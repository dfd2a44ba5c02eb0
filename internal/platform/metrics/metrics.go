package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	RegistrationsCreated prometheus.Counter
	RegistrationsUpdated prometheus.Counter
	AdmissionDenied      *prometheus.CounterVec
	StoreFallbacks       prometheus.Counter
	SyncRequestDuration  prometheus.Histogram
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		RegistrationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outing_registrations_created_total",
			Help: "Total number of new registrations persisted",
		}),
		RegistrationsUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outing_registrations_updated_total",
			Help: "Total number of registrations merged into an existing record",
		}),
		AdmissionDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "outing_admission_denied_total",
			Help: "Registration attempts refused by the admission gate, by reason",
		}, []string{"reason"}),
		StoreFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outing_store_fallback_total",
			Help: "Reads served from the local cache because the backend was unavailable",
		}),
		SyncRequestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "outing_sync_request_duration_seconds",
			Help:    "Latency of /api/sync requests",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// IncrementAdmissionDenied records a gate refusal with its reason label.
func (m *Metrics) IncrementAdmissionDenied(reason string) {
	if m == nil {
		return
	}
	m.AdmissionDenied.WithLabelValues(reason).Inc()
}

// StoreFallback records a read served from the local cache.
func (m *Metrics) StoreFallback() {
	if m == nil {
		return
	}
	m.StoreFallbacks.Inc()
}

// ObserveSyncRequest records the duration of one /api/sync request.
func (m *Metrics) ObserveSyncRequest(d time.Duration) {
	if m == nil {
		return
	}
	m.SyncRequestDuration.Observe(d.Seconds())
}
