package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the submission pipeline.
type Metrics struct {
	RegistrationsCreated prometheus.Counter
	DonationsCreated     prometheus.Counter
	DonationsCompleted   prometheus.Counter
	AnalyticsEvents      prometheus.Counter
	AnalyticsDropped     prometheus.Counter
	SettingsUpdates      prometheus.Counter
	RequestDuration      *prometheus.HistogramVec
}

// New creates a Metrics instance with all collectors registered on the
// default registry.
func New() *Metrics {
	return &Metrics{
		RegistrationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gmarup_registrations_created_total",
			Help: "Total number of registrations accepted",
		}),
		DonationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gmarup_donations_created_total",
			Help: "Total number of donation pledges recorded",
		}),
		DonationsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gmarup_donations_completed_total",
			Help: "Total number of donations marked completed",
		}),
		AnalyticsEvents: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gmarup_analytics_events_total",
			Help: "Total number of analytics events ingested",
		}),
		AnalyticsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gmarup_analytics_dropped_total",
			Help: "Analytics events dropped because the store rejected them",
		}),
		SettingsUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gmarup_settings_updates_total",
			Help: "Total number of settings upsert batches applied",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gmarup_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"route"}),
	}
}

// ObserveRequest records the duration of one HTTP request.
func (m *Metrics) ObserveRequest(route string, start time.Time) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}
