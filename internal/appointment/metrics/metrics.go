package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the appointment lifecycle.
type Metrics struct {
	Booked             prometheus.Counter
	Completed          prometheus.Counter
	Cancelled          prometheus.Counter
	CompletionDuration prometheus.Histogram
}

// New creates and registers all appointment lifecycle metrics.
func New() *Metrics {
	return &Metrics{
		Booked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "k9hope_appointments_booked_total",
			Help: "Total number of appointments booked",
		}),
		Completed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "k9hope_appointments_completed_total",
			Help: "Total number of appointments completed",
		}),
		Cancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "k9hope_appointments_cancelled_total",
			Help: "Total number of appointments cancelled",
		}),
		CompletionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "k9hope_appointment_completion_seconds",
			Help:    "Wall time of the transactional appointment completion path",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
