package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the request lifecycle.
type Metrics struct {
	RequestsCreated prometheus.Counter
	RequestsClosed  prometheus.Counter
	UrgentRequests  prometheus.Counter
}

// New creates and registers all request lifecycle metrics.
func New() *Metrics {
	return &Metrics{
		RequestsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "k9hope_blood_requests_created_total",
			Help: "Total number of blood requests created",
		}),
		RequestsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "k9hope_blood_requests_closed_total",
			Help: "Total number of blood requests closed",
		}),
		UrgentRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "k9hope_blood_requests_urgent_total",
			Help: "Total number of blood requests flagged urgent at creation",
		}),
	}
}
