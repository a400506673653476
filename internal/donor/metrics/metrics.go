package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the donor registry.
type Metrics struct {
	DonorsRegistered  prometheus.Counter
	DonationsRecorded prometheus.Counter
	DonationReplays   prometheus.Counter
	DonorsSaved       prometheus.Counter
	DonorsRemoved     prometheus.Counter
}

// New creates and registers all donor registry metrics.
func New() *Metrics {
	return &Metrics{
		DonorsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "k9hope_donors_registered_total",
			Help: "Total number of donors registered",
		}),
		DonationsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "k9hope_donations_recorded_total",
			Help: "Total number of donations recorded on donor aggregates",
		}),
		DonationReplays: promauto.NewCounter(prometheus.CounterOpts{
			Name: "k9hope_donation_replays_total",
			Help: "Donation records skipped because the appointment was already in the ledger",
		}),
		DonorsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "k9hope_saved_donors_total",
			Help: "Total number of clinic shortlist saves",
		}),
		DonorsRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "k9hope_saved_donors_removed_total",
			Help: "Total number of clinic shortlist removals",
		}),
	}
}
