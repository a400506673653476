package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the stock ledger. StockLevel is labeled
// by blood type only; clinics are unbounded and stay out of label space.
type Metrics struct {
	Adjustments prometheus.Counter
	StockLevel  *prometheus.GaugeVec
}

// New creates and registers all stock ledger metrics.
func New() *Metrics {
	return &Metrics{
		Adjustments: promauto.NewCounter(prometheus.CounterOpts{
			Name: "k9hope_inventory_adjustments_total",
			Help: "Total number of stock adjustments",
		}),
		StockLevel: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "k9hope_inventory_stock_ml",
			Help: "Last observed stock level in milliliters",
		}, []string{"blood_type"}),
	}
}
