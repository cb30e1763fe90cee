package billing

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	billingRunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "billing",
		Name:      "runs_total",
		Help:      "Number of completed billing runs.",
	})
	billingChargesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "billing",
		Name:      "charges_total",
		Help:      "Charge attempts processed by billing runs, by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(billingRunsTotal, billingChargesTotal)
}

func observeBillingRun(res *ProcessDueResult) {
	billingRunsTotal.Inc()
	billingChargesTotal.WithLabelValues("succeeded").Add(float64(res.Succeeded))
	billingChargesTotal.WithLabelValues("failed").Add(float64(res.Failed))
}
