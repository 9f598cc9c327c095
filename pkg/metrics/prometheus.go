package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var ProviderRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ipprovider_requests_total",
		Help: "Number of lookup requests per public IP provider.",
	},
	[]string{"provider"},
)

var ReconcileRuns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reconcile_runs_total",
		Help: "Number of reconcile runs per outcome.",
	},
	[]string{"outcome"},
)

func InitMetrics() {
	prometheus.Register(ProviderRequests)
	prometheus.Register(ReconcileRuns)
}

func IncrementProvider(provider string) {
	ProviderRequests.WithLabelValues(provider).Inc()
}

func IncrementRun(outcome string) {
	ReconcileRuns.WithLabelValues(outcome).Inc()
}
