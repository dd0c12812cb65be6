package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// FinancingQuotesTotal counts financing quotes by source (product, combo) and result.
	FinancingQuotesTotal *prometheus.CounterVec
	// FinancingPlansSkippedTotal counts plans left out of a quote by reason.
	FinancingPlansSkippedTotal *prometheus.CounterVec
	// ShoppingListTransitionsTotal counts applied shopping list actions.
	ShoppingListTransitionsTotal *prometheus.CounterVec
	// ImageProxyRequestsTotal counts image proxy outcomes.
	ImageProxyRequestsTotal *prometheus.CounterVec
	// ImageProxyUpstreamLatency records upstream image fetch latency in milliseconds.
	ImageProxyUpstreamLatency *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		FinancingQuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "financing_quotes_total",
			Help:      "Count of financing quotes computed by source and outcome.",
		}, []string{"source", "result"})
		FinancingPlansSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "financing_plans_skipped_total",
			Help:      "Count of financing plans skipped while quoting.",
		}, []string{"reason"})
		ShoppingListTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shopping_list_transitions_total",
			Help:      "Count of shopping list actions applied.",
		}, []string{"action"})
		ImageProxyRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_proxy_requests_total",
			Help:      "Count of image proxy requests by outcome.",
		}, []string{"result"})
		ImageProxyUpstreamLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_proxy_upstream_duration_ms",
			Help:      "Latency of upstream image fetches in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"result"})

		FinancingQuotesTotal = register(reg, FinancingQuotesTotal)
		FinancingPlansSkippedTotal = register(reg, FinancingPlansSkippedTotal)
		ShoppingListTransitionsTotal = register(reg, ShoppingListTransitionsTotal)
		ImageProxyRequestsTotal = register(reg, ImageProxyRequestsTotal)
		ImageProxyUpstreamLatency = register(reg, ImageProxyUpstreamLatency)
	})
}
