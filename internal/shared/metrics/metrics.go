package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "swapforge"

// Metrics holds the prometheus collectors shared across the service.
type Metrics struct {
	HTTPRequests     *prometheus.CounterVec
	Operations       *prometheus.CounterVec
	OperationErrors  *prometheus.CounterVec
	PairsRegistered  prometheus.Gauge
	AssetsRegistered prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Exchange operations by kind.",
		}, []string{"op"}),
		OperationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_errors_total",
			Help:      "Failed exchange operations by kind.",
		}, []string{"op"}),
		PairsRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pairs_registered",
			Help:      "Number of pairs in the registry.",
		}),
		AssetsRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "assets_registered",
			Help:      "Number of assets in the ledger registry.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.Operations,
		m.OperationErrors,
		m.PairsRegistered,
		m.AssetsRegistered,
	)
	return m
}
