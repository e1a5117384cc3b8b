package atlas

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics recorded by a Client.
// Pass to NewClient via WithMetrics.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	AuthFailuresTotal prometheus.Counter
	CacheHitsTotal    prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "atlas",
				Name:      "requests_total",
				Help:      "Total number of gateway requests by outcome",
			},
			[]string{"method", "outcome"}, // outcome=ok/auth_invalid/api/network
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "atlas",
				Name:      "request_duration_seconds",
				Help:      "Gateway request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		AuthFailuresTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "atlas",
				Name:      "auth_failures_total",
				Help:      "Total 401/403 responses that forced a logout",
			},
		),
		CacheHitsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "atlas",
				Name:      "cache_hits_total",
				Help:      "Total GET responses served from the client cache",
			},
		),
	}
}
