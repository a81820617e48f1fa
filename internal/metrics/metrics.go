package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request metrics cover every call the gateway makes against a CDP instance.
var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copier_api_requests_total",
			Help: "Total number of CDP API requests issued",
		},
		[]string{"method", "status"},
	)

	APIRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "copier_api_retries_total",
			Help: "Total number of retried CDP API requests",
		},
	)

	RateLimitWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "copier_rate_limit_waits_total",
			Help: "Times the gateway slept to honor the per-instance rate limit",
		},
	)

	EntitiesCopiedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copier_entities_copied_total",
			Help: "Entities processed by the copier, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copier_runs_total",
			Help: "Completed migration runs by result",
		},
		[]string{"result"},
	)
)
