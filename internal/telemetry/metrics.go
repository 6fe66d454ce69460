package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetmonitor_gateway_requests_total",
			Help: "Total number of telemetry gateway requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	gatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetmonitor_gateway_request_duration_seconds",
			Help:    "Duration of telemetry gateway requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	gatewayBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetmonitor_gateway_breaker_state",
			Help: "Gateway circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)
