package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: Namespace + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    Namespace + "_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	GateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: Namespace + "_gate_decisions_total",
			Help: "Requests seen by the session gate, by decision",
		},
		[]string{"decision"},
	)

	AuthorizationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: Namespace + "_oauth_callbacks_total",
			Help: "OAuth callback outcomes",
		},
		[]string{"outcome"},
	)

	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: Namespace + "_upstream_requests_total",
			Help: "Requests sent to the gateway, by upstream status (0 for transport errors)",
		},
		[]string{"method", "status"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    Namespace + "_upstream_request_duration_seconds",
			Help:    "Time to complete gateway requests",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method"},
	)

	EgressRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: Namespace + "_egress_requests_total",
			Help: "Requests handled by the egress gateway, by outcome",
		},
		[]string{"method", "outcome"},
	)

	EgressUpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    Namespace + "_egress_upstream_duration_seconds",
			Help:    "Time the egress gateway spent waiting on the provider API",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method"},
	)
)
