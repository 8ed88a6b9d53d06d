package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the request flow.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cacher_requests_total",
		Help: "Total proxied requests by cache status",
	}, []string{"status"}) // HIT|MISS|DYNAMIC|ERROR

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cacher_request_duration_seconds",
		Help:    "Proxied request duration in seconds by cache status",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"status"})

	originRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cacher_origin_requests_total",
		Help: "Total origin responses by status code",
	}, []string{"code"})

	originErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cacher_origin_errors_total",
		Help: "Total origin round trips that failed without a response",
	})

	storeWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cacher_store_write_failures_total",
		Help: "Total swallowed store write failures by operation",
	}, []string{"operation"}) // set|expire|vary

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cacher_retries_total",
		Help: "Total origin retry attempts",
	})
)
