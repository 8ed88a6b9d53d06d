// Package metrics exposes the Prometheus registry used by cacher.
// Metrics are defined in their respective packages (cache, proxy) via
// promauto and registered with the default registerer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all cacher metrics are registered with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer served by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the metrics in Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/proxy):
//   - cacher_requests_total{status} (Counter): Requests by cache status (HIT, MISS, DYNAMIC, ERROR)
//   - cacher_request_duration_seconds{status} (Histogram): Request duration by cache status
//   - cacher_origin_requests_total{code} (Counter): Origin responses by status code
//   - cacher_origin_errors_total (Counter): Origin round trips without a response
//   - cacher_retries_total (Counter): Origin retry attempts
//
// Store Metrics (pkg/cache, pkg/proxy):
//   - cacher_store_operations_total{operation,result} (Counter): Store commands by outcome
//   - cacher_store_write_failures_total{operation} (Counter): Swallowed write failures
//
// Example Prometheus Queries:
//
//   # Hit ratio
//   sum(rate(cacher_requests_total{status="HIT"}[5m])) /
//   sum(rate(cacher_requests_total{status=~"HIT|MISS"}[5m]))
//
//   # Store write failures
//   rate(cacher_store_write_failures_total[5m]) > 0
//
//   # P95 miss latency
//   histogram_quantile(0.95, rate(cacher_request_duration_seconds_bucket{status="MISS"}[5m]))
