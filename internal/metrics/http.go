// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metacure_http_requests_total",
		Help: "Total number of HTTP requests, by route pattern, method and status code.",
	}, []string{"route", "method", "code"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "metacure_http_request_duration_seconds",
		Help:    "HTTP request latency, by route pattern and method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
)

// RecordHTTPRequest counts one completed request. route must be the chi
// route pattern, not the raw URL path, to keep cardinality bounded.
func RecordHTTPRequest(route, method, code string) {
	httpRequestsTotal.WithLabelValues(route, method, code).Inc()
}

// ObserveHTTPDuration records the latency of one completed request.
func ObserveHTTPDuration(route, method string, seconds float64) {
	httpRequestDuration.WithLabelValues(route, method).Observe(seconds)
}

// HTTPRequestCount returns the request counter for one label combination
// (for testing).
func HTTPRequestCount(route, method, code string) float64 {
	var m dto.Metric
	if err := httpRequestsTotal.WithLabelValues(route, method, code).Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
