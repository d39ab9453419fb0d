// Package metrics provides Prometheus metrics for the assistant: HTTP
// request counters/latency/in-flight plus domain metrics for the query
// pipeline (queries by intent, external source calls and latency, LLM
// fallbacks, cache hits and misses).
//
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_queries_total",
			Help: "Queries resolved, by classified intent and classification method",
		},
		[]string{"intent", "method"},
	)

	SourceCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_source_calls_total",
			Help: "External source calls, by source and outcome (ok, error, cached)",
		},
		[]string{"source", "outcome"},
	)

	SourceCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_source_call_duration_seconds",
			Help:    "External source call latency, retries included",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	LLMFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_llm_fallbacks_total",
			Help: "LLM interpretation fallback calls, by outcome (ok, error)",
		},
		[]string{"outcome"},
	)

	CacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_cache_requests_total",
			Help: "Response cache lookups, by outcome (hit, miss)",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(SourceCallsTotal)
	prometheus.MustRegister(SourceCallDuration)
	prometheus.MustRegister(LLMFallbacksTotal)
	prometheus.MustRegister(CacheRequestsTotal)
}

// RecordQuery counts one resolved query.
func RecordQuery(intent, method string) {
	QueriesTotal.WithLabelValues(intent, method).Inc()
}

// RecordSourceCall counts one external source call and its latency.
func RecordSourceCall(source, outcome string, elapsed time.Duration) {
	SourceCallsTotal.WithLabelValues(source, outcome).Inc()
	SourceCallDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// RecordCacheLookup counts one response-cache lookup.
func RecordCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	CacheRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordLLMFallback counts one interpretation fallback call.
func RecordLLMFallback(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	LLMFallbacksTotal.WithLabelValues(outcome).Inc()
}
