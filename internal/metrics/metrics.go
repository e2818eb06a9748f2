// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "trafine"

var (
	// ProviderRequests counts provider calls by endpoint and outcome
	// ("ok", "error", "cache_hit").
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_requests_total",
		Help:      "Provider requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_request_duration_seconds",
		Help:      "Provider request latency in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
	}, []string{"endpoint"})

	LifecycleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lifecycle_transitions_total",
		Help:      "User report state transitions",
	}, []string{"transition"})

	// MergedDegraded counts merged queries answered from the store alone.
	MergedDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "merged_query_degraded_total",
		Help:      "Merged incident queries served without provider data",
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lifecycle_events_total",
		Help:      "Lifecycle events by delivery stage and outcome",
	}, []string{"stage", "outcome"})
)
