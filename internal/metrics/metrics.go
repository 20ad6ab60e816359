package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the planner
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// DistanceRequests counts distance matrix API calls by outcome (ok, error, status code)
	DistanceRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "distance_api_requests_total", Help: "Distance matrix API requests by outcome."},
		[]string{"outcome"},
	)
	// DistanceLatency records distance matrix API latency in seconds
	DistanceLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "distance_api_request_duration_seconds", Help: "Distance matrix API request duration in seconds.", Buckets: prometheus.DefBuckets},
	)
	// DistanceFallbacks counts matrix elements replaced by the unreachable cost
	DistanceFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "distance_api_fallback_elements_total", Help: "Matrix elements replaced by the unreachable cost."},
	)
	// MatrixCache counts matrix cache lookups by result (hit, miss, error)
	MatrixCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "matrix_cache_lookups_total", Help: "Matrix cache lookups by result."},
		[]string{"result"},
	)

	// PlanRuns counts planning runs by final status
	PlanRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "plan_runs_total", Help: "Planning runs by status."},
		[]string{"status"},
	)
	// SolveDuration records solver wall time in seconds
	SolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "solver_duration_seconds", Help: "Routing solver duration in seconds.", Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60}},
	)
	// DroppedStops records how many stops each solved plan dropped
	DroppedStops = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "plan_dropped_stops", Help: "Dropped stops per solved plan.", Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100}},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers collectors to the dedicated registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests, HTTPDuration)
		Registry.MustRegister(DistanceRequests, DistanceLatency, DistanceFallbacks, MatrixCache)
		Registry.MustRegister(PlanRuns, SolveDuration, DroppedStops)
		Registry.MustRegister(WebhookDeliveries, WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
