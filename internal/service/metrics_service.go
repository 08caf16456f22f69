package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface, the cache, and the solver itself.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	solveDuration   *prometheus.HistogramVec
	solveNodes      prometheus.Counter
	solveRuns       *prometheus.CounterVec
	assignedLast    prometheus.Gauge
	unassignedLast  prometheus.Gauge
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	solveDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "solver_run_duration_seconds",
		Help:    "Wall-clock duration of solver runs",
		Buckets: []float64{0.05, 0.25, 1, 5, 10, 20, 30, 60},
	}, []string{"outcome"})

	solveNodes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "solver_nodes_total",
		Help: "Total search nodes explored across all runs",
	})

	solveRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_runs_total",
		Help: "Total solver runs by outcome",
	}, []string{"outcome"})

	assignedLast := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "solver_last_assigned",
		Help: "Bookings placed by the most recent run",
	})

	unassignedLast := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "solver_last_unassigned",
		Help: "Bookings left unplaced by the most recent run",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHits, cacheMisses,
		solveDuration, solveNodes, solveRuns, assignedLast, unassignedLast, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		solveDuration:   solveDuration,
		solveNodes:      solveNodes,
		solveRuns:       solveRuns,
		assignedLast:    assignedLast,
		unassignedLast:  unassignedLast,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveSolve records one solver run. Outcome is "complete" when every
// booking was placed, "partial" otherwise.
func (m *MetricsService) ObserveSolve(duration time.Duration, nodes, assigned, unassigned int) {
	if m == nil {
		return
	}
	outcome := "complete"
	if unassigned > 0 {
		outcome = "partial"
	}
	m.solveDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	m.solveRuns.WithLabelValues(outcome).Inc()
	m.solveNodes.Add(float64(nodes))
	m.assignedLast.Set(float64(assigned))
	m.unassignedLast.Set(float64(unassigned))
}
