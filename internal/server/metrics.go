package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_http_requests_total",
			Help: "Total number of HTTP requests received by the API.",
		},
		[]string{"route", "method", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_http_request_duration_seconds",
			Help:    "Duration of HTTP requests handled by the API.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	optimizationRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_optimization_runs_total",
			Help: "Optimization runs by outcome (completed, failed, timeout, simulated).",
		},
		[]string{"outcome"},
	)

	optimizationWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "api_optimization_wait_seconds",
			Help:    "Time from submission to terminal solver status.",
			Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 180, 300},
		},
	)

	dataQualityWarningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_data_quality_warnings_total",
			Help: "Anomalies tolerated by the mapping layer, by kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		optimizationRunsTotal,
		optimizationWaitSeconds,
		dataQualityWarningsTotal,
	)
}

// metricsMiddleware records basic request metrics for Prometheus (RPS and latency).
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		durationSeconds := time.Since(start).Seconds()
		status := strconv.Itoa(ww.Status())
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		httpRequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		httpRequestDurationSeconds.WithLabelValues(route, r.Method, status).Observe(durationSeconds)
	})
}
