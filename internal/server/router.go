package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.metricsMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(v1 chi.Router) {
		if s.authMw != nil {
			v1.Use(s.authMw.Middleware)
		}

		v1.Get("/datasets", s.handleListDatasets)
		v1.Get("/runs", s.handleListRuns)

		v1.Post("/sessions", s.handleCreateSession)
		v1.Get("/sessions/{sessionID}", s.handleGetSession)
		v1.Get("/sessions/{sessionID}/kpis", s.handleGetKpis)
		v1.Get("/sessions/{sessionID}/export", s.handleExport)
		v1.Patch("/sessions/{sessionID}/events/{eventID}", s.handleAdjustEvent)

		v1.Post("/sessions/{sessionID}/optimize", s.handleOptimize)
		v1.Get("/sessions/{sessionID}/optimize", s.handleGetRunState)
		v1.Post("/sessions/{sessionID}/simulate", s.handleSimulate)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		duration := time.Since(start)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", duration).
			Msg("http request")
	})
}
