package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"field/board/internal/config"
	"field/board/internal/database"
	"field/board/internal/schedule"
	"field/board/internal/solver"
	"field/board/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Server wires configuration, dependencies and HTTP routing together.
type Server struct {
	cfg       config.Config
	log       zerolog.Logger
	validate  *validator.Validate
	mapper    *schedule.Mapper
	solver    *solver.Client
	watcher   *solver.Watcher
	sessions  *sessionStore
	runs      store.Store
	authMw    *AuthMiddleware
	startedAt time.Time
}

// New instantiates the HTTP server and prepares shared dependencies. The
// database is optional: without DB_URL the run history lives in memory.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Server, error) {
	mapper := schedule.NewMapper(log)
	mapper.WarnHook = func(kind string) {
		dataQualityWarningsTotal.WithLabelValues(kind).Inc()
	}

	client := solver.NewClient(cfg.Solver, log)

	var runs store.Store = store.NewMemory()
	if cfg.Database.URL != "" {
		pool, err := database.Connect(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("init run store: %w", err)
		}
		runs = store.NewPostgres(pool)
	}

	var authMw *AuthMiddleware
	if cfg.Auth.Enabled {
		mw, err := NewAuthMiddleware(ctx, cfg.Auth, log)
		if err != nil {
			runs.Close()
			return nil, fmt.Errorf("init auth middleware: %w", err)
		}
		authMw = mw
	}

	srv := &Server{
		cfg:       cfg,
		log:       log,
		validate:  newValidator(),
		mapper:    mapper,
		solver:    client,
		watcher:   solver.NewWatcher(client, cfg.Solver, log),
		sessions:  newSessionStore(),
		runs:      runs,
		authMw:    authMw,
		startedAt: time.Now().UTC(),
	}

	return srv, nil
}

// Close releases shared resources.
func (s *Server) Close() {
	if s.authMw != nil {
		s.authMw.Close()
	}
	if s.runs != nil {
		s.runs.Close()
	}
}

// Run starts the HTTP server and blocks until the context is cancelled or an
// unrecoverable error occurs.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.cfg.HTTP.Address,
		Handler:      s.routes(),
		ReadTimeout:  s.cfg.HTTP.ReadTimeout,
		WriteTimeout: s.cfg.HTTP.WriteTimeout,
		IdleTimeout:  s.cfg.HTTP.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	s.log.Info().Str("addr", s.cfg.HTTP.Address).Msg("http server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("latitude", func(fl validator.FieldLevel) bool {
		val, ok := fl.Field().Interface().(float64)
		if !ok {
			return false
		}
		return val >= -90 && val <= 90
	})
	_ = v.RegisterValidation("longitude", func(fl validator.FieldLevel) bool {
		val, ok := fl.Field().Interface().(float64)
		if !ok {
			return false
		}
		return val >= -180 && val <= 180
	})
	return v
}
