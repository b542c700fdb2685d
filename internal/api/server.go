// Package api serves the simulator over HTTP: batch runs, driven sessions
// and, when an archive is configured, archived run reports.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nvandessel/reciprocity/internal/engine"
	"github.com/nvandessel/reciprocity/internal/session"
	"github.com/nvandessel/reciprocity/internal/store"
)

const shutdownTimeout = 10 * time.Second

// Config holds server configuration.
type Config struct {
	// Defaults is the run configuration request overrides are applied to.
	Defaults engine.Config

	// Limits bound the runs a request may ask for. The zero value uses
	// engine.DefaultLimits.
	Limits engine.Limits

	// Registry holds driven sessions. A private registry is created when nil.
	Registry *session.Registry

	// Sink receives the reports of batch runs.
	Sink engine.Sink

	// Store enables the archive routes when non-nil.
	Store store.ReportStore

	// RateLimit is the per-minute request budget per client. Zero disables
	// limiting.
	RateLimit float64

	Version string
	Logger  *slog.Logger
}

// Server is the HTTP front end.
type Server struct {
	registry *session.Registry
	defaults engine.Config
	limits   engine.Limits
	sink     engine.Sink
	store    store.ReportStore
	version  string
	logger   *slog.Logger
	router   *gin.Engine
}

// NewServer builds the router.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	registry := cfg.Registry
	if registry == nil {
		registry = session.NewRegistry(session.Options{Logger: logger})
	}
	limits := cfg.Limits
	if limits == (engine.Limits{}) {
		limits = engine.DefaultLimits()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	if cfg.RateLimit > 0 {
		router.Use(rateLimit(cfg.RateLimit))
	}

	s := &Server{
		registry: registry,
		defaults: cfg.Defaults,
		limits:   limits,
		sink:     cfg.Sink,
		store:    cfg.Store,
		version:  cfg.Version,
		logger:   logger,
		router:   router,
	}
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
