// Package api serves stored sweep reports, runs sweeps on request and
// streams sweep progress over a websocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/MJE43/nh-parity-go/internal/converge"
	"github.com/MJE43/nh-parity-go/internal/diff"
	"github.com/MJE43/nh-parity-go/internal/metrics"
	"github.com/MJE43/nh-parity-go/internal/oracle"
	"github.com/MJE43/nh-parity-go/internal/platform/logging"
	"github.com/MJE43/nh-parity-go/internal/store"
)

const (
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 10 * time.Second
	maxBodyBytes    = 8 << 20
)

// Config wires the server's collaborators.
type Config struct {
	DB     store.DB
	Oracle oracle.Oracle
	// Table grades sweeps started through the API. Nil means the default.
	Table          *diff.Table
	Threshold      diff.Severity
	Gate           *converge.Gate
	Workers        int
	FixtureTimeout time.Duration
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
}

// Server handles HTTP requests
type Server struct {
	db             store.DB
	oracle         oracle.Oracle
	table          *diff.Table
	threshold      diff.Severity
	gate           *converge.Gate
	workers        int
	fixtureTimeout time.Duration
	metrics        *metrics.Metrics
	hub            *Hub
	errorHandler   *ErrorHandler
	logger         *slog.Logger
	startTime      time.Time
}

// NewServer creates a new API server
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.With("component", "api")
	table := cfg.Table
	if table == nil {
		table = diff.DefaultTable()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New(false)
	}

	s := &Server{
		db:             cfg.DB,
		oracle:         cfg.Oracle,
		table:          table,
		threshold:      cfg.Threshold,
		gate:           cfg.Gate,
		workers:        cfg.Workers,
		fixtureTimeout: cfg.FixtureTimeout,
		metrics:        m,
		hub:            NewHub(logger),
		errorHandler:   NewErrorHandler(logger),
		logger:         logger,
		startTime:      time.Now(),
	}

	logger.Info("server_startup",
		"engine_version", EngineVersion,
		"database_enabled", s.db != nil,
		"oracle_enabled", s.oracle != nil,
		"severity_rules", len(table.Rules()))
	return s
}

// Hub exposes the live sweep hub.
func (s *Server) Hub() *Hub { return s.hub }

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.LoggingMiddleware)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(s.CORSMiddleware)

	r.Get("/ws/sweeps", s.hub.ServeWS)
	r.Handle("/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/health", s.handleHealthCheck)
		r.Get("/health/ready", s.handleReadiness)
		r.Get("/health/live", s.handleLiveness)
		r.Get("/version", s.handleVersion)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/severity", s.handleSeverityTable)
			r.Post("/replay", s.handleReplay)

			r.Group(func(r chi.Router) {
				r.Use(s.requireStore)
				r.Get("/sweeps", s.handleListSweeps)
				r.Get("/sweeps/{id}", s.handleGetSweep)
				r.Get("/sweeps/{id}/report", s.handleGetReport)
				r.Get("/sweeps/{id}/fixtures", s.handleGetFixtures)
				r.Get("/sweeps/{id}/records", s.handleListRecords)
				r.Delete("/sweeps/{id}", s.handleDeleteSweep)
			})
		})
	})

	// Sweeps can outlast the request timeout; each fixture has its own.
	r.With(s.requireStore).Post("/api/v1/sweeps", s.handleRunSweep)

	return r
}

// ListenAndServe serves on addr with the hub running until ctx ends, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		s.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}
