// Package api exposes the HTTP surface of the scoring service.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/openrisk-labs/kestrel/internal/auth"
	"github.com/openrisk-labs/kestrel/internal/detector"
	"github.com/openrisk-labs/kestrel/internal/domain"
	"github.com/openrisk-labs/kestrel/internal/metrics"
	"github.com/openrisk-labs/kestrel/internal/scoring"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg *domain.Config, repo domain.Repository, cache domain.Cache, bus domain.EventBus, det *detector.Detector, engine *scoring.Engine, recorder *metrics.Recorder, authMgr *auth.Manager, version string) *Server {
	handler := NewHandler(repo, cache, bus, det, engine, recorder, authMgr, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)          // CORS for browser clients
	router.Use(RecoverMiddleware)       // Recover from panics
	router.Use(TracingMiddleware)       // OpenTelemetry tracing
	router.Use(CorrelationMiddleware)   // Correlation ID propagation
	router.Use(LoggingMiddleware)       // Request logging
	router.Use(middleware.RealIP)       // Extract real IP
	router.Use(middleware.Compress(5))  // Gzip compression

	// Operational endpoints (never authenticated or rate limited)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	router.Get("/metrics", handler.Metrics)

	// Token issuance sits outside the auth guard
	router.Post("/api/v1/auth/token", handler.Token)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(RateLimitMiddleware(cache, cfg.RateLimit))
		if authMgr != nil {
			r.Use(authMgr.Middleware)
		}

		// Scoring
		r.Post("/fraud/detect", handler.DetectFraud)
		r.Post("/fraud/detect/batch", handler.DetectBatch)

		// Transaction retrieval
		r.Get("/transactions/{id}", handler.GetTransaction)

		// Extension signal management
		r.Get("/signals", handler.ListSignals)
		r.Post("/signals", handler.CreateSignal)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg.Server,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
