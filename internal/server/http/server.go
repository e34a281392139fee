// Package httpserver provides the HTTP REST API server for the paper assistant service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-assistant-service/internal/compose"
	"github.com/helixir/paper-assistant-service/internal/database"
	"github.com/helixir/paper-assistant-service/internal/domain"
	"github.com/helixir/paper-assistant-service/internal/observability"
	"github.com/helixir/paper-assistant-service/internal/service"
)

// PaperService defines the paper operations used by the HTTP server.
type PaperService interface {
	Create(ctx context.Context, in service.PaperInput, uploads []service.Upload) (*domain.Paper, error)
	Update(ctx context.Context, id uuid.UUID, in service.PaperInput, uploads []service.Upload) (*domain.Paper, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Paper, error)
	List(ctx context.Context, limit, offset int) ([]*domain.PaperSummary, int64, error)
	UpdateImageCaption(ctx context.Context, paperID, imageID uuid.UUID, caption string) (*domain.Image, error)
	ComposeHTML(ctx context.Context, id uuid.UUID) (*compose.Document, error)
	GeneratePDF(ctx context.Context, id uuid.UUID) ([]byte, error)
}

// HealthChecker reports database health.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	papers     PaperService
	health     HealthChecker
	validate   *validator.Validate
	cfg        Config
	metrics    *observability.Metrics
	logger     zerolog.Logger
	now        func() time.Time
}

// Config holds HTTP server configuration.
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// Environment is reported by the status endpoint.
	Environment string
	// MaxFileBytes is the per-file upload limit.
	MaxFileBytes int64
	// MaxFiles is the maximum number of files per request.
	MaxFiles int
}

// NewServer creates a new HTTP server with all dependencies.
// metrics may be nil.
func NewServer(
	cfg Config,
	papers PaperService,
	health HealthChecker,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = defaultMaxFileBytes
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = defaultMaxFiles
	}

	s := &Server{
		papers:   papers,
		health:   health,
		validate: newValidator(),
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger.With().Str("component", "http-server").Logger(),
		now:      time.Now,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(s.requestLogMiddleware)

	// Health endpoints
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.statusHandler)

		r.Route("/papers", func(r chi.Router) {
			r.Post("/", s.createPaper)
			r.Get("/", s.listPapers)
			r.Get("/{paperID}", s.getPaper)
			r.Put("/{paperID}", s.updatePaper)
			r.Patch("/{paperID}/images/{imageID}", s.updateImageCaption)
			r.Get("/{paperID}/html", s.previewPaper)
			r.Get("/{paperID}/pdf", s.downloadPDF)
		})
	})

	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.health.Health(r.Context())
	if health.Status == "healthy" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": health.Status})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status":   "unhealthy",
		"database": health.Status,
		"error":    health.Error,
	})
}

// readinessHandler returns readiness status including database connectivity.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.health.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}

// statusHandler handles GET /api/status.
func (s *Server) statusHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:    "ok",
		Message:   "Paper assistant API is running",
		Timestamp: s.now().UTC(),
		Env:       s.cfg.Environment,
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort log; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
