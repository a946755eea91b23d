package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/chartdocx/internal/config"
	"github.com/dgallion1/chartdocx/internal/correct"
	"github.com/dgallion1/chartdocx/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for chartdocx.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	reconciler   *correct.Reconciler
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. reconciler is nil when
// correction is disabled.
func NewServer(orch *pipeline.Orchestrator, reconciler *correct.Reconciler, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		reconciler:   reconciler,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/exports", s.handleExport)
		r.Post("/api/exports/template", s.handleTemplateExport)
		r.Post("/api/exports/async", s.handleAsyncExport)
		r.Get("/api/exports/{jobID}/status", s.handleExportStatus)
		r.Get("/api/exports/{jobID}/document", s.handleExportDocument)
		r.Post("/api/blocks", s.handleBlocks)
		r.Get("/api/stats/corrections", s.handleCorrectionStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
