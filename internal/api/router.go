package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/casetrace/casetrace/internal/config"
	"github.com/casetrace/casetrace/internal/report"
	"github.com/casetrace/casetrace/internal/store"
)

// Server represents the API server
type Server struct {
	config   *config.Config
	router   chi.Router
	handlers *Handlers
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, st store.Store, assembler *report.Assembler) *Server {
	s := &Server{
		config:   cfg,
		router:   chi.NewRouter(),
		handlers: NewHandlers(st, assembler),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handlers.HealthCheck)

	s.router.Route("/api/v1/cases/{caseID}", func(r chi.Router) {
		if s.config.Server.JWTSecret != "" {
			r.Use(AuthMiddleware(s.config.Server.JWTSecret))
		}

		// Ingestion
		r.Route("/batches", func(r chi.Router) {
			r.Get("/", s.handlers.ListBatches)
			r.Post("/", s.handlers.IngestBatch)
		})

		// Parties
		r.Route("/parties", func(r chi.Router) {
			r.Get("/", s.handlers.ListParties)
			r.Post("/{taxID}/unify", s.handlers.UnifyParty)
			r.Get("/{taxID}/report", s.handlers.PartyReport)
		})

		// Case rollups
		r.Get("/summary", s.handlers.CaseSummary)
		r.Get("/findings", s.handlers.CaseFindings)
		r.Get("/files", s.handlers.ListCaseFiles)

		// Link-analysis graph
		r.Route("/graph", func(r chi.Router) {
			r.Get("/", s.handlers.GetGraph)
			r.Get("/csv", s.handlers.GetGraphCSV)
		})
	})
}

// Router returns the chi router
func (s *Server) Router() http.Handler {
	return s.router
}
