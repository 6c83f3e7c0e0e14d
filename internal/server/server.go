// Package server provides the HTTP server and routing for pairlab.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/aristath/pairlab/internal/database"
	"github.com/aristath/pairlab/internal/modules/ledger"
	"github.com/aristath/pairlab/internal/modules/prices"
	priceshandlers "github.com/aristath/pairlab/internal/modules/prices/handlers"
	"github.com/aristath/pairlab/internal/modules/research"
	researchhandlers "github.com/aristath/pairlab/internal/modules/research/handlers"
	"github.com/aristath/pairlab/internal/scheduler"
	"github.com/aristath/pairlab/pkg/logger"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	DataDir   string
	Port      int
	DevMode   bool
	HistoryDB *database.DB
	ResultsDB *database.DB
	Research  *research.Service
	Scheduler *scheduler.Scheduler
}

// Server represents the HTTP server
type Server struct {
	router          *chi.Mux
	server          *http.Server
	log             zerolog.Logger
	port            int
	systemHandlers  *SystemHandlers
	pricesHandler   *priceshandlers.Handler
	researchHandler *researchhandlers.Handler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	databases := map[string]*database.DB{
		database.NameHistory: cfg.HistoryDB,
		database.NameResults: cfg.ResultsDB,
	}

	s := &Server{
		router:         chi.NewRouter(),
		log:            logger.Component(cfg.Log, "server"),
		port:           cfg.Port,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.DataDir, databases, cfg.Scheduler),
	}
	if cfg.HistoryDB != nil {
		s.pricesHandler = priceshandlers.NewHandler(prices.NewHistoryDB(cfg.HistoryDB.Conn(), cfg.Log), cfg.Log)
	}
	if cfg.Research != nil && cfg.ResultsDB != nil {
		s.researchHandler = researchhandlers.NewHandler(cfg.Research, ledger.NewRepository(cfg.ResultsDB.Conn(), cfg.Log), cfg.Log)
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	// Research runs are synchronous and can outlast the usual write timeout.
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		// System endpoints stay on a short timeout; research runs do not.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			s.systemHandlers.RegisterRoutes(r)
			if s.pricesHandler != nil {
				s.pricesHandler.RegisterRoutes(r)
			}
		})

		if s.researchHandler != nil {
			s.researchHandler.RegisterRoutes(r)
		}
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
