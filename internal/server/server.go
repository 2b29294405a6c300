// Package server provides the HTTP server and routing for Stonks.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/stonks/internal/di"
	chartshandlers "github.com/aristath/stonks/internal/modules/charts/handlers"
	"github.com/aristath/stonks/internal/modules/identity"
	identityhandlers "github.com/aristath/stonks/internal/modules/identity/handlers"
	ledgerhandlers "github.com/aristath/stonks/internal/modules/ledger/handlers"
	newshandlers "github.com/aristath/stonks/internal/modules/news/handlers"
	portfoliohandlers "github.com/aristath/stonks/internal/modules/portfolio/handlers"
	priceshandlers "github.com/aristath/stonks/internal/modules/prices/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	Container *di.Container // DI container with all services
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	port           int
	devMode        bool
	container      *di.Container
	systemHandlers *SystemHandlers
	eventsStream   *EventsStreamHandler
	pricesStream   *PricesStreamHandler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	c := cfg.Container
	systemHandlers := NewSystemHandlers(c.Loop, c.Sessions, c.Scheduler, c.Databases(), cfg.Log)

	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		port:           cfg.Port,
		devMode:        cfg.DevMode,
		container:      c,
		systemHandlers: systemHandlers,
		eventsStream:   NewEventsStreamHandler(c.EventBus, cfg.Log),
		pricesStream:   NewPricesStreamHandler(c.PriceTable, c.EventBus, cfg.Log),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Streams stay open; per-request timeouts come from middleware.Timeout
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	c := s.container

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Every API route sees the caller's session, if any
		r.Use(c.Sessions.Middleware)

		// Long-lived streams are mounted outside the timeout and compression middleware
		r.With(identity.RequireSession).Get("/events/stream", s.eventsStream.ServeHTTP)
		r.Get("/ws/prices", s.pricesStream.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			// Compression (only in production)
			if !s.devMode {
				r.Use(middleware.Compress(5))
			}

			r.Get("/health", s.handleHealth)

			portfoliohandlers.NewHandler(c.PortfolioService, identity.ContextIdentity{}, s.log).RegisterRoutes(r)
			ledgerhandlers.NewHandler(c.LedgerService, c.TradeRepo, identity.ContextIdentity{}, s.log).RegisterRoutes(r)
			priceshandlers.NewHandler(c.PriceTable, c.PriceRepo, s.log).RegisterRoutes(r)
			identityhandlers.NewHandler(c.Sessions, c.AccountStore, s.log).RegisterRoutes(r)
			chartshandlers.NewHandler(c.ChartsService, s.log).RegisterRoutes(r)
			newshandlers.NewHandler(c.NewsService, s.log).RegisterRoutes(r)

			s.systemHandlers.RegisterRoutes(r)
		})
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
