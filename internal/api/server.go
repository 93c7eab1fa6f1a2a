// Package api provides the HTTP API server and handlers for the taskline sync server.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/taskline/taskline-server/internal/http/response"
	"github.com/taskline/taskline-server/internal/ratelimit"
)

// Pinger is a dependency whose liveness the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the HTTP server.
type Options struct {
	// CORSOrigins lists allowed origins; empty allows any.
	CORSOrigins []string
	// Limiter throttles requests per client IP. Nil disables rate limiting.
	Limiter *ratelimit.KeyedRateLimiter
	// Health maps component names to liveness checks.
	Health map[string]Pinger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services *Services
	health   map[string]Pinger
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, opts Options, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		services: services,
		health:   opts.Health,
		router:   router,
		logger:   logger,
	}

	s.setupMiddleware(opts)

	config := huma.DefaultConfig("Taskline Sync API", "1.0.0")
	config.Transformers = append(config.Transformers, EnvelopeTransformer)
	s.api = humachi.New(router, config)
	RegisterErrorHandler()

	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, used by tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) setupMiddleware(opts Options) {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(requestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	s.router.Use(middleware.RequestSize(MaxRequestBodySize))
	if opts.Limiter != nil {
		s.router.Use(RateLimitMiddleware(opts.Limiter, s.logger))
	}

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "route not found", s.logger)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, s.logger)
	})
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerTagRoutes()
	s.registerMemberRoutes()
	s.registerOutstandingRoutes()
	s.registerPreferenceRoutes()
}
