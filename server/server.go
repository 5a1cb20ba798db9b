package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/forgery"
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/internal/metrics"
	"github.com/jrsteele09/go-session-auth/ratelimit"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/rs/zerolog/log"
)

// Dependencies are the collaborators wired into the HTTP layer.
type Dependencies struct {
	Auth     *auth.Service
	Sessions *sessions.Manager
	Forgery  *forgery.Guard
	Limiter  *ratelimit.Limiter // nil disables rate limiting
	Metrics  *metrics.Metrics   // optional
	// MetricsHandler, when set, is served at /metrics.
	MetricsHandler http.Handler
}

type Server struct {
	env        string // Environment (e.g., "DEV", "PRODUCTION")
	production bool
	trustProxy bool
	mux        *http.ServeMux
	routes     []string
	config     config.Config

	auth           *auth.Service
	sessions       *sessions.Manager
	forgery        *forgery.Guard
	limiter        *ratelimit.Limiter
	metrics        *metrics.Metrics
	metricsHandler http.Handler
}

func New(config config.Config, deps Dependencies) (*Server, error) {
	if deps.Auth == nil {
		return nil, fmt.Errorf("[Server New] auth service is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("[Server New] session manager is required")
	}
	if deps.Forgery == nil {
		return nil, fmt.Errorf("[Server New] forgery guard is required")
	}

	s := &Server{
		mux:            http.NewServeMux(),
		config:         config,
		env:            config.GetEnv(),
		production:     config.IsProduction(),
		trustProxy:     config.GetTrustProxy(),
		auth:           deps.Auth,
		sessions:       deps.Sessions,
		forgery:        deps.Forgery,
		limiter:        deps.Limiter,
		metrics:        deps.Metrics,
		metricsHandler: deps.MetricsHandler,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "ANY", route
		}
		log.Debug().Str("method", method).Str("path", path).Msg("route registered")
	}
}
