package server

import (
	"html/template"
	"net/http"
	"net/http/httputil"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/troioi-vn/meo-gpt-connector/auth"
	"github.com/troioi-vn/meo-gpt-connector/internal/config"
	"github.com/troioi-vn/meo-gpt-connector/internal/telemetry"
	"github.com/troioi-vn/meo-gpt-connector/ratelimit"
	"github.com/troioi-vn/meo-gpt-connector/store"
)

// DefaultVersion is reported by /health when no build version is set.
const DefaultVersion = "dev"

type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	version string
	mux     *http.ServeMux
	routes  []string
	config  config.Config

	broker  *auth.Broker
	limiter *ratelimit.Limiter
	store   store.Store
	metrics *telemetry.Metrics

	proxy *httputil.ReverseProxy
	pages *template.Template
}

type ServerOption func(*Server)

// WithVersion sets the version reported by /health.
func WithVersion(version string) ServerOption {
	return func(s *Server) {
		s.version = version
	}
}

func New(
	cfg config.Config,
	broker *auth.Broker,
	limiter *ratelimit.Limiter,
	st store.Store,
	metrics *telemetry.Metrics,
	options ...ServerOption,
) (*Server, error) {
	if broker == nil {
		return nil, errors.New("[Server New] broker is required")
	}
	if limiter == nil {
		return nil, errors.New("[Server New] rate limiter is required")
	}
	if st == nil {
		return nil, errors.New("[Server New] store is required")
	}
	if metrics == nil {
		return nil, errors.New("[Server New] metrics are required")
	}

	proxy, err := newUpstreamProxy(cfg.GetMainAppURL())
	if err != nil {
		return nil, errors.Wrap(err, "[Server New] failed to create upstream proxy")
	}

	pages, err := parsePages()
	if err != nil {
		return nil, errors.Wrap(err, "[Server New] failed to parse page templates")
	}

	s := &Server{
		env:     cfg.GetEnv(),
		version: DefaultVersion,
		mux:     http.NewServeMux(),
		config:  cfg,
		broker:  broker,
		limiter: limiter,
		store:   st,
		metrics: metrics,
		proxy:   proxy,
		pages:   pages,
	}
	for _, opt := range options {
		opt(s)
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

// Routes returns the registered route patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path := "", route
		if parts := strings.SplitN(route, " ", 2); len(parts) > 1 {
			method, path = parts[0], parts[1]
		}
		log.Info().Msgf("[%-19s] %s", colouredMethod(method), path)
	}
}
