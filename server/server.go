package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/jrsteele09/storefront-web/internal/config"
	"github.com/jrsteele09/storefront-web/oauthcallback"
	"github.com/jrsteele09/storefront-web/server/prelogin"
	"github.com/jrsteele09/storefront-web/sessions"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	assets   *assetHandler
	config   config.Config
	registry *sessions.Registry
	stash    prelogin.Repo
	callback *oauthcallback.Handler
	cors     *cors.Cors

	loadingTmpl *template.Template
}

// New wires the storefront frontend. registry owns the per-browser session
// stores and stash keeps pre-login paths across the social login round trip.
func New(config config.Config, registry *sessions.Registry, stash prelogin.Repo) (*Server, error) {
	if registry == nil {
		return nil, fmt.Errorf("[Server New] a session registry is required")
	}
	if stash == nil {
		return nil, fmt.Errorf("[Server New] a pre-login stash is required")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		config:   config,
		registry: registry,
		stash:    stash,
		callback: oauthcallback.NewHandler(stash, oauthcallback.Routes{
			Home:           roleTable[sessions.RoleCustomer].Home,
			SignupComplete: RouteSignupComplete,
		}, log.Logger.With().Str("component", "oauth-callback").Logger()),
		cors: cors.New(cors.Options{
			AllowedOrigins:   config.GetAllowedOrigins(),
			AllowedMethods:   config.GetAllowedMethods(),
			AllowedHeaders:   config.GetAllowedHeaders(),
			AllowCredentials: true,
			MaxAge:           86400,
		}),
	}
	s.env = config.GetEnv()
	assets, err := newAssetHandler()
	if err != nil {
		return nil, err
	}
	s.assets = assets
	s.loadingTmpl = mustParseTemplate("loading.html")

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

// RunSessionSweeper evicts idle browsers from the session registry until ctx is done.
func (s *Server) RunSessionSweeper(ctx context.Context) {
	s.registry.Run(ctx, s.config.GetSessionSweepInterval())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}

func logError(method, path string, err error) {
	log.Error().Err(err).Msgf("[%-19s] %s", colourMethod(method), path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
