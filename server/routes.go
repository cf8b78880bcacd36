package server

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/storefront-web/sessions"
)

var proxiedMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteIndex+"{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// LOGIN / LOGOUT
	for _, role := range sessions.Roles {
		login := roleTable[role].Login
		s.RegisterRouteHandler("GET "+login, ChainMiddleware(s.LoginPageUIHandler(role), s.HTMLMiddleWare()...))
		s.RegisterRouteHandler("POST "+login, ChainMiddleware(s.LoginSubmissionHandler(role), s.HTMLMiddleWare()...))
	}
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// Social login
	s.RegisterRouteHandler("GET "+RouteOAuth2Start, ChainMiddleware(s.OAuth2StartHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteOAuth2Callback, ChainMiddleware(s.OAuth2CallbackHandler(), s.HTMLMiddleWare()...))

	// Temporary users finish registration here before anything else
	requireCustomer := s.RequireSession(sessions.RoleCustomer)
	s.RegisterRouteHandler("GET "+RouteSignupComplete, ChainMiddleware(s.SignupCompleteGetHandler(), s.HTMLMiddleWare(requireCustomer)...))
	s.RegisterRouteHandler("POST "+RouteSignupComplete, ChainMiddleware(s.SignupCompletePostHandler(), s.HTMLMiddleWare(requireCustomer)...))

	// Protected areas
	for _, role := range sessions.Roles {
		s.RegisterRouteHandler("GET "+roleTable[role].Home, ChainMiddleware(s.AreaPageHandler(role), s.HTMLMiddleWare(s.RequireSession(role))...))
	}
	s.RegisterRouteHandler("GET "+RouteDisplayName, ChainMiddleware(s.DisplayNameFragmentHandler(), s.HTMLMiddleWare()...))

	// API proxy
	for _, method := range proxiedMethods {
		s.RegisterRouteHandler(method+" "+RouteAPIProxy, ChainMiddleware(s.APIProxyHandler(), s.APIMiddleware()...))
	}

	s.RegisterRouteHandler("GET "+RouteStatic, ChainMiddleware(s.assets.ServeHTTP, adapt(middleware.Recoverer)))
}
