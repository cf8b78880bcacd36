package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

// adapt turns a net/http style middleware into the HandlerFunc form used by ChainMiddleware.
func adapt(mw func(http.Handler) http.Handler) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return mw(next).ServeHTTP
	}
}

func (s *Server) HTMLMiddleWare(mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	chainedMiddleWare := []func(http.HandlerFunc) http.HandlerFunc{
		adapt(middleware.RequestID),
		s.LoggingMiddleware,
		adapt(middleware.Recoverer),
		s.FrameSecurityMiddleware,
		s.ClientIDMiddleware,
	}
	chainedMiddleWare = append(chainedMiddleWare, mw...)
	return chainedMiddleWare
}

func (s *Server) APIMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return []func(http.HandlerFunc) http.HandlerFunc{
		adapt(middleware.RequestID),
		s.LoggingMiddleware,
		adapt(middleware.Recoverer),
		s.CorsMiddleware,
		s.ClientIDMiddleware,
	}
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.env != "DEV" {
			next(w, r)
			return
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next(ww, r)
		log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msgf("[%-19s] %s", colourMethod(r.Method), r.URL.Path)
	}
}

func (s *Server) FrameSecurityMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Prevent embedding on other sites
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'self'")
		next(w, r)
	}
}

// CorsMiddleware answers preflight requests itself and decorates the rest.
func (s *Server) CorsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return s.cors.Handler(next).ServeHTTP
}
