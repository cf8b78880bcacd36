package server

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/jrsteele09/storefront-web/sessions"
	"github.com/rs/zerolog/log"
)

// APIProxyHandler forwards browser API calls under /api/{role}/ to the backend
// through the role's token-injecting transport: the bearer credential never
// reaches the browser, and a 401 logs that role out.
func (s *Server) APIProxyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role, err := sessions.ParseRole(r.PathValue("role"))
		if err != nil {
			http.NotFound(w, r)
			return
		}

		client, err := s.apiClient(role, s.sessionStore(r, role))
		if err != nil {
			log.Err(err).Msg("Failed to create backend client")
			http.Error(w, "backend unavailable", http.StatusBadGateway)
			return
		}

		target := client.BaseURL()
		rest := "/" + r.PathValue("path")
		proxy := &httputil.ReverseProxy{
			Rewrite: func(pr *httputil.ProxyRequest) {
				pr.Out.URL = &url.URL{
					Scheme:   target.Scheme,
					Host:     target.Host,
					Path:     target.Path + rest,
					RawQuery: pr.In.URL.RawQuery,
				}
				pr.Out.Host = target.Host
				pr.Out.Header.Del("Cookie")
				pr.Out.Header.Del("Authorization")
				pr.SetXForwarded()
			},
			Transport: client.Transport(),
			ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
				logError(r.Method, r.URL.Path, err)
				http.Error(w, "backend unavailable", http.StatusBadGateway)
			},
		}
		proxy.ServeHTTP(w, r)
	}
}
