package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/storefront-web/apiclient"
	"github.com/jrsteele09/storefront-web/sessions"
	"github.com/rs/zerolog/log"
)

// PageData is the template model shared by the full pages.
type PageData struct {
	AppName string
	Title   string
	Role    sessions.Role
	Path    string
}

// apiClient builds a backend client for role bound to the browser's store.
func (s *Server) apiClient(role sessions.Role, store *sessions.Store) (*apiclient.Client, error) {
	return apiclient.New(s.config.GetBackendBaseURL(), role, store,
		apiclient.WithTimeout(s.config.GetBackendTimeout()),
		apiclient.WithPublicPaths(s.config.GetPublicPaths()),
	)
}

// IndexHandler renders the landing page
func (s *Server) IndexHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("index.html")
	return func(w http.ResponseWriter, r *http.Request) {
		renderTemplate(w, http.StatusOK, tmpl, PageData{
			AppName: s.config.GetAppName(),
			Title:   "Welcome",
		})
	}
}

// AreaPageHandler renders the shell of a protected page. The display name is
// pulled in afterwards by the fragment so only that part waits on the backend.
func (s *Server) AreaPageHandler(role sessions.Role) http.HandlerFunc {
	tmpl := mustParseTemplate("area.html")
	return func(w http.ResponseWriter, r *http.Request) {
		renderTemplate(w, http.StatusOK, tmpl, PageData{
			AppName: s.config.GetAppName(),
			Title:   roleTable[role].Title,
			Role:    role,
			Path:    r.URL.Path,
		})
	}
}

// DisplayNameFragmentHandler lazily fetches the member profile the first time
// a page needs the display name and renders it as an HTMX fragment.
func (s *Server) DisplayNameFragmentHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("display_name.html")
	return func(w http.ResponseWriter, r *http.Request) {
		role, err := sessions.ParseRole(r.PathValue("role"))
		if err != nil {
			http.NotFound(w, r)
			return
		}

		store := s.sessionStore(r, role)
		ctx, cancel := context.WithTimeout(r.Context(), s.config.GetHydrationWait())
		err = store.WaitHydrated(ctx)
		cancel()
		if err != nil {
			renderTemplate(w, http.StatusOK, tmpl, "")
			return
		}

		client, err := s.apiClient(role, store)
		if err != nil {
			log.Err(err).Msg("Failed to create backend client")
			renderTemplate(w, http.StatusOK, tmpl, "")
			return
		}

		logger := log.With().Str("role", string(role)).Str("client_id", clientIDFromContext(r.Context())).Logger()
		name := apiclient.LoadDisplayName(r.Context(), client, store, logger)
		renderTemplate(w, http.StatusOK, tmpl, name)
	}
}
