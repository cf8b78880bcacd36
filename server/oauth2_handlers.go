package server

import (
	"net/http"
	"slices"

	"github.com/jrsteele09/storefront-web/guard"
	apperrors "github.com/jrsteele09/storefront-web/internal/errors"
	"github.com/jrsteele09/storefront-web/oauthcallback"
	"github.com/jrsteele09/storefront-web/sessions"
	"github.com/rs/zerolog/log"
)

// CallbackErrorData is the template model for a failed social login
type CallbackErrorData struct {
	AppName  string
	Title    string
	Message  string
	LoginURL string
}

// OAuth2StartHandler remembers where the browser wants to end up and sends it
// to the backend to start the provider's authorization flow.
func (s *Server) OAuth2StartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := r.PathValue("provider")
		if !slices.Contains(s.config.GetOAuthProviders(), provider) {
			redirectWithError(w, r, RouteCustomerLogin, "Unknown sign in provider")
			return
		}

		clientID := clientIDFromContext(r.Context())
		if path := safeRedirect(r.URL.Query().Get(guard.RedirectParam), ""); path != "" {
			if err := s.stash.Put(r.Context(), clientID, path, s.config.GetPreLoginPathTTL()); err != nil {
				// Losing the path only means landing on the home page afterwards.
				log.Warn().Err(err).Msg("Failed to stash pre-login path")
			}
		}

		http.Redirect(w, r, s.config.GetOAuthAuthorizeURL(provider), http.StatusFound)
	}
}

// OAuth2CallbackHandler receives the token and email the backend redirects
// with after a social login, and forwards the browser once.
func (s *Server) OAuth2CallbackHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("callback_error.html")
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := clientIDFromContext(r.Context())
		store := s.sessionStore(r, sessions.RoleCustomer)

		target, err := s.callback.Complete(r.Context(), clientID, oauthcallback.ParseParams(r.URL.Query()), store)
		if err != nil {
			log.Warn().Err(err).Str("client_id", clientID).Msg("OAuth callback rejected")

			msg := "The sign in response was incomplete. Please try again."
			if apperrors.Is(err, apperrors.ErrProviderError) {
				msg = "The sign in provider reported a problem. Please try again."
			}
			renderTemplate(w, http.StatusBadRequest, tmpl, CallbackErrorData{
				AppName:  s.config.GetAppName(),
				Title:    "Sign in failed",
				Message:  msg,
				LoginURL: RouteCustomerLogin,
			})
			return
		}

		redirectSuccess(w, r, target)
	}
}
