package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/jrsteele09/storefront-web/guard"
	"github.com/jrsteele09/storefront-web/sessions"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyClientID stores the browser's client id
	ContextKeyClientID ContextKey = "client_id"
	// ContextKeyStore stores the session store the guard authorized against
	ContextKeyStore ContextKey = "session_store"
)

// loadingRetryAfter is how long the loading page asks the browser to wait before retrying.
const loadingRetryAfter = 1

func guardRoutes(role sessions.Role) guard.Routes {
	rr := roleTable[role]
	return guard.Routes{
		Login:          rr.Login,
		SignupComplete: rr.SignupComplete,
	}
}

func guardInput(store *sessions.Store, path string) guard.Input {
	snapshot := store.Snapshot()
	return guard.Input{
		Hydrated:      store.IsHydrated(),
		Authenticated: snapshot.Authenticated(),
		TemporaryUser: snapshot.IsTemporaryUser,
		Path:          path,
	}
}

// RequireSession gates a page on the role's session. Each request mounts a
// fresh guard: while the store hydrates the request waits (bounded by the
// configured hydration wait), then the guard either lets it through or
// redirects once.
func (s *Server) RequireSession(role sessions.Role) func(http.HandlerFunc) http.HandlerFunc {
	routes := guardRoutes(role)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			store := s.sessionStore(r, role)
			path := r.URL.RequestURI()
			g := guard.New(routes)

			decision := g.Evaluate(guardInput(store, path))
			if decision.State == guard.Checking {
				ctx, cancel := context.WithTimeout(r.Context(), s.config.GetHydrationWait())
				err := store.WaitHydrated(ctx)
				cancel()
				if err != nil {
					log.Warn().Err(err).Str("role", string(role)).Msg("Session not hydrated in time, serving loading page")
					s.renderLoading(w, r)
					return
				}
				decision = g.Evaluate(guardInput(store, path))
			}

			if decision.State == guard.Redirecting {
				if decision.LoginRequired {
					setFlash(w, r, flashLoginRequired)
				}
				redirectSuccess(w, r, decision.Target)
				return
			}

			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyStore, store)))
		}
	}
}

// storeFromContext returns the store RequireSession authorized the request against.
func storeFromContext(ctx context.Context) *sessions.Store {
	store, _ := ctx.Value(ContextKeyStore).(*sessions.Store)
	return store
}

func (s *Server) renderLoading(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", strconv.Itoa(loadingRetryAfter))
	renderTemplate(w, http.StatusServiceUnavailable, s.loadingTmpl, map[string]any{
		"AppName": s.config.GetAppName(),
		"Title":   "Loading",
		"Path":    r.URL.RequestURI(),
	})
}
