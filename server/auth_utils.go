package server

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/storefront-web/guard"
	"github.com/jrsteele09/storefront-web/sessions"
)

const (
	// clientIDCookieName identifies the browser; its session stores hang off it
	clientIDCookieName = "sf_client_id"
	// flashCookieName carries a one-time notice to the next page rendered
	flashCookieName = "sf_flash"

	flashLoginRequired = "login-required"
)

// ClientIDMiddleware makes sure every browser carries a client id cookie and
// exposes it to handlers through the request context.
func (s *Server) ClientIDMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := ""
		if cookie, err := r.Cookie(clientIDCookieName); err == nil {
			if id, err := uuid.Parse(cookie.Value); err == nil {
				clientID = id.String()
			}
		}
		if clientID == "" {
			clientID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     clientIDCookieName,
				Value:    clientID,
				Path:     "/",
				HttpOnly: true,
				Secure:   getScheme(r) == "https",
				SameSite: http.SameSiteLaxMode,
				MaxAge:   int(s.config.GetClientCookieMaxAge().Seconds()),
			})
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyClientID, clientID)))
	}
}

func clientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyClientID).(string)
	return id
}

// sessionStore returns the browser's store for role.
func (s *Server) sessionStore(r *http.Request, role sessions.Role) *sessions.Store {
	return s.registry.Get(clientIDFromContext(r.Context())).For(role)
}

func setFlash(w http.ResponseWriter, r *http.Request, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Minute.Seconds()),
	})
}

// takeFlash reads the flash cookie and clears it so the notice shows once.
func takeFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	return cookie.Value
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError helper for htmx-aware error redirects
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	u, err := url.Parse(path)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Set("error", errorMsg)
	u.RawQuery = q.Encode()
	redirectSuccess(w, r, u.String())
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// safeRedirect returns target when it stays on this site, otherwise fallback.
func safeRedirect(target, fallback string) string {
	if target != "" && guard.IsLocalPath(target) {
		return target
	}
	return fallback
}
