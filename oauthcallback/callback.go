// Package oauthcallback turns an identity provider redirect into a signed in
// customer session and picks the page to land on.
package oauthcallback

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/storefront-web/guard"
	apperrors "github.com/jrsteele09/storefront-web/internal/errors"
	"github.com/jrsteele09/storefront-web/sessions"
	"github.com/rs/zerolog"
)

// PlaceholderUserID is stored when neither the redirect nor the token names the user.
const PlaceholderUserID int64 = 0

// Params are the query parameters of the provider redirect.
type Params struct {
	Token            string
	Email            string
	TemporaryUser    bool
	Error            string
	ErrorDescription string
}

func ParseParams(q url.Values) Params {
	return Params{
		Token:            q.Get("token"),
		Email:            q.Get("email"),
		TemporaryUser:    strings.EqualFold(q.Get("temporaryUser"), "true"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
}

// Routes are the landing pages the handler chooses between.
type Routes struct {
	Home           string
	SignupComplete string
}

// PathStash yields the path stashed before the browser left for the provider.
type PathStash interface {
	Take(ctx context.Context, key string) (string, error)
}

// SessionSetter is the slice of a sessions.Store the handler writes to.
type SessionSetter interface {
	SetAuth(ctx context.Context, c sessions.Credentials)
}

type Handler struct {
	stash  PathStash
	routes Routes
	logger zerolog.Logger
}

func NewHandler(stash PathStash, routes Routes, logger zerolog.Logger) *Handler {
	return &Handler{
		stash:  stash,
		routes: routes,
		logger: logger,
	}
}

// Complete runs the callback once: it consumes the stashed pre-login path,
// stores the session and returns where to navigate.
//
// Temporary users always go to signup completion. Everybody else returns to
// the stashed path, or home when nothing (usable) was stashed. A provider
// error or a missing token/email leaves the session untouched.
func (h *Handler) Complete(ctx context.Context, stashKey string, p Params, store SessionSetter) (string, error) {
	stashed := h.takeStashed(ctx, stashKey)

	if p.Error != "" {
		return "", apperrors.Wrapf(apperrors.ErrProviderError, "[Callback Complete] %s %s", p.Error, p.ErrorDescription)
	}
	if p.Token == "" || p.Email == "" {
		return "", apperrors.Wrapf(apperrors.ErrMissingCallbackParams, "[Callback Complete] token present=%t email present=%t", p.Token != "", p.Email != "")
	}

	userID := userIDFromToken(p.Token)
	store.SetAuth(ctx, sessions.Credentials{
		AccessToken:   &p.Token,
		UserID:        &userID,
		Email:         &p.Email,
		TemporaryUser: p.TemporaryUser,
	})

	if p.TemporaryUser {
		return h.routes.SignupComplete, nil
	}
	if stashed != "" {
		return stashed, nil
	}
	return h.routes.Home, nil
}

func (h *Handler) takeStashed(ctx context.Context, key string) string {
	if key == "" {
		return ""
	}
	path, err := h.stash.Take(ctx, key)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrStashNotFound) {
			h.logger.Warn().Err(err).Msg("Failed to read pre-login path")
		}
		return ""
	}
	if !guard.IsLocalPath(path) {
		h.logger.Warn().Str("path", path).Msg("Ignoring non-local pre-login path")
		return ""
	}
	return path
}

// userIDFromToken peeks at the (unverified) token claims for a numeric user
// id. The backend verifies the token on every request; here it only labels
// the session.
func userIDFromToken(token string) int64 {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return PlaceholderUserID
	}
	for _, name := range []string{"id", "userId", "sub"} {
		switch v := claims[name].(type) {
		case float64:
			return int64(v)
		case string:
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				return id
			}
		}
	}
	return PlaceholderUserID
}
