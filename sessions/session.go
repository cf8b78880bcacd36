package sessions

import (
	"github.com/jrsteele09/storefront-web/internal/utils"
	"golang.org/x/oauth2"
)

// Session is the identity and credential state for one role. A nil field means "absent".
//
// A session is authenticated if and only if AccessToken is non-nil.
type Session struct {
	AccessToken     *string `json:"accessToken"`
	RefreshToken    *string `json:"refreshToken"`
	UserID          *int64  `json:"userId"`
	Email           *string `json:"email"`
	DisplayName     *string `json:"displayName"` // Populated lazily by a profile fetch
	IsTemporaryUser bool    `json:"isTemporaryUser"`
}

// Credentials is everything a login or OAuth callback hands to SetAuth.
type Credentials struct {
	AccessToken   *string
	RefreshToken  *string
	UserID        *int64
	Email         *string
	DisplayName   *string
	TemporaryUser bool
}

// Empty returns the unauthenticated session.
func Empty() Session {
	return Session{}
}

// WithAuth builds a session from c, replacing whatever was there before.
func WithAuth(c Credentials) Session {
	return Session{
		AccessToken:     utils.Clone(c.AccessToken),
		RefreshToken:    utils.Clone(c.RefreshToken),
		UserID:          utils.Clone(c.UserID),
		Email:           utils.Clone(c.Email),
		DisplayName:     utils.Clone(c.DisplayName),
		IsTemporaryUser: c.TemporaryUser,
	}
}

// WithToken returns a copy of s with only the access token changed.
func (s Session) WithToken(token *string) Session {
	next := s.clone()
	next.AccessToken = utils.Clone(token)
	return next
}

// WithDisplayName returns a copy of s with only the display name changed.
func (s Session) WithDisplayName(name string) Session {
	next := s.clone()
	next.DisplayName = &name
	return next
}

func (s Session) Authenticated() bool {
	return s.AccessToken != nil
}

// OAuth2Token returns the access token as a bearer oauth2.Token, or nil when unauthenticated.
func (s Session) OAuth2Token() *oauth2.Token {
	if s.AccessToken == nil {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  *s.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: utils.Value(s.RefreshToken),
	}
}

func (s Session) clone() Session {
	return Session{
		AccessToken:     utils.Clone(s.AccessToken),
		RefreshToken:    utils.Clone(s.RefreshToken),
		UserID:          utils.Clone(s.UserID),
		Email:           utils.Clone(s.Email),
		DisplayName:     utils.Clone(s.DisplayName),
		IsTemporaryUser: s.IsTemporaryUser,
	}
}
