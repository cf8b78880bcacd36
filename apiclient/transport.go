package apiclient

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/storefront-web/sessions"
)

// TokenStore is the slice of a sessions.Store the transport needs.
type TokenStore interface {
	Snapshot() sessions.Session
	LogoutIfToken(ctx context.Context, token *string) bool
}

var _ TokenStore = (*sessions.Store)(nil)

// Transport attaches the store's bearer credential to outgoing requests and
// logs the store out when the backend rejects it with 401. The logout only
// happens if the store still holds the credential that was sent.
//
// Requests whose path (after BasePath) starts with one of PublicPaths are sent
// without a credential and never trigger a logout. All other responses and
// errors are returned to the caller untouched.
type Transport struct {
	Base        http.RoundTripper
	Store       TokenStore
	PublicPaths []string
	BasePath    string // path prefix of the backend base URL, e.g. "/api"
}

var _ http.RoundTripper = (*Transport)(nil)

func NewTransport(base http.RoundTripper, store TokenStore, publicPaths []string, basePath string) *Transport {
	return &Transport{
		Base:        base,
		Store:       store,
		PublicPaths: publicPaths,
		BasePath:    strings.TrimSuffix(basePath, "/"),
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	public := t.isPublic(req.URL.Path)

	var sent *string
	if !public {
		session := t.Store.Snapshot()
		sent = session.AccessToken
		if token := session.OAuth2Token(); token != nil {
			req = req.Clone(req.Context())
			token.SetAuthHeader(req)
		}
	}

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && !public {
		t.Store.LogoutIfToken(req.Context(), sent)
	}
	return resp, nil
}

func (t *Transport) isPublic(path string) bool {
	path = strings.TrimPrefix(path, t.BasePath)
	for _, prefix := range t.PublicPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}
