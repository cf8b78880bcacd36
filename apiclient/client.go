package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/storefront-web/internal/errors"
	"github.com/jrsteele09/storefront-web/sessions"
)

const maxErrorBody = 4 << 10

// Client talks to the backend REST API on behalf of one role's session.
type Client struct {
	role      sessions.Role
	baseURL   *url.URL
	endpoints Endpoints
	transport *Transport
	http      *http.Client
}

type clientOptions struct {
	base        http.RoundTripper
	timeout     time.Duration
	publicPaths []string
	endpoints   *Endpoints
}

// ClientOption modifies how a Client is built.
type ClientOption func(*clientOptions)

// WithBaseTransport sets the RoundTripper requests are finally sent through.
func WithBaseTransport(rt http.RoundTripper) ClientOption {
	return func(o *clientOptions) {
		o.base = rt
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// WithPublicPaths replaces the default public path allowlist.
func WithPublicPaths(paths []string) ClientOption {
	return func(o *clientOptions) {
		o.publicPaths = paths
	}
}

func WithEndpoints(e Endpoints) ClientOption {
	return func(o *clientOptions) {
		o.endpoints = &e
	}
}

// New creates a client for role whose credential comes from store.
func New(baseURL string, role sessions.Role, store TokenStore, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("[apiclient New] invalid base URL %q: %w", baseURL, err)
	}

	o := clientOptions{
		publicPaths: []string{"/public/"},
	}
	for _, opt := range opts {
		opt(&o)
	}

	endpoints := DefaultEndpoints(role)
	if o.endpoints != nil {
		endpoints = *o.endpoints
	}

	transport := NewTransport(o.base, store, o.publicPaths, u.Path)
	return &Client{
		role:      role,
		baseURL:   u,
		endpoints: endpoints,
		transport: transport,
		http: &http.Client{
			Transport: transport,
			Timeout:   o.timeout,
		},
	}, nil
}

func (c *Client) Role() sessions.Role {
	return c.role
}

// BaseURL returns a copy of the backend base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Transport returns the token-injecting RoundTripper, e.g. for proxying browser API calls.
func (c *Client) Transport() *Transport {
	return c.transport
}

// Login exchanges email and password for credentials. A 401 is reported as
// apperrors.ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	err := c.Do(ctx, http.MethodPost, c.endpoints.Login, LoginRequest{Email: email, Password: password}, &resp)
	if apperrors.Is(err, apperrors.ErrUnauthorized) {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidCredentials, "[Client Login] %s", email)
	}
	if err != nil {
		return nil, fmt.Errorf("[Client Login] %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("[Client Login] backend returned no access token")
	}
	return &resp, nil
}

// Me fetches the signed in member's profile.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.Do(ctx, http.MethodGet, c.endpoints.Profile, nil, &p); err != nil {
		return nil, fmt.Errorf("[Client Me] %w", err)
	}
	return &p, nil
}

// CompleteSignup submits the registration form a temporary user must fill in.
func (c *Client) CompleteSignup(ctx context.Context, path string, form map[string]string) error {
	if err := c.Do(ctx, http.MethodPost, path, form, nil); err != nil {
		return fmt.Errorf("[Client CompleteSignup] %w", err)
	}
	return nil
}

// Do sends a JSON request to path (relative to the base URL) and decodes a
// JSON response into out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(snippet),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}
