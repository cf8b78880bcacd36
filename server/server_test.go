package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/storefront-web/apiclient"
	"github.com/jrsteele09/storefront-web/internal/config"
	"github.com/jrsteele09/storefront-web/server"
	"github.com/jrsteele09/storefront-web/server/prelogin"
	"github.com/jrsteele09/storefront-web/sessions"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	config.EnvVars
	config.Cors
	config.Backend
	config.Session

	backendURL    string
	hydrationWait time.Duration
}

func (c testConfig) GetEnv() string                  { return "TEST" }
func (c testConfig) GetBackendBaseURL() string       { return c.backendURL }
func (c testConfig) GetPublicPaths() []string        { return []string{"/public/"} }
func (c testConfig) GetOAuthProviders() []string     { return []string{"google"} }
func (c testConfig) GetHydrationWait() time.Duration { return c.hydrationWait }
func (c testConfig) GetSessionSweepInterval() time.Duration {
	return 5 * time.Millisecond
}
func (c testConfig) GetOAuthAuthorizeURL(provider string) string {
	return c.backendURL + "/oauth2/authorization/" + provider
}

// fakeBackend is the storefront REST API as far as the frontend is concerned.
type fakeBackend struct {
	*httptest.Server

	mu          sync.Mutex
	authHeaders map[string]string // path -> Authorization header last seen
	profileHits atomic.Int32
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{authHeaders: make(map[string]string)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/public/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req apiclient.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]any{
			"accessToken":   "T1",
			"refreshToken":  "R1",
			"email":         req.Email,
			"id":            7,
			"temporaryUser": strings.HasPrefix(req.Email, "temp"),
		})
	})
	mux.HandleFunc("POST /api/public/auth/seller/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"accessToken": "S1", "email": "s@x.com", "name": "Shop", "id": 9})
	})
	mux.HandleFunc("GET /api/customer/member/me", func(w http.ResponseWriter, r *http.Request) {
		b.profileHits.Add(1)
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]any{"id": 7, "email": "e@x.com", "name": "Eve"})
	})
	mux.HandleFunc("POST /api/customer/member/complete-signup", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.authHeaders[r.URL.Path] = r.Header.Get("Authorization")
		b.mu.Unlock()
		if strings.HasSuffix(r.URL.Path, "/expired") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]any{"path": r.URL.Path, "query": r.URL.RawQuery})
	})

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

func (b *fakeBackend) authHeader(path string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.authHeaders[path]
	return h, ok
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type fixture struct {
	backend  *fakeBackend
	storage  sessions.Storage
	registry *sessions.Registry
	server   *server.Server
	frontend *httptest.Server
	browser  *http.Client
}

func setupFixture(t *testing.T, storage sessions.Storage, hydrationWait time.Duration, opts ...sessions.RegistryOption) *fixture {
	t.Helper()
	backend := newFakeBackend(t)
	opts = append([]sessions.RegistryOption{sessions.WithHydrateTimeout(5 * time.Second)}, opts...)
	registry := sessions.NewRegistry(storage, zerolog.Nop(), opts...)

	srv, err := server.New(testConfig{
		backendURL:    backend.URL + "/api",
		hydrationWait: hydrationWait,
	}, registry, prelogin.NewInMemoryRepo())
	require.NoError(t, err)

	frontend := httptest.NewServer(srv)
	t.Cleanup(frontend.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	browser := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &fixture{
		backend:  backend,
		storage:  storage,
		registry: registry,
		server:   srv,
		frontend: frontend,
		browser:  browser,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return setupFixture(t, sessions.NewInMemoryStorage(), 2*time.Second)
}

type response struct {
	status   int
	location string
	header   http.Header
	body     string
}

func (f *fixture) do(t *testing.T, req *http.Request) response {
	t.Helper()
	resp, err := f.browser.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{
		status:   resp.StatusCode,
		location: resp.Header.Get("Location"),
		header:   resp.Header,
		body:     string(body),
	}
}

func (f *fixture) get(t *testing.T, path string) response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.frontend.URL+path, nil)
	require.NoError(t, err)
	return f.do(t, req)
}

func (f *fixture) post(t *testing.T, path string, form url.Values) response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.frontend.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(t, req)
}

func (f *fixture) login(t *testing.T, email, redirectTo string) response {
	t.Helper()
	return f.post(t, "/login", url.Values{
		"email":      {email},
		"password":   {"secret"},
		"redirectTo": {redirectTo},
	})
}

func (f *fixture) clientID(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(f.frontend.URL)
	require.NoError(t, err)
	for _, c := range f.browser.Jar.Cookies(u) {
		if c.Name == "sf_client_id" {
			return c.Value
		}
	}
	t.Fatal("browser has no client id cookie")
	return ""
}

func (f *fixture) customerSession(t *testing.T) sessions.Session {
	t.Helper()
	return f.registry.Get(f.clientID(t)).For(sessions.RoleCustomer).Snapshot()
}

func TestNew_RequiresDependencies(t *testing.T) {
	registry := sessions.NewRegistry(sessions.NewInMemoryStorage(), zerolog.Nop())
	_, err := server.New(testConfig{}, nil, prelogin.NewInMemoryRepo())
	require.Error(t, err)
	_, err = server.New(testConfig{}, registry, nil)
	require.Error(t, err)
}

func TestIndex(t *testing.T) {
	f := newFixture(t)
	resp := f.get(t, "/")
	require.Equal(t, http.StatusOK, resp.status)
	require.Contains(t, resp.body, "/seller/")
	require.Equal(t, "SAMEORIGIN", resp.header.Get("X-Frame-Options"))
	require.NotEmpty(t, f.clientID(t))
}

func TestProtectedPage_RedirectsToLogin(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/main/auctions/7")
	require.Equal(t, http.StatusSeeOther, resp.status)
	require.Equal(t, "/login?redirectTo=%2Fmain%2Fauctions%2F7", resp.location)

	t.Run("notice shows once", func(t *testing.T) {
		first := f.get(t, "/login?redirectTo=%2Fmain%2Fauctions%2F7")
		require.Equal(t, http.StatusOK, first.status)
		require.Contains(t, first.body, "Please sign in to continue.")
		require.Contains(t, first.body, `value="/main/auctions/7"`)

		second := f.get(t, "/login")
		require.NotContains(t, second.body, "Please sign in to continue.")
	})
}

func TestProtectedPage_HTMXRedirect(t *testing.T) {
	f := newFixture(t)
	req, err := http.NewRequest(http.MethodGet, f.frontend.URL+"/seller/products", nil)
	require.NoError(t, err)
	req.Header.Set("HX-Request", "true")

	resp := f.do(t, req)
	require.Equal(t, http.StatusNoContent, resp.status)
	require.Equal(t, "/seller/login?redirectTo=%2Fseller%2Fproducts", resp.header.Get("HX-Redirect"))
}

func TestLogin(t *testing.T) {
	t.Run("returns to the original page", func(t *testing.T) {
		f := newFixture(t)
		resp := f.login(t, "e@x.com", "/main/auctions/7")
		require.Equal(t, http.StatusSeeOther, resp.status)
		require.Equal(t, "/main/auctions/7", resp.location)

		page := f.get(t, "/main/auctions/7")
		require.Equal(t, http.StatusOK, page.status)
		require.Contains(t, page.body, "/fragments/customer/display-name")

		s := f.customerSession(t)
		require.Equal(t, "T1", *s.AccessToken)
		require.Equal(t, "R1", *s.RefreshToken)
		require.Equal(t, int64(7), *s.UserID)

		_, err := f.storage.Get(context.Background(), sessions.StorageKey(f.clientID(t), sessions.RoleCustomer))
		require.NoError(t, err, "session is persisted")
	})

	t.Run("defaults to the role home", func(t *testing.T) {
		f := newFixture(t)
		resp := f.login(t, "e@x.com", "")
		require.Equal(t, "/main/", resp.location)
	})

	t.Run("ignores external redirect targets", func(t *testing.T) {
		f := newFixture(t)
		resp := f.login(t, "e@x.com", "https://evil.example.com/")
		require.Equal(t, "/main/", resp.location)
	})

	t.Run("temporary user goes to signup completion", func(t *testing.T) {
		f := newFixture(t)
		resp := f.login(t, "temp@x.com", "/main/cart")
		require.Equal(t, "/signup/complete", resp.location)
	})

	t.Run("invalid credentials keep the email", func(t *testing.T) {
		f := newFixture(t)
		resp := f.post(t, "/login", url.Values{"email": {"e@x.com"}, "password": {"wrong"}})
		require.Equal(t, http.StatusUnauthorized, resp.status)
		require.Contains(t, resp.body, "Invalid email or password")
		require.Contains(t, resp.body, `value="e@x.com"`)
		require.Nil(t, f.customerSession(t).AccessToken)
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newFixture(t)
		resp := f.post(t, "/login", url.Values{"email": {"e@x.com"}})
		require.Equal(t, http.StatusBadRequest, resp.status)
	})
}

func TestLoginPage_LoopPrevention(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/login", "/seller/login", "/admin/login"} {
		resp := f.get(t, path)
		require.Equal(t, http.StatusOK, resp.status, path)
	}
}

func TestRolesAreIndependent(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, "/main/", f.login(t, "e@x.com", "").location)

	resp := f.get(t, "/seller/")
	require.Equal(t, http.StatusSeeOther, resp.status)
	require.Equal(t, "/seller/login?redirectTo=%2Fseller%2F", resp.location)

	seller := f.post(t, "/seller/login", url.Values{"email": {"s@x.com"}, "password": {"pw"}})
	require.Equal(t, "/seller/", seller.location)
	require.Equal(t, http.StatusOK, f.get(t, "/seller/").status)

	require.Equal(t, http.StatusSeeOther, f.post(t, "/logout/seller", nil).status)
	require.Equal(t, http.StatusOK, f.get(t, "/main/").status, "customer session survives seller logout")
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	f.login(t, "e@x.com", "")

	resp := f.post(t, "/logout/customer", nil)
	require.Equal(t, http.StatusSeeOther, resp.status)
	require.Equal(t, "/login", resp.location)
	require.Equal(t, sessions.Empty(), f.customerSession(t))

	require.Equal(t, http.StatusSeeOther, f.get(t, "/main/").status)

	require.Equal(t, http.StatusNotFound, f.post(t, "/logout/guest", nil).status)
}

func TestAPIProxy(t *testing.T) {
	t.Run("attaches the role credential", func(t *testing.T) {
		f := newFixture(t)
		f.login(t, "e@x.com", "")

		resp := f.get(t, "/api/customer/customer/orders?page=2")
		require.Equal(t, http.StatusOK, resp.status)
		require.Contains(t, resp.body, `"query":"page=2"`)

		h, ok := f.backend.authHeader("/api/customer/orders")
		require.True(t, ok)
		require.Equal(t, "Bearer T1", h)
	})

	t.Run("public paths carry no credential", func(t *testing.T) {
		f := newFixture(t)
		f.login(t, "e@x.com", "")

		require.Equal(t, http.StatusOK, f.get(t, "/api/customer/public/products").status)
		h, ok := f.backend.authHeader("/api/public/products")
		require.True(t, ok)
		require.Empty(t, h)
	})

	t.Run("401 logs the role out", func(t *testing.T) {
		f := newFixture(t)
		f.login(t, "e@x.com", "")

		resp := f.get(t, "/api/customer/customer/expired")
		require.Equal(t, http.StatusUnauthorized, resp.status)
		require.Nil(t, f.customerSession(t).AccessToken)

		next := f.get(t, "/main/orders")
		require.Equal(t, "/login?redirectTo=%2Fmain%2Forders", next.location)
	})

	t.Run("unknown role", func(t *testing.T) {
		f := newFixture(t)
		require.Equal(t, http.StatusNotFound, f.get(t, "/api/guest/anything").status)
	})
}

func TestDisplayNameFragment(t *testing.T) {
	f := newFixture(t)
	f.login(t, "e@x.com", "")

	first := f.get(t, "/fragments/customer/display-name")
	require.Equal(t, http.StatusOK, first.status)
	require.Contains(t, first.body, "Eve")

	second := f.get(t, "/fragments/customer/display-name")
	require.Contains(t, second.body, "Eve")
	require.Equal(t, int32(1), f.backend.profileHits.Load(), "profile is fetched once")
	require.Equal(t, "Eve", *f.customerSession(t).DisplayName)

	anonymous := f.get(t, "/fragments/seller/display-name")
	require.Equal(t, http.StatusOK, anonymous.status)
	require.NotContains(t, anonymous.body, "Eve")
}

func TestOAuthFlow(t *testing.T) {
	t.Run("returns to the stashed page", func(t *testing.T) {
		f := newFixture(t)

		start := f.get(t, "/oauth2/start/google?redirectTo=%2Fmain%2Fcart")
		require.Equal(t, http.StatusFound, start.status)
		require.Equal(t, f.backend.URL+"/api/oauth2/authorization/google", start.location)

		cb := f.get(t, "/oauth2/callback?token=T&email=e%40x.com")
		require.Equal(t, http.StatusSeeOther, cb.status)
		require.Equal(t, "/main/cart", cb.location)
		require.Equal(t, http.StatusOK, f.get(t, "/main/cart").status)
	})

	t.Run("temporary user completes signup first", func(t *testing.T) {
		f := newFixture(t)
		f.get(t, "/oauth2/start/google?redirectTo=%2Fmain%2Fcart")

		cb := f.get(t, "/oauth2/callback?token=T&email=e%40x.com&temporaryUser=true")
		require.Equal(t, "/signup/complete", cb.location)
		require.True(t, f.customerSession(t).IsTemporaryUser)

		blocked := f.get(t, "/main/cart")
		require.Equal(t, http.StatusSeeOther, blocked.status)
		require.Equal(t, "/signup/complete", blocked.location)

		form := f.get(t, "/signup/complete")
		require.Equal(t, http.StatusOK, form.status)
		require.Contains(t, form.body, "e@x.com")

		invalid := f.post(t, "/signup/complete", url.Values{"name": {"Eve"}})
		require.Equal(t, http.StatusBadRequest, invalid.status)

		done := f.post(t, "/signup/complete", url.Values{"name": {"Eve"}, "phoneNumber": {"010-1234-5678"}})
		require.Equal(t, http.StatusSeeOther, done.status)
		require.Equal(t, "/main/", done.location)

		s := f.customerSession(t)
		require.False(t, s.IsTemporaryUser)
		require.Equal(t, "T", *s.AccessToken)
		require.Equal(t, "Eve", *s.DisplayName)
		require.Equal(t, http.StatusOK, f.get(t, "/main/cart").status)
	})

	t.Run("provider error renders the error page", func(t *testing.T) {
		f := newFixture(t)
		resp := f.get(t, "/oauth2/callback?error=access_denied")
		require.Equal(t, http.StatusBadRequest, resp.status)
		require.Contains(t, resp.body, `href="/login"`)
		require.Nil(t, f.customerSession(t).AccessToken)
	})

	t.Run("missing parameters render the error page", func(t *testing.T) {
		f := newFixture(t)
		resp := f.get(t, "/oauth2/callback?token=T")
		require.Equal(t, http.StatusBadRequest, resp.status)
		require.Nil(t, f.customerSession(t).AccessToken)
	})

	t.Run("unknown provider", func(t *testing.T) {
		f := newFixture(t)
		resp := f.get(t, "/oauth2/start/myspace")
		require.Equal(t, http.StatusSeeOther, resp.status)
		require.True(t, strings.HasPrefix(resp.location, "/login?error="))
	})
}

// stalledStorage never finishes loading until released.
type stalledStorage struct {
	release chan struct{}
}

func (s stalledStorage) Get(ctx context.Context, _ string) ([]byte, error) {
	select {
	case <-s.release:
	case <-ctx.Done():
	}
	return nil, ctx.Err()
}
func (stalledStorage) Set(context.Context, string, []byte) error { return nil }
func (stalledStorage) Remove(context.Context, string) error      { return nil }

func TestProtectedPage_LoadingWhileHydrating(t *testing.T) {
	storage := stalledStorage{release: make(chan struct{})}
	t.Cleanup(func() { close(storage.release) })
	f := setupFixture(t, storage, 20*time.Millisecond)

	resp := f.get(t, "/main/")
	require.Equal(t, http.StatusServiceUnavailable, resp.status)
	require.Equal(t, "1", resp.header.Get("Retry-After"))
	require.Empty(t, resp.location, "no navigation before hydration")
}

func TestIdleBrowserIsEvictedAndRehydrates(t *testing.T) {
	var offset atomic.Int64
	start := time.Now()
	clock := func() time.Time { return start.Add(time.Duration(offset.Load())) }

	f := setupFixture(t, sessions.NewInMemoryStorage(), 2*time.Second,
		sessions.WithIdleTimeout(time.Minute),
		sessions.WithClock(clock),
	)
	require.Equal(t, "/main/", f.login(t, "e@x.com", "").location)
	require.Equal(t, 1, f.registry.Len())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.server.RunSessionSweeper(ctx)

	offset.Store(int64(time.Hour))
	require.Eventually(t, func() bool { return f.registry.Len() == 0 }, time.Second, 5*time.Millisecond)

	page := f.get(t, "/main/")
	require.Equal(t, http.StatusOK, page.status, "session rehydrates from storage")
	require.Equal(t, "T1", *f.customerSession(t).AccessToken)
}

func TestStaticAssets(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/static/site.css")
	require.Equal(t, http.StatusOK, resp.status)
	require.Contains(t, resp.header.Get("Cache-Control"), "max-age=")
	require.NotEmpty(t, resp.body)

	missing := f.get(t, "/static/missing.css")
	require.Equal(t, http.StatusNotFound, missing.status)
}
