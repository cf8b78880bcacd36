package server

import (
	"net/http"

	"github.com/jrsteele09/storefront-web/guard"
	apperrors "github.com/jrsteele09/storefront-web/internal/errors"
	"github.com/jrsteele09/storefront-web/sessions"
	"github.com/rs/zerolog/log"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName       string
	Title         string
	Action        string
	RedirectTo    string
	Error         string
	Email         string // Preserve email on error
	LoginRequired bool
	Providers     []string
}

func (s *Server) loginPageData(role sessions.Role) LoginPageData {
	data := LoginPageData{
		AppName: s.config.GetAppName(),
		Title:   roleTable[role].Title + " sign in",
		Action:  roleTable[role].Login,
	}
	if role == sessions.RoleCustomer {
		data.Providers = s.config.GetOAuthProviders()
	}
	return data
}

// LoginPageUIHandler displays the login page for role
func (s *Server) LoginPageUIHandler(role sessions.Role) http.HandlerFunc {
	tmpl := mustParseTemplate("login.html")
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.loginPageData(role)
		data.RedirectTo = safeRedirect(r.URL.Query().Get(guard.RedirectParam), "")
		data.Email = r.URL.Query().Get("email")
		data.Error = r.URL.Query().Get("error")
		data.LoginRequired = takeFlash(w, r) == flashLoginRequired
		renderTemplate(w, http.StatusOK, tmpl, data)
	}
}

// LoginSubmissionHandler exchanges the submitted credentials with the backend
// and stores the resulting session for role.
func (s *Server) LoginSubmissionHandler(role sessions.Role) http.HandlerFunc {
	tmpl := mustParseTemplate("login.html")
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		email := r.FormValue("email")
		password := r.FormValue("password")
		redirectTo := safeRedirect(r.FormValue(guard.RedirectParam), "")

		renderError := func(status int, msg string) {
			data := s.loginPageData(role)
			data.RedirectTo = redirectTo
			data.Email = email
			data.Error = msg
			renderTemplate(w, status, tmpl, data)
		}

		if email == "" || password == "" {
			renderError(http.StatusBadRequest, "Email and password are required")
			return
		}

		store := s.sessionStore(r, role)
		client, err := s.apiClient(role, store)
		if err != nil {
			log.Err(err).Msg("Failed to create backend client")
			renderError(http.StatusInternalServerError, "Sign in is unavailable, please try again")
			return
		}

		resp, err := client.Login(r.Context(), email, password)
		if apperrors.Is(err, apperrors.ErrInvalidCredentials) {
			renderError(http.StatusUnauthorized, "Invalid email or password")
			return
		}
		if err != nil {
			log.Err(err).Str("role", string(role)).Msg("Login failed")
			renderError(http.StatusBadGateway, "Sign in is unavailable, please try again")
			return
		}

		store.SetAuth(r.Context(), resp.Credentials())

		rr := roleTable[role]
		if resp.TemporaryUser && rr.SignupComplete != "" {
			redirectSuccess(w, r, rr.SignupComplete)
			return
		}
		redirectSuccess(w, r, safeRedirect(redirectTo, rr.Home))
	}
}

// LogoutHandler clears the role's session and returns to its login page
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role, err := sessions.ParseRole(r.PathValue("role"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		s.sessionStore(r, role).Logout(r.Context())
		redirectSuccess(w, r, roleTable[role].Login)
	}
}
