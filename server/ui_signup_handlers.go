package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/storefront-web/guard"
	apperrors "github.com/jrsteele09/storefront-web/internal/errors"
	"github.com/jrsteele09/storefront-web/internal/utils"
	"github.com/jrsteele09/storefront-web/sessions"
	"github.com/rs/zerolog/log"
)

// SignupPageData is the template model for the signup completion page
type SignupPageData struct {
	AppName     string
	Title       string
	Email       string
	Name        string
	PhoneNumber string
	Error       string
}

// SignupCompleteGetHandler shows the registration form a temporary user has to
// fill in. Members who are already registered are sent home.
func (s *Server) SignupCompleteGetHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("signup_complete.html")
	return func(w http.ResponseWriter, r *http.Request) {
		session := storeFromContext(r.Context()).Snapshot()
		if !session.IsTemporaryUser {
			redirectSuccess(w, r, roleTable[sessions.RoleCustomer].Home)
			return
		}
		renderTemplate(w, http.StatusOK, tmpl, SignupPageData{
			AppName: s.config.GetAppName(),
			Title:   "Complete registration",
			Email:   utils.Value(session.Email),
		})
	}
}

// SignupCompletePostHandler forwards the registration form to the backend and,
// once accepted, lifts the temporary restriction from the session.
func (s *Server) SignupCompletePostHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("signup_complete.html")
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		store := storeFromContext(r.Context())
		session := store.Snapshot()
		data := SignupPageData{
			AppName:     s.config.GetAppName(),
			Title:       "Complete registration",
			Email:       utils.Value(session.Email),
			Name:        strings.TrimSpace(r.FormValue("name")),
			PhoneNumber: strings.TrimSpace(r.FormValue("phoneNumber")),
		}
		if data.Name == "" || data.PhoneNumber == "" {
			data.Error = "Name and phone number are required"
			renderTemplate(w, http.StatusBadRequest, tmpl, data)
			return
		}

		client, err := s.apiClient(sessions.RoleCustomer, store)
		if err != nil {
			log.Err(err).Msg("Failed to create backend client")
			data.Error = "Registration is unavailable, please try again"
			renderTemplate(w, http.StatusInternalServerError, tmpl, data)
			return
		}

		err = client.CompleteSignup(r.Context(), s.config.GetSignupCompletePath(), map[string]string{
			"name":        data.Name,
			"phoneNumber": data.PhoneNumber,
		})
		if apperrors.Is(err, apperrors.ErrUnauthorized) {
			// The transport has already logged the session out.
			setFlash(w, r, flashLoginRequired)
			redirectSuccess(w, r, guard.LoginURL(RouteCustomerLogin, RouteSignupComplete))
			return
		}
		if err != nil {
			log.Err(err).Msg("Signup completion failed")
			data.Error = "Registration could not be completed, please try again"
			renderTemplate(w, http.StatusBadGateway, tmpl, data)
			return
		}

		store.SetAuth(r.Context(), sessions.Credentials{
			AccessToken:   session.AccessToken,
			RefreshToken:  session.RefreshToken,
			UserID:        session.UserID,
			Email:         session.Email,
			DisplayName:   utils.Ptr(data.Name),
			TemporaryUser: false,
		})
		redirectSuccess(w, r, roleTable[sessions.RoleCustomer].Home)
	}
}
