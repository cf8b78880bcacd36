package apiclient

import (
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/storefront-web/internal/errors"
	"github.com/jrsteele09/storefront-web/sessions"
)

// Endpoints are the role specific backend paths, relative to the base URL.
type Endpoints struct {
	Login   string
	Profile string
}

// DefaultEndpoints returns the conventional backend paths for role.
func DefaultEndpoints(role sessions.Role) Endpoints {
	switch role {
	case sessions.RoleSeller:
		return Endpoints{Login: "/public/auth/seller/login", Profile: "/seller/member/me"}
	case sessions.RoleAdmin:
		return Endpoints{Login: "/public/auth/admin/login", Profile: "/admin/member/me"}
	default:
		return Endpoints{Login: "/public/auth/login", Profile: "/customer/member/me"}
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the backend's answer to a successful login.
type LoginResponse struct {
	AccessToken   string  `json:"accessToken"`
	RefreshToken  *string `json:"refreshToken"`
	Email         string  `json:"email"`
	Name          string  `json:"name"`
	ID            int64   `json:"id"`
	TemporaryUser bool    `json:"temporaryUser"`
}

// Credentials converts the response into what sessions.Store.SetAuth expects.
func (r LoginResponse) Credentials() sessions.Credentials {
	c := sessions.Credentials{
		AccessToken:   &r.AccessToken,
		RefreshToken:  r.RefreshToken,
		UserID:        &r.ID,
		Email:         &r.Email,
		TemporaryUser: r.TemporaryUser,
	}
	if r.Name != "" {
		c.DisplayName = &r.Name
	}
	return c
}

// Profile is the subset of the member profile the frontend uses.
type Profile struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// StatusError reports a non-2xx backend response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: backend responded %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap lets callers match 401 responses with errors.Is(err, apperrors.ErrUnauthorized).
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return apperrors.ErrUnauthorized
	}
	return nil
}
