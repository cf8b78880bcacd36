package config

import (
	"strings"
	"time"
)

// BackendConfig describes the remote REST API all business logic lives behind.
type BackendConfig interface {
	GetBackendBaseURL() string
	GetBackendTimeout() time.Duration
	GetPublicPaths() []string
	GetOAuthAuthorizeURL(provider string) string
	GetOAuthProviders() []string
	GetSignupCompletePath() string
}

type Backend struct{}

var _ BackendConfig = Backend{}

func (Backend) GetBackendBaseURL() string {
	return strings.TrimSuffix(GetEnv("BACKEND_BASE_URL", "http://localhost:9000/api"), "/")
}

func (Backend) GetBackendTimeout() time.Duration {
	return GetEnvDuration("BACKEND_TIMEOUT", 30*time.Second)
}

// GetPublicPaths returns the backend path prefixes that never carry a bearer credential.
func (Backend) GetPublicPaths() []string {
	return GetEnvList("BACKEND_PUBLIC_PATHS", []string{"/public/"})
}

// GetOAuthAuthorizeURL returns where the browser is sent to start a social login with provider.
func (b Backend) GetOAuthAuthorizeURL(provider string) string {
	return b.GetBackendBaseURL() + "/oauth2/authorization/" + provider
}

// GetOAuthProviders lists the social login providers offered on the customer login page.
func (Backend) GetOAuthProviders() []string {
	return GetEnvList("OAUTH_PROVIDERS", []string{"google", "kakao", "naver"})
}

func (Backend) GetSignupCompletePath() string {
	return GetEnv("BACKEND_SIGNUP_COMPLETE_PATH", "/customer/member/complete-signup")
}
