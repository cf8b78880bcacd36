package server

import "github.com/jrsteele09/storefront-web/sessions"

// Route path constants
const (
	RouteIndex = "/"

	// Login pages, one per role
	RouteCustomerLogin = "/login"
	RouteSellerLogin   = "/seller/login"
	RouteAdminLogin    = "/admin/login"
	RouteLogout        = "/logout/{role}"

	// Protected areas, one per role
	RouteCustomerArea = "/main/"
	RouteSellerArea   = "/seller/"
	RouteAdminArea    = "/admin/"

	RouteSignupComplete = "/signup/complete"

	// Social login round trip
	RouteOAuth2Start    = "/oauth2/start/{provider}"
	RouteOAuth2Callback = "/oauth2/callback"

	// HTMX fragments
	RouteDisplayName = "/fragments/{role}/display-name"

	// Browser API calls proxied to the backend with the role's credential
	RouteAPIProxy = "/api/{role}/{path...}"

	RouteStatic = "/static/"
)

// roleRoutes are the pages that belong to one role.
type roleRoutes struct {
	Title          string
	Login          string
	Home           string
	SignupComplete string // empty when the role has no signup completion flow
}

var roleTable = map[sessions.Role]roleRoutes{
	sessions.RoleCustomer: {
		Title:          "Storefront",
		Login:          RouteCustomerLogin,
		Home:           RouteCustomerArea,
		SignupComplete: RouteSignupComplete,
	},
	sessions.RoleSeller: {
		Title: "Seller Console",
		Login: RouteSellerLogin,
		Home:  RouteSellerArea,
	},
	sessions.RoleAdmin: {
		Title: "Admin Console",
		Login: RouteAdminLogin,
		Home:  RouteAdminArea,
	},
}
