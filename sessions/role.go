package sessions

import (
	"fmt"

	apperrors "github.com/jrsteele09/storefront-web/internal/errors"
)

// Role identifies which console a session belongs to. Each role keeps an independent session.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
)

// Roles lists every role in a stable order.
var Roles = []Role{RoleCustomer, RoleSeller, RoleAdmin}

func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("[sessions ParseRole] %q: %w", s, apperrors.ErrInvalidRole)
}

// StorageKey is the per-role key a session is persisted under.
func (r Role) StorageKey() string {
	return string(r) + "-auth-storage"
}

// StorageKey scopes a role's storage key to one browser.
func StorageKey(clientID string, role Role) string {
	return clientID + ":" + role.StorageKey()
}
