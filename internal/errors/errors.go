package errors

import (
	"errors"
	"fmt"
)

// Common error types for the storefront frontend
var (
	// Session errors
	ErrInvalidRole = errors.New("invalid role")
	ErrNotHydrated = errors.New("session store not hydrated")

	// Backend errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")

	// OAuth callback errors
	ErrMissingCallbackParams = errors.New("missing callback parameters")
	ErrProviderError         = errors.New("identity provider reported an error")
	ErrStashNotFound         = errors.New("pre-login path not found")

	// Storage errors
	ErrSealedPayload = errors.New("sealed payload could not be opened")

	// General errors
	ErrNotFound = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
