// Package prelogin stashes the page a browser was on before it left for an
// external identity provider, so the OAuth callback can send it back there.
package prelogin

import (
	"context"
	"time"
)

// Repo is short-lived, browser scoped storage for a single path.
type Repo interface {
	// Put stores path for key, replacing any previous value, until ttl elapses.
	Put(ctx context.Context, key, path string, ttl time.Duration) error
	// Take returns and deletes the path for key. A missing or expired entry
	// returns apperrors.ErrStashNotFound.
	Take(ctx context.Context, key string) (string, error)
}
