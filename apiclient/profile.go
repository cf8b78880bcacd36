package apiclient

import (
	"context"

	"github.com/jrsteele09/storefront-web/sessions"
	"github.com/rs/zerolog"
)

// ProfileFetcher is implemented by Client.
type ProfileFetcher interface {
	Me(ctx context.Context) (*Profile, error)
}

// DisplayNameStore is the slice of a sessions.Store the lazy profile fetch needs.
type DisplayNameStore interface {
	Snapshot() sessions.Session
	SetDisplayName(ctx context.Context, name string)
}

// LoadDisplayName populates the session's display name from the backend
// profile if the session is authenticated and has none yet. It returns the
// name to show, empty when unknown. Failures are logged, never returned; a
// missing display name only degrades what the page shows.
func LoadDisplayName(ctx context.Context, fetcher ProfileFetcher, store DisplayNameStore, logger zerolog.Logger) string {
	current := store.Snapshot()
	if !current.Authenticated() {
		return ""
	}
	if current.DisplayName != nil {
		return *current.DisplayName
	}

	profile, err := fetcher.Me(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Profile fetch failed, display name left empty")
		return ""
	}

	// The session may have changed (logout, new login) while the fetch was in flight.
	latest := store.Snapshot()
	if !latest.Authenticated() || *latest.AccessToken != *current.AccessToken {
		return ""
	}
	store.SetDisplayName(ctx, profile.Name)
	return profile.Name
}
