package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/storefront-web/internal/errors"
	"github.com/rs/zerolog"
)

// persistTimeout bounds a write-through once it is detached from the caller.
const persistTimeout = 5 * time.Second

// Store is the single source of truth for one role's session in one browser.
//
// Every mutation replaces the whole Session under the lock and is then written
// through to Storage. Storage failures are logged; in-memory state is kept.
type Store struct {
	role    Role
	key     string
	storage Storage
	logger  zerolog.Logger

	mu        sync.RWMutex
	state     Session
	mutated   bool       // set by any mutation, a later hydration must not overwrite it
	persistMu sync.Mutex // keeps writes to storage in mutation order

	hydrateOnce sync.Once
	hydrated    chan struct{}
}

// NewStore creates an empty, not yet hydrated store persisted under key.
func NewStore(role Role, key string, storage Storage, logger zerolog.Logger) *Store {
	return &Store{
		role:     role,
		key:      key,
		storage:  storage,
		logger:   logger.With().Str("role", string(role)).Logger(),
		hydrated: make(chan struct{}),
	}
}

func (s *Store) Role() Role {
	return s.role
}

// Hydrate restores the persisted session. Only the first call does any work.
// The hydration signal fires even if loading fails, in which case the store is
// treated as loaded and empty and the error is returned.
func (s *Store) Hydrate(ctx context.Context) error {
	var err error
	s.hydrateOnce.Do(func() {
		defer close(s.hydrated)

		var loaded Session
		loaded, err = s.load(ctx)
		if err != nil {
			s.logger.Err(err).Msg("Failed to hydrate session, continuing with an empty session")
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.mutated {
			return
		}
		s.state = loaded
	})
	return err
}

func (s *Store) load(ctx context.Context) (Session, error) {
	data, err := s.storage.Get(ctx, s.key)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return Empty(), nil
	}
	if err != nil {
		return Empty(), apperrors.Wrapf(err, "[Store Hydrate] get %s", s.key)
	}
	return decode(data)
}

// Hydrated is closed once hydration has completed.
func (s *Store) Hydrated() <-chan struct{} {
	return s.hydrated
}

func (s *Store) IsHydrated() bool {
	select {
	case <-s.hydrated:
		return true
	default:
		return false
	}
}

// WaitHydrated blocks until hydration completes or ctx is done.
func (s *Store) WaitHydrated(ctx context.Context) error {
	select {
	case <-s.hydrated:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("[Store WaitHydrated] %w: %w", apperrors.ErrNotHydrated, ctx.Err())
	}
}

// SetAuth replaces the session wholesale. Nothing of the previous session survives.
func (s *Store) SetAuth(ctx context.Context, c Credentials) {
	s.apply(ctx, func(Session) Session { return WithAuth(c) })
}

// SetToken changes only the access token.
func (s *Store) SetToken(ctx context.Context, token *string) {
	s.apply(ctx, func(cur Session) Session { return cur.WithToken(token) })
}

// SetDisplayName changes only the display name.
func (s *Store) SetDisplayName(ctx context.Context, name string) {
	s.apply(ctx, func(cur Session) Session { return cur.WithDisplayName(name) })
}

// Logout resets every field. It has no network or routing side effect.
func (s *Store) Logout(ctx context.Context) {
	s.apply(ctx, func(Session) Session { return Empty() })
}

// LogoutIfToken logs out only while the session still holds token, so a
// rejection of a stale credential cannot clear a newer login. It reports
// whether the session was cleared.
func (s *Store) LogoutIfToken(ctx context.Context, token *string) bool {
	cleared := false
	s.applyIf(ctx, func(cur Session) (Session, bool) {
		if !sameToken(cur.AccessToken, token) {
			return cur, false
		}
		cleared = true
		return Empty(), true
	})
	return cleared
}

func sameToken(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// IsAuthenticated reports whether an access token is held. It never blocks on I/O.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Authenticated()
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

func (s *Store) apply(ctx context.Context, transition func(Session) Session) {
	s.applyIf(ctx, func(cur Session) (Session, bool) { return transition(cur), true })
}

// applyIf is apply for transitions that may decide not to change anything.
func (s *Store) applyIf(ctx context.Context, transition func(Session) (Session, bool)) {
	s.mu.Lock()
	next, changed := transition(s.state)
	if !changed {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.mutated = true
	s.persistMu.Lock()
	s.mu.Unlock()

	defer s.persistMu.Unlock()

	// A canceled caller must not leave storage behind memory, otherwise a
	// logged out session comes back on the next hydration.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	s.persist(persistCtx, next)
}

func (s *Store) persist(ctx context.Context, state Session) {
	if state == Empty() {
		if err := s.storage.Remove(ctx, s.key); err != nil {
			s.logger.Err(err).Msg("Failed to remove persisted session")
		}
		return
	}

	data, err := encode(state)
	if err != nil {
		s.logger.Err(err).Msg("Failed to encode session")
		return
	}
	if err := s.storage.Set(ctx, s.key, data); err != nil {
		s.logger.Err(err).Msg("Failed to persist session")
	}
}
