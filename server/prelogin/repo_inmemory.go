package prelogin

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/storefront-web/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

type entry struct {
	path      string
	expiresAt time.Time
}

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu      sync.Mutex
	entries map[string]entry
}

var _ Repo = (*InMemoryRepo)(nil)

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		entries: make(map[string]entry),
	}
}

func (r *InMemoryRepo) Put(_ context.Context, key, path string, ttl time.Duration) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.purgeExpired()
	r.entries[key] = entry{path: path, expiresAt: NowTimeFunc().Add(ttl)}
	return nil
}

func (r *InMemoryRepo) Take(_ context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		return "", apperrors.ErrStashNotFound
	}
	delete(r.entries, key)

	if !NowTimeFunc().Before(e.expiresAt) {
		return "", apperrors.ErrStashNotFound
	}
	return e.path, nil
}

// purgeExpired must be called with mu held.
func (r *InMemoryRepo) purgeExpired() {
	now := NowTimeFunc()
	for k, e := range r.entries {
		if !now.Before(e.expiresAt) {
			delete(r.entries, k)
		}
	}
}
