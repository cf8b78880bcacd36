package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Stores holds one independent Store per role for a single browser.
type Stores struct {
	clientID string
	byRole   map[Role]*Store
	lastSeen time.Time // guarded by Registry.mu
}

func (s *Stores) ClientID() string {
	return s.clientID
}

// For returns the store for role. Unknown roles return nil.
func (s *Stores) For(role Role) *Store {
	return s.byRole[role]
}

// Registry lazily creates the per-browser Stores and starts their hydration.
// Clients not seen for the idle timeout are dropped by EvictIdle; their
// persisted records are kept and rehydrate on the next Get.
type Registry struct {
	storage        Storage
	logger         zerolog.Logger
	hydrateTimeout time.Duration
	idleTimeout    time.Duration
	now            func() time.Time

	mu      sync.Mutex
	clients map[string]*Stores
}

// RegistryOption modifies a Registry at construction.
type RegistryOption func(*Registry)

// WithHydrateTimeout bounds each background hydration.
func WithHydrateTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.hydrateTimeout = d
	}
}

// WithIdleTimeout sets how long a client may go unseen before EvictIdle drops it.
func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.idleTimeout = d
	}
}

// WithClock replaces time.Now for idle tracking.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

func NewRegistry(storage Storage, logger zerolog.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		storage:        storage,
		logger:         logger,
		hydrateTimeout: 10 * time.Second,
		idleTimeout:    30 * time.Minute,
		now:            time.Now,
		clients:        make(map[string]*Stores),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the stores for clientID, creating them on first use. Newly created
// stores hydrate in the background; callers observe that through Store.Hydrated.
func (r *Registry) Get(clientID string) *Stores {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if stores, ok := r.clients[clientID]; ok {
		stores.lastSeen = now
		return stores
	}

	stores := &Stores{
		clientID: clientID,
		byRole:   make(map[Role]*Store, len(Roles)),
		lastSeen: now,
	}
	logger := r.logger.With().Str("client_id", clientID).Logger()
	for _, role := range Roles {
		store := NewStore(role, StorageKey(clientID, role), r.storage, logger)
		stores.byRole[role] = store
		go r.hydrate(store)
	}
	r.clients[clientID] = stores
	return stores
}

// Forget drops the in-memory stores for clientID. Persisted records are kept.
func (r *Registry) Forget(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, clientID)
}

// Len reports how many clients are held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// EvictIdle drops every client not seen within the idle timeout and returns
// how many were dropped.
func (r *Registry) EvictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idleTimeout)
	evicted := 0
	for clientID, stores := range r.clients {
		if stores.lastSeen.Before(cutoff) {
			delete(r.clients, clientID)
			evicted++
		}
	}
	return evicted
}

// Run calls EvictIdle every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.EvictIdle(); n > 0 {
				r.logger.Debug().Int("evicted", n).Int("remaining", r.Len()).Msg("Evicted idle session clients")
			}
		}
	}
}

func (r *Registry) hydrate(store *Store) {
	ctx, cancel := context.WithTimeout(context.Background(), r.hydrateTimeout)
	defer cancel()
	_ = store.Hydrate(ctx)
}
