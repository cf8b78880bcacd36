package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	apperrors "github.com/jrsteele09/storefront-web/internal/errors"
)

// Storage is durable key/value storage for serialized sessions.
// Get returns apperrors.ErrNotFound when the key is absent.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

func encode(s Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("[sessions encode] %w", err)
	}
	return data, nil
}

func decode(data []byte) (Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("[sessions decode] %w", err)
	}
	return s, nil
}

// InMemoryStorage is a thread-safe Storage kept in process memory.
type InMemoryStorage struct {
	mu     sync.RWMutex
	values map[string][]byte
}

var _ Storage = (*InMemoryStorage)(nil)

func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		values: make(map[string][]byte),
	}
}

func (m *InMemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *InMemoryStorage) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *InMemoryStorage) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}
