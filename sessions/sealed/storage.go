// Package sealed wraps a sessions.Storage so persisted sessions (which carry
// bearer credentials) are encrypted and authenticated at rest.
package sealed

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	apperrors "github.com/jrsteele09/storefront-web/internal/errors"
	"github.com/jrsteele09/storefront-web/sessions"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
	hkdfInfo  = "storefront-web session storage v1"
)

// Storage seals values with NaCl secretbox before handing them to the inner storage.
// Each storage key gets its own sealing key, so a record only opens under the
// key it was written to.
type Storage struct {
	inner sessions.Storage
	prk   []byte
}

var _ sessions.Storage = (*Storage)(nil)

// New extracts the master key from secret with HKDF-SHA256. Per-record keys
// are expanded from it with the storage key as context.
func New(inner sessions.Storage, secret string) (*Storage, error) {
	if secret == "" {
		return nil, fmt.Errorf("[sealed New] secret is required")
	}
	return &Storage{
		inner: inner,
		prk:   hkdf.Extract(sha256.New, []byte(secret), nil),
	}, nil
}

func (s *Storage) recordKey(key string) (*[keySize]byte, error) {
	var k [keySize]byte
	kdf := hkdf.Expand(sha256.New, s.prk, []byte(hkdfInfo+"\x00"+key))
	if _, err := io.ReadFull(kdf, k[:]); err != nil {
		return nil, fmt.Errorf("[sealed recordKey] failed to derive key: %w", err)
	}
	return &k, nil
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	box, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(box) < nonceSize+secretbox.Overhead {
		return nil, apperrors.ErrSealedPayload
	}

	recordKey, err := s.recordKey(key)
	if err != nil {
		return nil, err
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	opened, ok := secretbox.Open(nil, box[nonceSize:], &nonce, recordKey)
	if !ok {
		return nil, apperrors.ErrSealedPayload
	}
	return opened, nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	recordKey, err := s.recordKey(key)
	if err != nil {
		return err
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("[sealed Set] failed to generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], value, &nonce, recordKey)
	return s.inner.Set(ctx, key, box)
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, key)
}
