// Package sealed encrypts tokens at rest on top of another TokenStore.
package sealed

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"

	"invoicegen/internal/domain"
)

const (
	keySize   = 32
	nonceSize = 24
	keyInfo   = "invoicegen client token v1"
)

var errOpen = errors.New("sealed: token could not be opened")

// Store seals tokens with NaCl secretbox before handing them to the
// underlying store.
type Store struct {
	next domain.TokenStore
	key  [keySize]byte
}

var _ domain.TokenStore = (*Store)(nil)

// New derives the sealing key from secret with HKDF-SHA256.
func New(next domain.TokenStore, secret string) (*Store, error) {
	if secret == "" {
		return nil, errors.New("sealed: empty secret")
	}
	s := &Store{next: next}
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo))
	if _, err := io.ReadFull(r, s.key[:]); err != nil {
		return nil, fmt.Errorf("sealed: derive key: %w", err)
	}
	return s, nil
}

func (s *Store) seal(plain string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}
	out := secretbox.Seal(nonce[:], []byte(plain), &nonce, &s.key)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

func (s *Store) open(sealed string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(b) < nonceSize+secretbox.Overhead {
		return "", errOpen
	}
	var nonce [nonceSize]byte
	copy(nonce[:], b[:nonceSize])
	plain, ok := secretbox.Open(nil, b[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", errOpen
	}
	return string(plain), nil
}

// Get opens the stored token. A value that fails to open, for example one
// sealed under a rotated key, is deleted and reads as absent.
func (s *Store) Get(ctx context.Context, clientID string) (string, error) {
	v, err := s.next.Get(ctx, clientID)
	if err != nil || v == "" {
		return "", err
	}
	tok, err := s.open(v)
	if err != nil {
		if derr := s.next.Delete(ctx, clientID); derr != nil {
			return "", derr
		}
		return "", nil
	}
	return tok, nil
}

// Set seals token and stores it.
func (s *Store) Set(ctx context.Context, clientID, token string, expiresAt time.Time) error {
	v, err := s.seal(token)
	if err != nil {
		return fmt.Errorf("sealed: %w", err)
	}
	return s.next.Set(ctx, clientID, v, expiresAt)
}

// Delete removes the client's token from the wrapped store.
func (s *Store) Delete(ctx context.Context, clientID string) error {
	return s.next.Delete(ctx, clientID)
}

// DeleteExpired delegates the sweep to the wrapped store.
func (s *Store) DeleteExpired(ctx context.Context) error {
	return s.next.DeleteExpired(ctx)
}
