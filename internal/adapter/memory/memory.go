// Package memory implements in-memory adapters for development and testing.
package memory

import (
	"context"
	"sync"
	"time"

	"invoicegen/internal/domain"
)

// DB implements an in-memory token store.
type DB struct {
	mu     sync.Mutex
	tokens map[string]domain.StoredToken
	now    func() time.Time
}

// New creates a new in-memory token store.
func New() *DB {
	return &DB{
		tokens: make(map[string]domain.StoredToken),
		now:    time.Now,
	}
}

// Ensure interfaces are met.
var _ domain.TokenStore = (*DB)(nil)

// Get returns the client's token, or "" when none is stored or it expired.
func (db *DB) Get(ctx context.Context, clientID string) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, ok := db.tokens[clientID]
	if !ok {
		return "", nil
	}
	if !t.ExpiresAt.IsZero() && db.now().After(t.ExpiresAt) {
		delete(db.tokens, clientID)
		return "", nil
	}
	return t.Token, nil
}

// Set stores or replaces the client's token.
func (db *DB) Set(ctx context.Context, clientID, token string, expiresAt time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.tokens[clientID] = domain.StoredToken{
		ClientID:  clientID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: db.now().UTC(),
	}
	return nil
}

// Delete removes the client's token.
func (db *DB) Delete(ctx context.Context, clientID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.tokens, clientID)
	return nil
}

// DeleteExpired removes all expired tokens.
func (db *DB) DeleteExpired(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	now := db.now()
	for k, v := range db.tokens {
		if !v.ExpiresAt.IsZero() && now.After(v.ExpiresAt) {
			delete(db.tokens, k)
		}
	}
	return nil
}

// Len returns the number of stored tokens.
func (db *DB) Len() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.tokens)
}
