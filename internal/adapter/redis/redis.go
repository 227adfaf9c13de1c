// Package redis persists client tokens in Redis, using key TTLs for expiry.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"invoicegen/internal/domain"
)

const keyPrefix = "client_token:"

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Store implements domain.TokenStore.
type Store struct {
	client *goredis.Client
}

var _ domain.TokenStore = (*Store)(nil)

// Open connects to Redis and pings it.
func Open(ctx context.Context, opts Options) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{client: client}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

func key(clientID string) string {
	return keyPrefix + clientID
}

// Get returns the client's token, or "" when the key is absent or expired.
func (s *Store) Get(ctx context.Context, clientID string) (string, error) {
	tok, err := s.client.Get(ctx, key(clientID)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return tok, nil
}

// Set stores the token with a TTL running to expiresAt. A zero expiresAt
// never expires; one already in the past deletes the key.
func (s *Store) Set(ctx context.Context, clientID, token string, expiresAt time.Time) error {
	var ttl time.Duration
	if !expiresAt.IsZero() {
		ttl = time.Until(expiresAt)
		if ttl <= 0 {
			return s.Delete(ctx, clientID)
		}
	}
	return s.client.Set(ctx, key(clientID), token, ttl).Err()
}

// Delete removes the client's token.
func (s *Store) Delete(ctx context.Context, clientID string) error {
	return s.client.Del(ctx, key(clientID)).Err()
}

// DeleteExpired is a no-op; Redis evicts expired keys itself.
func (s *Store) DeleteExpired(ctx context.Context) error {
	return nil
}
