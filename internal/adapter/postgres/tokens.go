package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"invoicegen/internal/domain"
)

var _ domain.TokenStore = (*DB)(nil)

// Get returns the client's unexpired token, or "" when there is none.
func (d *DB) Get(ctx context.Context, clientID string) (string, error) {
	var token string
	err := d.sql.QueryRowContext(ctx,
		"SELECT token FROM client_tokens WHERE client_id = $1 AND (expires_at IS NULL OR expires_at > $2)",
		clientID, d.now(),
	).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// Set stores or replaces the client's token. A zero expiresAt never expires.
func (d *DB) Set(ctx context.Context, clientID, token string, expiresAt time.Time) error {
	var exp sql.NullTime
	if !expiresAt.IsZero() {
		exp = sql.NullTime{Time: expiresAt.UTC(), Valid: true}
	}
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO client_tokens (client_id, token, expires_at, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (client_id) DO UPDATE SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at`,
		clientID, token, exp, d.now().UTC(),
	)
	return err
}

// Delete removes the client's token.
func (d *DB) Delete(ctx context.Context, clientID string) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM client_tokens WHERE client_id = $1", clientID)
	return err
}

// DeleteExpired deletes all expired tokens.
func (d *DB) DeleteExpired(ctx context.Context) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM client_tokens WHERE expires_at IS NOT NULL AND expires_at <= $1", d.now())
	return err
}
