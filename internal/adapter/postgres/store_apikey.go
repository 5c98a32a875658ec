package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/taskpilot/taskpilot/internal/domain/user"
)

const apiKeyColumns = `id, user_id, name, prefix, key_hash, scopes, expires_at, created_at`

// scanAPIKey maps a row onto user.APIKey, translating a NULL expiry into
// the zero time so APIKey.Expired treats it as non-expiring.
func scanAPIKey(row scannable) (user.APIKey, error) {
	var k user.APIKey
	var expires *time.Time
	err := row.Scan(&k.ID, &k.UserID, &k.Name, &k.Prefix, &k.KeyHash, &k.Scopes, &expires, &k.CreatedAt)
	if err == nil && expires != nil {
		k.ExpiresAt = *expires
	}
	return k, err
}

func (s *Store) CreateAPIKey(ctx context.Context, k *user.APIKey) error {
	var expires *time.Time
	if !k.ExpiresAt.IsZero() {
		expires = &k.ExpiresAt
	}

	err := withRetry(ctx, func(ctx context.Context) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO api_keys (id, user_id, name, prefix, key_hash, scopes, expires_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING created_at`,
			k.ID, k.UserID, k.Name, k.Prefix, k.KeyHash, k.Scopes, expires,
		).Scan(&k.CreatedAt)
	})
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*user.APIKey, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = $1`,
		keyHash)
	k, err := scanAPIKey(row)
	if err != nil {
		return nil, notFoundWrap(err, "get api key")
	}
	return &k, nil
}

func (s *Store) ListAPIKeys(ctx context.Context, userID string) ([]user.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var result []user.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		result = append(result, k)
	}
	return result, rows.Err()
}

func (s *Store) DeleteAPIKey(ctx context.Context, id, userID string) error {
	err := withRetry(ctx, func(ctx context.Context) error {
		tag, err := s.pool.Exec(ctx,
			`DELETE FROM api_keys WHERE id = $1 AND user_id = $2`,
			id, userID)
		return execExpectOne(tag, err, "api key %s", id)
	})
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	return nil
}
