package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/internal/domain"
	"github.com/taskpilot/taskpilot/internal/domain/user"
)

// apiKeyRandomBytes sizes the secret part of a generated key (hex-encoded).
const apiKeyRandomBytes = 24

// CreateAPIKey mints a new API key for userID. The plain key is returned
// exactly once; only its SHA-256 hash is stored.
func (s *AuthService) CreateAPIKey(ctx context.Context, userID string, req *user.CreateAPIKeyRequest) (*user.CreateAPIKeyResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, apiKeyRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	plain := user.APIKeyPrefix + hex.EncodeToString(buf)

	k := &user.APIKey{
		ID:      uuid.NewString(),
		UserID:  userID,
		Name:    req.Name,
		Prefix:  plain[:8],
		KeyHash: hashAPIKey(plain),
		Scopes:  req.Scopes,
	}
	if req.ExpiresIn > 0 {
		k.ExpiresAt = time.Now().Add(time.Duration(req.ExpiresIn) * time.Second)
	}

	if err := s.store.CreateAPIKey(ctx, k); err != nil {
		return nil, fmt.Errorf("store api key: %w", err)
	}

	return &user.CreateAPIKeyResponse{APIKey: *k, PlainKey: plain}, nil
}

// ValidateAPIKey resolves a plain API key to its owning user and the key
// record, rejecting unknown, expired, and disabled-account keys.
func (s *AuthService) ValidateAPIKey(ctx context.Context, plain string) (*user.User, *user.APIKey, error) {
	k, err := s.store.GetAPIKeyByHash(ctx, hashAPIKey(plain))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, errors.New("unknown api key")
		}
		return nil, nil, fmt.Errorf("look up api key: %w", err)
	}

	if k.Expired(time.Now()) {
		return nil, nil, errors.New("api key expired")
	}

	u, err := s.store.GetUser(ctx, k.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("load key owner: %w", err)
	}
	if !u.Enabled {
		return nil, nil, errors.New("account is disabled")
	}

	return u, k, nil
}

// ListAPIKeys returns the user's API keys, newest first.
func (s *AuthService) ListAPIKeys(ctx context.Context, userID string) ([]user.APIKey, error) {
	return s.store.ListAPIKeys(ctx, userID)
}

// DeleteAPIKey revokes one of the user's API keys.
func (s *AuthService) DeleteAPIKey(ctx context.Context, id, userID string) error {
	return s.store.DeleteAPIKey(ctx, id, userID)
}

func hashAPIKey(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
