package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// APIKeyStore manages the api_keys table. Only HMAC hashes are stored;
// the plaintext key is shown once at creation.
type APIKeyStore struct {
	queries *Queries
}

// NewAPIKeyStore creates a store over loaded queries.
func NewAPIKeyStore(queries *Queries) *APIKeyStore {
	return &APIKeyStore{queries: queries}
}

// CreateAPIKey records keyHash for accountID and returns the new key's ID.
func (s *APIKeyStore) CreateAPIKey(ctx context.Context, accountID string, keyHash []byte) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate api key id: %w", err)
	}
	if _, err := s.queries.ExecContext(ctx, "insert-api-key", id.String(), accountID, keyHash, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("insert api key: %w", err)
	}
	return id.String(), nil
}

// RevokeAPIKey marks a key revoked. Revoking twice is not an error;
// an unknown ID is.
func (s *APIKeyStore) RevokeAPIKey(ctx context.Context, apiKeyID string) error {
	res, err := s.queries.ExecContext(ctx, "revoke-api-key", time.Now().UTC(), apiKeyID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var exists struct {
			APIKeyID string `db:"api_key_id"`
		}
		if err := s.queries.GetContext(ctx, "get-api-key-by-id", &exists, apiKeyID); err != nil {
			return fmt.Errorf("revoke api key %s: %w", apiKeyID, err)
		}
	}
	return nil
}
