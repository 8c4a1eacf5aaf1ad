package services

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/providers"
)

// APIKeyService reads and writes per-user provider credentials. Stored
// values are opaque to this service; at-rest protection is the database's
// concern and the registry receives them verbatim.
type APIKeyService struct {
	db *stdsql.DB
}

// NewAPIKeyService creates an APIKeyService on the shared pool.
func NewAPIKeyService(db *stdsql.DB) *APIKeyService {
	return &APIKeyService{db: db}
}

// SaveKey upserts one credential for a user and provider.
func (s *APIKeyService) SaveKey(ctx context.Context, userID string, provider config.ProviderType, key string) error {
	if userID == "" {
		return NewValidationError("user_id", "required")
	}
	if !provider.IsValid() {
		return NewValidationError("provider", fmt.Sprintf("unknown provider %q", provider))
	}
	if key == "" {
		return NewValidationError("key", "required")
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(writeCtx,
		`INSERT INTO user_api_keys (user_id, provider, encrypted_key, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (user_id, provider)
		DO UPDATE SET encrypted_key = EXCLUDED.encrypted_key, updated_at = now()`,
		userID, string(provider), key)
	if err != nil {
		return fmt.Errorf("failed to save api key: %w", err)
	}
	return nil
}

// DeleteKey removes one credential.
func (s *APIKeyService) DeleteKey(ctx context.Context, userID string, provider config.ProviderType) error {
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := s.db.ExecContext(writeCtx,
		`DELETE FROM user_api_keys WHERE user_id = $1 AND provider = $2`,
		userID, string(provider))
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetKeyForUser returns one stored credential.
func (s *APIKeyService) GetKeyForUser(ctx context.Context, userID string, provider config.ProviderType) (string, error) {
	var key string
	err := s.db.QueryRowContext(ctx,
		`SELECT encrypted_key FROM user_api_keys WHERE user_id = $1 AND provider = $2`,
		userID, string(provider)).Scan(&key)
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get api key: %w", err)
	}
	return key, nil
}

// LoadKeySets aggregates all stored credentials into per-provider key
// sets for Registry.UpdateKeys. The most recently updated key becomes the
// primary; older keys for the same provider become rotation alternates.
// Rows with provider values outside the closed set are skipped.
func (s *APIKeyService) LoadKeySets(ctx context.Context) (map[config.ProviderType]providers.KeySet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider, encrypted_key FROM user_api_keys
		ORDER BY provider, updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load api keys: %w", err)
	}
	defer rows.Close()

	keySets := make(map[config.ProviderType]providers.KeySet)
	for rows.Next() {
		var providerStr, key string
		if err := rows.Scan(&providerStr, &key); err != nil {
			return nil, fmt.Errorf("failed to scan api key row: %w", err)
		}

		provider := config.ProviderType(providerStr)
		if !provider.IsValid() {
			continue
		}

		ks := keySets[provider]
		if ks.Primary == "" {
			ks.Primary = key
		} else {
			ks.Alternates = append(ks.Alternates, key)
		}
		keySets[provider] = ks
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read api keys: %w", err)
	}
	return keySets, nil
}
