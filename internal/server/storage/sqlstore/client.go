package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/storage"
)

// UpsertClientCredential creates or replaces message bus client credentials
func (s *Storage) UpsertClientCredential(ctx context.Context, client *models.ClientCredential) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO client_credentials (client_id, secret_hash, description, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (client_id) DO UPDATE
		SET secret_hash = excluded.secret_hash, description = excluded.description
		RETURNING id
	`

	err := s.queryRow(ctx, query,
		client.ClientID,
		client.SecretHash,
		client.Description,
		client.CreatedAt,
	).Scan(&client.ID)
	if err != nil {
		return fmt.Errorf("failed to save client credential: %w", s.mapError(err))
	}

	return nil
}

// GetClientCredential retrieves client credentials by client_id
func (s *Storage) GetClientCredential(ctx context.Context, clientID string) (*models.ClientCredential, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, client_id, secret_hash, description, created_at
		FROM client_credentials
		WHERE client_id = ?
	`

	client := &models.ClientCredential{}
	err := s.queryRow(ctx, query, clientID).Scan(
		&client.ID,
		&client.ClientID,
		&client.SecretHash,
		&client.Description,
		&client.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get client credential: %w", s.mapError(err))
	}

	return client, nil
}
