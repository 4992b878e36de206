package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/storage"
)

func scanScope(row interface{ Scan(dest ...any) error }) (*models.Scope, error) {
	scope := &models.Scope{}
	err := row.Scan(&scope.ID, &scope.Name, &scope.Description, &scope.Value)
	return scope, err
}

// CreateScope inserts a scope
func (s *Storage) CreateScope(ctx context.Context, scope *models.Scope) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO scopes (name, description, value)
		VALUES (?, ?, ?)
		RETURNING id
	`

	if err := s.queryRow(ctx, query, scope.Name, scope.Description, scope.Value).Scan(&scope.ID); err != nil {
		return fmt.Errorf("failed to insert scope: %w", s.mapError(err))
	}

	return nil
}

// EnsureScope creates the scope unless its value is already taken
func (s *Storage) EnsureScope(ctx context.Context, scope *models.Scope) (bool, error) {
	existing, err := s.GetScopeByValue(ctx, scope.Value)
	if err == nil {
		*scope = *existing
		return false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}

	if err := s.CreateScope(ctx, scope); err != nil {
		return false, err
	}
	return true, nil
}

// GetScopeByID retrieves scope by ID
func (s *Storage) GetScopeByID(ctx context.Context, id int64) (*models.Scope, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	scope, err := scanScope(s.queryRow(ctx, `SELECT id, name, description, value FROM scopes WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scope: %w", s.mapError(err))
	}

	return scope, nil
}

// GetScopeByValue retrieves scope by its scope string value
func (s *Storage) GetScopeByValue(ctx context.Context, value string) (*models.Scope, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	scope, err := scanScope(s.queryRow(ctx, `SELECT id, name, description, value FROM scopes WHERE value = ?`, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scope: %w", s.mapError(err))
	}

	return scope, nil
}

// ListScopes returns all scopes ordered by ID
func (s *Storage) ListScopes(ctx context.Context) ([]*models.Scope, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.query(ctx, `SELECT id, name, description, value FROM scopes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query scopes: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var scopes []*models.Scope
	for rows.Next() {
		scope, err := scanScope(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scope: %w", err)
		}
		scopes = append(scopes, scope)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", s.mapError(err))
	}

	return scopes, nil
}

// UpdateScope updates name and description, the value is immutable
func (s *Storage) UpdateScope(ctx context.Context, scope *models.Scope) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.exec(ctx, `UPDATE scopes SET name = ?, description = ? WHERE id = ?`,
		scope.Name, scope.Description, scope.ID)
	if err != nil {
		return fmt.Errorf("failed to update scope: %w", err)
	}

	return affected(result, storage.ErrNotFound)
}

// DeleteScope deletes scope, FK cascade removes it from accounts, roles and token snapshots
func (s *Storage) DeleteScope(ctx context.Context, id int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.exec(ctx, `DELETE FROM scopes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scope: %w", err)
	}

	return affected(result, storage.ErrNotFound)
}
