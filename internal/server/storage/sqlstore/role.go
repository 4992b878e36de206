package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/storage"
)

// CreateRole inserts a role
func (s *Storage) CreateRole(ctx context.Context, role *models.Role) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO roles (name, description)
		VALUES (?, ?)
		RETURNING id
	`

	if err := s.queryRow(ctx, query, role.Name, role.Description).Scan(&role.ID); err != nil {
		return fmt.Errorf("failed to insert role: %w", s.mapError(err))
	}

	return nil
}

// GetRoleByID retrieves role with its scopes by ID
func (s *Storage) GetRoleByID(ctx context.Context, id int64) (*models.Role, error) {
	return s.getRole(ctx, `SELECT id, name, description FROM roles WHERE id = ?`, id)
}

// GetRoleByName retrieves role with its scopes by name
func (s *Storage) GetRoleByName(ctx context.Context, name string) (*models.Role, error) {
	return s.getRole(ctx, `SELECT id, name, description FROM roles WHERE name = ?`, name)
}

func (s *Storage) getRole(ctx context.Context, query string, arg any) (*models.Role, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	role := &models.Role{}
	if err := s.queryRow(ctx, query, arg).Scan(&role.ID, &role.Name, &role.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", s.mapError(err))
	}

	scopes, err := s.roleScopes(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	role.Scopes = scopes

	return role, nil
}

// ListRoles returns all roles with their scope values
func (s *Storage) ListRoles(ctx context.Context) ([]*models.Role, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.query(ctx, `SELECT id, name, description FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}

	var roles []*models.Role
	for rows.Next() {
		role := &models.Role{}
		if err := rows.Scan(&role.ID, &role.Name, &role.Description); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration error: %w", s.mapError(err))
	}
	// закрываем до следующих запросов: у SQLite одно соединение
	_ = rows.Close()

	for _, role := range roles {
		scopes, err := s.roleScopes(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		role.Scopes = scopes
	}

	return roles, nil
}

func (s *Storage) roleScopes(ctx context.Context, roleID int64) ([]string, error) {
	query := `
		SELECT sc.value FROM scopes sc
		JOIN role_scopes rs ON rs.scope_id = sc.id
		WHERE rs.role_id = ?
		ORDER BY sc.value
	`
	return s.stringColumn(ctx, query, roleID)
}

// UpdateRole updates name and description
func (s *Storage) UpdateRole(ctx context.Context, role *models.Role) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.exec(ctx, `UPDATE roles SET name = ?, description = ? WHERE id = ?`,
		role.Name, role.Description, role.ID)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	return affected(result, storage.ErrNotFound)
}

// DeleteRole deletes role, FK cascade removes its account and scope links
func (s *Storage) DeleteRole(ctx context.Context, id int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.exec(ctx, `DELETE FROM roles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	return affected(result, storage.ErrNotFound)
}

// SetRoleScopes replaces the scopes granted by the role
func (s *Storage) SetRoleScopes(ctx context.Context, roleID int64, values []string) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.exec(ctx, `DELETE FROM role_scopes WHERE role_id = ?`, roleID); err != nil {
		return nil, fmt.Errorf("failed to clear role scopes: %w", err)
	}

	query := `
		INSERT INTO role_scopes (role_id, scope_id)
		SELECT CAST(? AS BIGINT), id FROM scopes WHERE value = ?
		ON CONFLICT DO NOTHING
	`
	return s.assign(ctx, query, `SELECT COUNT(*) FROM scopes WHERE value = ?`, roleID, values)
}

// AccountsWithRole returns IDs of accounts holding the role
func (s *Storage) AccountsWithRole(ctx context.Context, roleID int64) ([]int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.query(ctx, `SELECT account_id FROM account_roles WHERE role_id = ? ORDER BY account_id`, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query role accounts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", s.mapError(err))
	}

	return ids, nil
}
