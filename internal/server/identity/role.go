package identity

import (
	"context"
	"log/slog"
	"strings"

	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/storage"
)

// RoleUpdate describes a partial role update. nil fields stay unchanged.
type RoleUpdate struct {
	Name        *string
	Description *string
	Scopes      *[]string
}

// CreateRole creates a role granting the given scopes. Unknown scopes are logged and skipped.
func (s *Service) CreateRole(ctx context.Context, role models.Role) (*models.Role, error) {
	if strings.TrimSpace(role.Name) == "" {
		return nil, invalidRequest("role name cannot be empty")
	}

	var created *models.Role
	err := s.store.InTx(ctx, func(tx storage.Store) error {
		if err := tx.CreateRole(ctx, &role); err != nil {
			return storageError("role", err)
		}

		missing, err := tx.SetRoleScopes(ctx, role.ID, role.Scopes)
		if err != nil {
			return storageError("role scopes", err)
		}
		s.logMissing(ctx, "scope", role.ID, missing)

		if created, err = tx.GetRoleByID(ctx, role.ID); err != nil {
			return storageError("role", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "role created", slog.Int64("role_id", created.ID), slog.String("name", created.Name))
	return created, nil
}

// GetRole resolves a role by numeric id or by name.
func (s *Service) GetRole(ctx context.Context, ref string) (*models.Role, error) {
	return getRole(ctx, s.store, ref)
}

func getRole(ctx context.Context, st storage.Store, ref string) (*models.Role, error) {
	if id, ok := parseID(ref); ok {
		role, err := st.GetRoleByID(ctx, id)
		if err == nil {
			return role, nil
		}
		if e := storageError("role", err); !isNotFound(e) {
			return nil, e
		}
	}

	role, err := st.GetRoleByName(ctx, ref)
	if err != nil {
		return nil, storageError("role", err)
	}
	return role, nil
}

// ListRoles returns every role with its scopes.
func (s *Service) ListRoles(ctx context.Context) ([]*models.Role, error) {
	roles, err := s.store.ListRoles(ctx)
	if err != nil {
		return nil, storageError("roles", err)
	}
	return roles, nil
}

// UpdateRole applies a partial update. Changing the granted scopes deletes
// the tokens of every account holding the role.
func (s *Service) UpdateRole(ctx context.Context, ref string, upd RoleUpdate) (*models.Role, error) {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, invalidRequest("role name cannot be empty")
	}

	var (
		updated *models.Role
		revoked []string
	)
	err := s.store.InTx(ctx, func(tx storage.Store) error {
		role, err := getRole(ctx, tx, ref)
		if err != nil {
			return err
		}

		if upd.Name != nil {
			role.Name = *upd.Name
		}
		if upd.Description != nil {
			role.Description = *upd.Description
		}
		if err := tx.UpdateRole(ctx, role); err != nil {
			return storageError("role", err)
		}

		if upd.Scopes != nil {
			before := models.NewScopeSet(role.Scopes...)

			missing, err := tx.SetRoleScopes(ctx, role.ID, *upd.Scopes)
			if err != nil {
				return storageError("role scopes", err)
			}
			s.logMissing(ctx, "scope", role.ID, missing)

			if updated, err = tx.GetRoleByID(ctx, role.ID); err != nil {
				return storageError("role", err)
			}

			if !before.Equal(models.NewScopeSet(updated.Scopes...)) {
				if err := ensureAdminRemains(ctx, tx); err != nil {
					return err
				}
				if revoked, err = revokeHolderTokens(ctx, tx, role.ID); err != nil {
					return err
				}
			}
			return nil
		}

		if updated, err = tx.GetRoleByID(ctx, role.ID); err != nil {
			return storageError("role", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "role updated", slog.Int64("role_id", updated.ID))
	s.notifyRevoked(ctx, "role scopes changed", revoked)
	return updated, nil
}

// DeleteRole deletes the role and the tokens of every account that held it.
func (s *Service) DeleteRole(ctx context.Context, ref string) error {
	var revoked []string
	err := s.store.InTx(ctx, func(tx storage.Store) error {
		role, err := getRole(ctx, tx, ref)
		if err != nil {
			return err
		}

		if len(role.Scopes) > 0 {
			if revoked, err = revokeHolderTokens(ctx, tx, role.ID); err != nil {
				return err
			}
		}

		if err := tx.DeleteRole(ctx, role.ID); err != nil {
			return storageError("role", err)
		}
		return ensureAdminRemains(ctx, tx)
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "role deleted", slog.String("role", ref))
	s.notifyRevoked(ctx, "role deleted", revoked)
	return nil
}

func revokeHolderTokens(ctx context.Context, tx storage.Store, roleID int64) ([]string, error) {
	holders, err := tx.AccountsWithRole(ctx, roleID)
	if err != nil {
		return nil, storageError("role holders", err)
	}

	var revoked []string
	for _, accountID := range holders {
		tokens, err := revokeAccountTokens(ctx, tx, accountID)
		if err != nil {
			return nil, err
		}
		revoked = append(revoked, tokens...)
	}
	return revoked, nil
}
