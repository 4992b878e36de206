package identity

import (
	"context"
	"log/slog"

	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/validation"
)

// ScopeUpdate describes a partial scope update. The value of a scope is immutable.
type ScopeUpdate struct {
	Name        *string
	Description *string
	Value       *string
}

// IsReserved reports whether the service itself depends on the scope value.
func IsReserved(value string) bool {
	return value == models.AdminScope || value == models.SelfScope
}

// CreateScope creates a scope. An empty name defaults to the value.
func (s *Service) CreateScope(ctx context.Context, scope models.Scope) (*models.Scope, error) {
	if err := validation.ValidateScopeValue(scope.Value); err != nil {
		return nil, invalidRequest("%s", err)
	}
	if scope.Name == "" {
		scope.Name = scope.Value
	}

	if err := s.store.CreateScope(ctx, &scope); err != nil {
		return nil, storageError("scope", err)
	}

	s.logger.InfoContext(ctx, "scope created", slog.Int64("scope_id", scope.ID), slog.String("value", scope.Value))
	return &scope, nil
}

// GetScope resolves a scope by numeric id or by value.
func (s *Service) GetScope(ctx context.Context, ref string) (*models.Scope, error) {
	if id, ok := parseID(ref); ok {
		scope, err := s.store.GetScopeByID(ctx, id)
		if err == nil {
			return scope, nil
		}
		if e := storageError("scope", err); !isNotFound(e) {
			return nil, e
		}
	}

	scope, err := s.store.GetScopeByValue(ctx, ref)
	if err != nil {
		return nil, storageError("scope", err)
	}
	return scope, nil
}

// ListScopes returns every scope ordered by id.
func (s *Service) ListScopes(ctx context.Context) ([]*models.Scope, error) {
	scopes, err := s.store.ListScopes(ctx)
	if err != nil {
		return nil, storageError("scopes", err)
	}
	return scopes, nil
}

// UpdateScope changes name and description of a scope.
func (s *Service) UpdateScope(ctx context.Context, ref string, upd ScopeUpdate) (*models.Scope, error) {
	scope, err := s.GetScope(ctx, ref)
	if err != nil {
		return nil, err
	}

	if upd.Value != nil && *upd.Value != scope.Value {
		if IsReserved(scope.Value) {
			return nil, &Error{Code: CodeScopeDeadlock, Description: "the value of a reserved scope may not be changed"}
		}
		return nil, invalidRequest("the value of a scope may not be changed")
	}
	if upd.Name != nil {
		scope.Name = *upd.Name
	}
	if upd.Description != nil {
		scope.Description = *upd.Description
	}

	if err := s.store.UpdateScope(ctx, scope); err != nil {
		return nil, storageError("scope", err)
	}

	s.logger.InfoContext(ctx, "scope updated", slog.Int64("scope_id", scope.ID))
	return scope, nil
}

// DeleteScope removes a scope from every account, role and token holding it.
// Reserved scopes are refused.
func (s *Service) DeleteScope(ctx context.Context, ref string) error {
	scope, err := s.GetScope(ctx, ref)
	if err != nil {
		return err
	}

	if IsReserved(scope.Value) {
		return &Error{Code: CodeScopeDeadlock, Description: "deleting the '" + scope.Value + "' scope would lock everyone out of the service"}
	}

	if err := s.store.DeleteScope(ctx, scope.ID); err != nil {
		return storageError("scope", err)
	}

	s.logger.InfoContext(ctx, "scope deleted", slog.Int64("scope_id", scope.ID), slog.String("value", scope.Value))
	return nil
}

func isNotFound(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code == CodeNotFound
}
