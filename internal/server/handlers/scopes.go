package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/identity"
	"github.com/wisdom-oss/authorization-service/pkg/api"
)

// CatalogService is the scope and role part of identity.Service.
type CatalogService interface {
	CreateScope(ctx context.Context, scope models.Scope) (*models.Scope, error)
	GetScope(ctx context.Context, ref string) (*models.Scope, error)
	ListScopes(ctx context.Context) ([]*models.Scope, error)
	UpdateScope(ctx context.Context, ref string, upd identity.ScopeUpdate) (*models.Scope, error)
	DeleteScope(ctx context.Context, ref string) error

	CreateRole(ctx context.Context, role models.Role) (*models.Role, error)
	GetRole(ctx context.Context, ref string) (*models.Role, error)
	ListRoles(ctx context.Context) ([]*models.Role, error)
	UpdateRole(ctx context.Context, ref string, upd identity.RoleUpdate) (*models.Role, error)
	DeleteRole(ctx context.Context, ref string) error
}

// CatalogHandler обрабатывает /scopes и /roles
// {id} принимает числовой id, значение scope или имя роли
type CatalogHandler struct {
	logger  *slog.Logger
	catalog CatalogService
}

// NewCatalogHandler создает handler для scope и ролей
func NewCatalogHandler(logger *slog.Logger, catalog CatalogService) *CatalogHandler {
	return &CatalogHandler{logger: logger, catalog: catalog}
}

func scopeResponse(s *models.Scope) api.ScopeResponse {
	return api.ScopeResponse{ID: s.ID, Name: s.Name, Description: s.Description, Value: s.Value}
}

func roleResponse(role *models.Role) api.RoleResponse {
	scopes := role.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	return api.RoleResponse{ID: role.ID, Name: role.Name, Description: role.Description, Scopes: scopes}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ListScopes обрабатывает GET /scopes
func (h *CatalogHandler) ListScopes(w http.ResponseWriter, r *http.Request) {
	scopes, err := h.catalog.ListScopes(r.Context())
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, "list scopes", err)
		return
	}

	resp := make([]api.ScopeResponse, 0, len(scopes))
	for _, s := range scopes {
		resp = append(resp, scopeResponse(s))
	}
	sendJSON(w, resp, http.StatusOK)
}

// CreateScope обрабатывает POST /scopes
func (h *CatalogHandler) CreateScope(w http.ResponseWriter, r *http.Request) {
	var req api.ScopeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.catalog.CreateScope(r.Context(), models.Scope{
		Name:        deref(req.Name),
		Description: deref(req.Description),
		Value:       deref(req.Value),
	})
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, "create scope", err)
		return
	}
	sendJSON(w, scopeResponse(created), http.StatusCreated)
}

// GetScope обрабатывает GET /scopes/{id}
func (h *CatalogHandler) GetScope(w http.ResponseWriter, r *http.Request) {
	scope, err := h.catalog.GetScope(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, "get scope", err)
		return
	}
	sendJSON(w, scopeResponse(scope), http.StatusOK)
}

// UpdateScope обрабатывает PUT и PATCH /scopes/{id}
func (h *CatalogHandler) UpdateScope(w http.ResponseWriter, r *http.Request) {
	var req api.ScopeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.catalog.UpdateScope(r.Context(), r.PathValue("id"), identity.ScopeUpdate{
		Name:        req.Name,
		Description: req.Description,
		Value:       req.Value,
	})
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, "update scope", err)
		return
	}
	sendJSON(w, scopeResponse(updated), http.StatusOK)
}

// DeleteScope обрабатывает DELETE /scopes/{id}
func (h *CatalogHandler) DeleteScope(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteScope(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(r.Context(), h.logger, w, "delete scope", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRoles обрабатывает GET /roles
func (h *CatalogHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.catalog.ListRoles(r.Context())
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, "list roles", err)
		return
	}

	resp := make([]api.RoleResponse, 0, len(roles))
	for _, role := range roles {
		resp = append(resp, roleResponse(role))
	}
	sendJSON(w, resp, http.StatusOK)
}

// CreateRole обрабатывает POST /roles
func (h *CatalogHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req api.RoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	role := models.Role{Name: deref(req.Name), Description: deref(req.Description)}
	if req.Scopes != nil {
		role.Scopes = *req.Scopes
	}

	created, err := h.catalog.CreateRole(r.Context(), role)
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, "create role", err)
		return
	}
	sendJSON(w, roleResponse(created), http.StatusCreated)
}

// GetRole обрабатывает GET /roles/{id}
func (h *CatalogHandler) GetRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.catalog.GetRole(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, "get role", err)
		return
	}
	sendJSON(w, roleResponse(role), http.StatusOK)
}

// UpdateRole обрабатывает PUT и PATCH /roles/{id}
// Изменение набора scope отзывает токены всех владельцев роли
func (h *CatalogHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req api.RoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.catalog.UpdateRole(r.Context(), r.PathValue("id"), identity.RoleUpdate{
		Name:        req.Name,
		Description: req.Description,
		Scopes:      req.Scopes,
	})
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, "update role", err)
		return
	}
	sendJSON(w, roleResponse(updated), http.StatusOK)
}

// DeleteRole обрабатывает DELETE /roles/{id}
func (h *CatalogHandler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteRole(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(r.Context(), h.logger, w, "delete role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
