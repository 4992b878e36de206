package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/identity"
	"github.com/wisdom-oss/authorization-service/internal/server/oauth"
	"github.com/wisdom-oss/authorization-service/pkg/api"
)

// AccountService is the account part of identity.Service.
type AccountService interface {
	CreateAccount(ctx context.Context, in identity.NewAccount) (*models.AccountDetails, error)
	GetAccount(ctx context.Context, id int64) (*models.AccountDetails, error)
	ListAccounts(ctx context.Context) ([]*models.AccountDetails, error)
	UpdateAccount(ctx context.Context, id int64, upd identity.AccountUpdate) (*models.AccountDetails, error)
	SetActive(ctx context.Context, id int64, active bool) (*models.AccountDetails, error)
	ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error
	DeleteAccount(ctx context.Context, id int64) error
}

// UserHandler обрабатывает /users
type UserHandler struct {
	logger   *slog.Logger
	accounts AccountService
}

// NewUserHandler создает handler для управления учетными записями
func NewUserHandler(logger *slog.Logger, accounts AccountService) *UserHandler {
	return &UserHandler{logger: logger, accounts: accounts}
}

func accountResponse(a *models.AccountDetails) api.AccountResponse {
	resp := api.AccountResponse{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Username:  a.Username,
		Active:    a.IsActive,
		Scopes:    a.Scopes,
		Roles:     a.Roles,
	}
	if resp.Scopes == nil {
		resp.Scopes = []string{}
	}
	if resp.Roles == nil {
		resp.Roles = []string{}
	}
	return resp
}

// List обрабатывает GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.ListAccounts(r.Context())
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, "list accounts", err)
		return
	}

	resp := make([]api.AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, accountResponse(a))
	}
	sendJSON(w, resp, http.StatusOK)
}

// Create обрабатывает POST /users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.accounts.CreateAccount(ctx, identity.NewAccount{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Password:  req.Password,
		Scopes:    req.Scopes,
		Roles:     req.Roles,
	})
	if err != nil {
		writeServiceError(ctx, h.logger, w, "create account", err)
		return
	}

	sendJSON(w, accountResponse(created), http.StatusCreated)
}

// Get обрабатывает GET /users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.writeAccount(w, r, id)
}

// Me обрабатывает GET /users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	h.writeAccount(w, r, caller.Account.ID)
}

func (h *UserHandler) writeAccount(w http.ResponseWriter, r *http.Request, id int64) {
	details, err := h.accounts.GetAccount(r.Context(), id)
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, "get account", err)
		return
	}
	sendJSON(w, accountResponse(details), http.StatusOK)
}

// Update обрабатывает PATCH /users/{id}
// Изменение пароля, username, scope, ролей или флага активности отзывает токены пользователя
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req api.UpdateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.accounts.UpdateAccount(ctx, id, identity.AccountUpdate{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Username:      req.Username,
		Password:      req.Password,
		Active:        req.Active,
		Scopes:        req.Scopes,
		Roles:         req.Roles,
		KeepOldScopes: req.KeepOldScopes,
	})
	if err != nil {
		writeServiceError(ctx, h.logger, w, "update account", err)
		return
	}

	sendJSON(w, accountResponse(updated), http.StatusOK)
}

// ChangePassword обрабатывает PATCH /users/me
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := principal(w, r)
	if !ok {
		return
	}

	var req api.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		WriteError(w, http.StatusBadRequest, oauth.CodeInvalidRequest, "old_password and new_password are required")
		return
	}

	if err := h.accounts.ChangePassword(ctx, caller.Account.ID, req.OldPassword, req.NewPassword); err != nil {
		writeServiceError(ctx, h.logger, w, "change password", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Enable обрабатывает POST /users/{id}/enable
func (h *UserHandler) Enable(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// Disable обрабатывает POST /users/{id}/disable
func (h *UserHandler) Disable(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *UserHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	details, err := h.accounts.SetActive(r.Context(), id, active)
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, "set account state", err)
		return
	}
	sendJSON(w, accountResponse(details), http.StatusOK)
}

// Delete обрабатывает DELETE /users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.accounts.DeleteAccount(r.Context(), id); err != nil {
		writeServiceError(r.Context(), h.logger, w, "delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
