package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/metrics"
	"github.com/wisdom-oss/authorization-service/internal/server/oauth"
	"github.com/wisdom-oss/authorization-service/pkg/api"
)

// TokenService is the token part of oauth.Service used by the HTTP layer.
type TokenService interface {
	Token(ctx context.Context, req oauth.TokenRequest) (*models.TokenPair, error)
	Introspect(ctx context.Context, token string, required models.ScopeSet) (*oauth.Introspection, error)
	Revoke(ctx context.Context, caller *oauth.Principal, token string) error
}

// AuthHandler обрабатывает OAuth2 endpoints
type AuthHandler struct {
	logger  *slog.Logger
	tokens  TokenService
	metrics *metrics.Metrics
}

// NewAuthHandler создает handler для /oauth/*
func NewAuthHandler(logger *slog.Logger, tokens TokenService, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{
		logger:  logger,
		tokens:  tokens,
		metrics: m,
	}
}

// Token обрабатывает POST /oauth/token
// Принимает application/x-www-form-urlencoded с grant_type password или refresh_token
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		WriteError(w, http.StatusBadRequest, oauth.CodeInvalidRequest, "invalid form body")
		return
	}

	req := oauth.TokenRequest{
		GrantType:    r.PostForm.Get("grant_type"),
		Username:     r.PostForm.Get("username"),
		Password:     r.PostForm.Get("password"),
		RefreshToken: r.PostForm.Get("refresh_token"),
		Scope:        r.PostForm.Get("scope"),
	}

	pair, err := h.tokens.Token(ctx, req)
	if err != nil {
		writeServiceError(ctx, h.logger, w, "token request", err)
		return
	}
	h.metrics.TokenIssued(req.GrantType)

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	sendJSON(w, api.TokenResponse{
		AccessToken:  pair.Access.Token,
		TokenType:    api.TokenTypeBearer,
		ExpiresIn:    pair.Access.ExpiresAt - pair.Access.CreatedAt,
		RefreshToken: pair.Refresh.Token,
		Scope:        pair.Access.Scopes.String(),
	}, http.StatusOK)
}

// CheckToken обрабатывает POST /oauth/check_token
// Неактивный токен отдается как {"active": false} без подробностей
func (h *AuthHandler) CheckToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		WriteError(w, http.StatusBadRequest, oauth.CodeInvalidRequest, "invalid form body")
		return
	}

	token := r.PostForm.Get("token")
	if token == "" {
		WriteError(w, http.StatusBadRequest, oauth.CodeInvalidRequest, "token is required")
		return
	}

	result, err := h.tokens.Introspect(ctx, token, models.ParseScope(r.PostForm.Get("scope")))
	if err != nil {
		writeServiceError(ctx, h.logger, w, "introspection", err)
		return
	}

	if !result.Active {
		h.metrics.Introspection(result.Reason)
		sendJSON(w, api.IntrospectionResponse{Active: false}, http.StatusOK)
		return
	}
	h.metrics.Introspection("active")

	sendJSON(w, api.IntrospectionResponse{
		Active:    true,
		Scope:     result.Scopes.String(),
		Username:  result.Username,
		TokenType: result.TokenType,
		Exp:       result.ExpiresAt,
		Iat:       result.IssuedAt,
	}, http.StatusOK)
}

// Revoke обрабатывает POST /oauth/revoke
// Отвечает 204 и для уже отозванных или неизвестных токенов
func (h *AuthHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := principal(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		WriteError(w, http.StatusBadRequest, oauth.CodeInvalidRequest, "invalid form body")
		return
	}

	if err := h.tokens.Revoke(ctx, caller, r.PostForm.Get("token")); err != nil {
		writeServiceError(ctx, h.logger, w, "revocation", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
