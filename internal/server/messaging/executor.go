package messaging

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wisdom-oss/authorization-service/internal/crypto"
	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/identity"
	"github.com/wisdom-oss/authorization-service/internal/server/metrics"
	"github.com/wisdom-oss/authorization-service/internal/server/oauth"
	"github.com/wisdom-oss/authorization-service/internal/server/storage"
	"github.com/wisdom-oss/authorization-service/pkg/api"
)

// TokenService is the part of oauth.Service reachable over the bus.
type TokenService interface {
	Introspect(ctx context.Context, token string, required models.ScopeSet) (*oauth.Introspection, error)
	Revoke(ctx context.Context, caller *oauth.Principal, token string) error
}

// ScopeService is the part of identity.Service reachable over the bus.
type ScopeService interface {
	CreateScope(ctx context.Context, scope models.Scope) (*models.Scope, error)
	GetScope(ctx context.Context, ref string) (*models.Scope, error)
	UpdateScope(ctx context.Context, ref string, upd identity.ScopeUpdate) (*models.Scope, error)
	DeleteScope(ctx context.Context, ref string) error
}

// Executor authenticates and runs bus requests.
type Executor struct {
	logger  *slog.Logger
	clients storage.ClientStorage
	hasher  crypto.PasswordHasher
	tokens  TokenService
	scopes  ScopeService
	metrics *metrics.Metrics
}

// NewExecutor creates an executor.
func NewExecutor(logger *slog.Logger, clients storage.ClientStorage, hasher crypto.PasswordHasher, tokens TokenService, scopes ScopeService, m *metrics.Metrics) *Executor {
	return &Executor{
		logger:  logger,
		clients: clients,
		hasher:  hasher,
		tokens:  tokens,
		scopes:  scopes,
		metrics: m,
	}
}

// Execute runs one request. Failures are reported inside the Response, never as a Go error.
func (e *Executor) Execute(ctx context.Context, req Request) Response {
	resp := e.execute(ctx, req)
	resp.CorrelationID = req.CorrelationID
	e.metrics.BusMessage(req.Payload.Action, resp.Status)
	return resp
}

func (e *Executor) execute(ctx context.Context, req Request) Response {
	client, err := e.authenticate(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return e.failure(ctx, req.Payload.Action, err)
	}

	p := req.Payload
	logger := e.logger.With(slog.String("client_id", client.ClientID), slog.String("action", p.Action))

	switch p.Action {
	case ActionValidateToken:
		if p.Token == "" {
			return errorResponse("", oauth.CodeInvalidRequest, "token is required")
		}
		result, err := e.tokens.Introspect(ctx, p.Token, models.ParseScope(p.Scopes))
		if err != nil {
			return e.failure(ctx, p.Action, err)
		}
		return validationResponse(result)

	case ActionRevokeToken:
		if err := e.tokens.Revoke(ctx, clientPrincipal(client), p.Token); err != nil {
			return e.failure(ctx, p.Action, err)
		}
		logger.InfoContext(ctx, "token revoked over message bus")
		return Response{Status: StatusSuccess}

	case ActionAddScope:
		scope := models.Scope{Name: deref(p.Name), Description: deref(p.Description), Value: deref(p.Value)}
		created, err := e.scopes.CreateScope(ctx, scope)
		if err != nil {
			return e.failure(ctx, p.Action, err)
		}
		logger.InfoContext(ctx, "scope added over message bus", slog.String("scope", created.Value))
		return scopeResult(created)

	case ActionEditScope:
		updated, err := e.scopes.UpdateScope(ctx, p.Scope, identity.ScopeUpdate{Name: p.Name, Description: p.Description, Value: p.Value})
		if err != nil {
			return e.failure(ctx, p.Action, err)
		}
		return scopeResult(updated)

	case ActionDeleteScope:
		if err := e.scopes.DeleteScope(ctx, p.Scope); err != nil {
			return e.failure(ctx, p.Action, err)
		}
		logger.InfoContext(ctx, "scope deleted over message bus", slog.String("scope", p.Scope))
		return Response{Status: StatusSuccess}

	case ActionCheckScope:
		scope, err := e.scopes.GetScope(ctx, p.Scope)
		if err != nil {
			return e.failure(ctx, p.Action, err)
		}
		return scopeResult(scope)

	default:
		return errorResponse("", oauth.CodeInvalidRequest, "unknown action "+p.Action)
	}
}

var errInvalidClient = errors.New("client authentication failed")

func (e *Executor) authenticate(ctx context.Context, clientID, secret string) (*models.ClientCredential, error) {
	if clientID == "" || secret == "" {
		return nil, errInvalidClient
	}

	client, err := e.clients.GetClientCredential(ctx, clientID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			e.logger.WarnContext(ctx, "unknown message bus client", slog.String("client_id", clientID))
			return nil, errInvalidClient
		}
		return nil, err
	}

	if err := e.hasher.Verify(client.SecretHash, secret); err != nil {
		e.logger.WarnContext(ctx, "message bus client secret mismatch", slog.String("client_id", clientID))
		return nil, errInvalidClient
	}
	return client, nil
}

// clientPrincipal lets an authenticated client revoke any token.
func clientPrincipal(client *models.ClientCredential) *oauth.Principal {
	return &oauth.Principal{
		Account: &models.Account{Username: "client:" + client.ClientID},
		Scopes:  models.NewScopeSet(models.AdminScope),
	}
}

func (e *Executor) failure(ctx context.Context, action string, err error) Response {
	if errors.Is(err, errInvalidClient) {
		return errorResponse("", CodeInvalidClient, err.Error())
	}
	if oauthErr, ok := oauth.AsError(err); ok {
		return errorResponse("", oauthErr.Code, oauthErr.Description)
	}
	if identityErr, ok := identity.AsError(err); ok {
		return errorResponse("", identityErr.Code, identityErr.Description)
	}
	if errors.Is(err, storage.ErrUnavailable) {
		return errorResponse("", oauth.CodeTemporarilyUnavailable, "database did not respond in time")
	}

	e.logger.ErrorContext(ctx, "message bus request failed", slog.String("action", action), slog.Any("error", err))
	return errorResponse("", CodeServerError, "internal server error")
}

func validationResponse(result *oauth.Introspection) Response {
	if !result.Active {
		return Response{
			Status: StatusSuccess,
			Token:  &api.IntrospectionResponse{Active: false},
			Reason: result.Reason,
		}
	}
	return Response{
		Status: StatusSuccess,
		Token: &api.IntrospectionResponse{
			Active:    true,
			Scope:     result.Scopes.String(),
			Username:  result.Username,
			TokenType: result.TokenType,
			Exp:       result.ExpiresAt,
			Iat:       result.IssuedAt,
		},
	}
}

func scopeResult(s *models.Scope) Response {
	return Response{
		Status: StatusSuccess,
		Scope:  &api.ScopeResponse{ID: s.ID, Name: s.Name, Description: s.Description, Value: s.Value},
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
