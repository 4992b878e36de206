package oauth

import (
	"context"
	"errors"

	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/storage"
)

// Principal is the identity behind an authorized bearer token.
type Principal struct {
	Account *models.Account
	Token   *models.AccessToken
	Scopes  models.ScopeSet
}

// IsAdmin reports whether the principal holds the administration scope.
func (p Principal) IsAdmin() bool {
	return p.Scopes.Contains(models.AdminScope)
}

// Can reports whether the principal satisfies the required scopes.
func (p Principal) Can(required ...string) bool {
	return models.Authorizes(p.Scopes, models.NewScopeSet(required...))
}

// Authorize resolves a bearer token to a principal holding the required scopes.
func (s *Service) Authorize(ctx context.Context, bearer string, required models.ScopeSet) (*Principal, error) {
	if bearer == "" || bearer == "undefined" {
		return nil, newError(CodeInvalidRequest, "the request did not contain a bearer token")
	}

	token, err := s.store.GetAccessToken(ctx, bearer)
	if err != nil {
		return nil, storageError("failed to load access token", err)
	}

	var owner *models.Account
	if token != nil {
		owner, err = s.store.GetAccountByID(ctx, token.AccountID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, storageError("failed to load token owner", err)
		}
	}

	if err := Decide(token, owner, s.now().Unix(), required); err != nil {
		return nil, err
	}

	return &Principal{Account: owner, Token: token, Scopes: token.Scopes}, nil
}

// Decide is the authorization decision for an already loaded token row.
// token and owner may be nil when they do not exist. Decide has no side effects.
func Decide(token *models.AccessToken, owner *models.Account, now int64, required models.ScopeSet) error {
	if token == nil {
		return invalidToken("the bearer token is unknown")
	}
	if !token.IsActive {
		return invalidToken("the bearer token was revoked")
	}
	switch checkValidity(token.CreatedAt, token.ExpiresAt, now) {
	case ReasonExpired:
		return invalidToken("the bearer token expired")
	case ReasonNotYetValid:
		return invalidToken("the bearer token is not valid yet")
	}
	if owner == nil {
		return invalidToken("the account of the bearer token was deleted")
	}
	if !owner.IsActive {
		return invalidToken("the account of the bearer token is disabled")
	}
	if !models.Authorizes(token.Scopes, required) {
		return &Error{
			Code:          CodeInsufficientScope,
			Description:   "the bearer token lacks the scopes required by this operation",
			MissingScopes: required.Missing(token.Scopes),
		}
	}
	return nil
}

type principalContextKey struct{}

// ContextWithPrincipal attaches the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext extracts the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(principalContextKey{}).(*Principal)
	if !ok || p == nil {
		return nil, false
	}
	return p, true
}
