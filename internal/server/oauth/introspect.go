package oauth

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/storage"
)

// Token types reported by introspection.
const (
	TokenTypeAccess  = "access_token"
	TokenTypeRefresh = "refresh_token"
)

// Reasons for an inactive introspection result.
// Only the message bus exposes them, HTTP answers a bare active=false.
const (
	ReasonUnknownToken      = "unknown_token"
	ReasonAmbiguousToken    = "ambiguous_token"
	ReasonExpired           = "expired"
	ReasonNotYetValid       = "not_yet_valid"
	ReasonRevoked           = "revoked"
	ReasonAccountInactive   = "account_inactive"
	ReasonInsufficientScope = "insufficient_scope"
)

// Introspection is the result of checking a token.
type Introspection struct {
	Scopes    models.ScopeSet
	Username  string
	TokenType string
	Reason    string
	AccountID int64
	ExpiresAt int64
	IssuedAt  int64 // access tokens only
	Active    bool
}

func inactive(reason string) *Introspection {
	return &Introspection{Reason: reason}
}

// Introspect reports whether token is currently valid for the required scopes.
// An empty required set checks validity only.
func (s *Service) Introspect(ctx context.Context, token string, required models.ScopeSet) (*Introspection, error) {
	ctx, span := s.tracer.Start(ctx, "oauth.Introspect")
	defer span.End()

	result, err := s.introspect(ctx, token, required)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Bool("oauth.active", result.Active))
	if result.Reason != "" {
		span.SetAttributes(attribute.String("oauth.reason", result.Reason))
	}
	return result, nil
}

func (s *Service) introspect(ctx context.Context, token string, required models.ScopeSet) (*Introspection, error) {
	if token == "" {
		return inactive(ReasonUnknownToken), nil
	}

	access, err := s.store.GetAccessToken(ctx, token)
	if err != nil {
		return nil, storageError("failed to load access token", err)
	}
	refresh, err := s.store.GetRefreshToken(ctx, token)
	if err != nil {
		return nil, storageError("failed to load refresh token", err)
	}

	var result *Introspection
	switch {
	case access == nil && refresh == nil:
		return inactive(ReasonUnknownToken), nil
	case access != nil && refresh != nil:
		return inactive(ReasonAmbiguousToken), nil
	case access != nil:
		result = &Introspection{
			Scopes:    access.Scopes,
			TokenType: TokenTypeAccess,
			AccountID: access.AccountID,
			ExpiresAt: access.ExpiresAt,
			IssuedAt:  access.CreatedAt,
		}
		if reason := checkValidity(access.CreatedAt, access.ExpiresAt, s.now().Unix()); reason != "" {
			return inactive(reason), nil
		}
		if !access.IsActive {
			return inactive(ReasonRevoked), nil
		}
	default:
		result = &Introspection{
			Scopes:    refresh.Scopes,
			TokenType: TokenTypeRefresh,
			AccountID: refresh.AccountID,
			ExpiresAt: refresh.ExpiresAt,
		}
		if reason := checkValidity(refresh.CreatedAt, refresh.ExpiresAt, s.now().Unix()); reason != "" {
			return inactive(reason), nil
		}
	}

	owner, err := s.store.GetAccountByID(ctx, result.AccountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return inactive(ReasonAccountInactive), nil
		}
		return nil, storageError("failed to load token owner", err)
	}
	if !owner.IsActive {
		return inactive(ReasonAccountInactive), nil
	}

	if !models.Authorizes(result.Scopes, required) {
		return inactive(ReasonInsufficientScope), nil
	}

	result.Username = owner.Username
	result.Active = true
	return result, nil
}

// checkValidity returns the reason the time window rejects a token, or "".
func checkValidity(createdAt, expiresAt, now int64) string {
	if now >= expiresAt {
		return ReasonExpired
	}
	if now < createdAt {
		return ReasonNotYetValid
	}
	return ""
}
