package storage

import (
	"context"

	"github.com/wisdom-oss/authorization-service/internal/models"
)

// TokenStorage defines interface for access and refresh token persistence
type TokenStorage interface {
	// CreateAccessToken stores the token and its scope snapshot and sets its ID
	CreateAccessToken(ctx context.Context, token *models.AccessToken) error

	// CreateRefreshToken stores the token and its scope snapshot and sets its ID
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error

	// GetAccessToken retrieves access token with its scopes by token value
	// Returns nil, nil if token doesn't exist
	GetAccessToken(ctx context.Context, token string) (*models.AccessToken, error)

	// GetRefreshToken retrieves refresh token with its scopes by token value
	// Returns nil, nil if token doesn't exist
	GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)

	// GetAccessTokenByID returns nil, nil if token doesn't exist
	GetAccessTokenByID(ctx context.Context, id int64) (*models.AccessToken, error)

	// ScopesForAccessToken returns the scope snapshot of an access token
	ScopesForAccessToken(ctx context.Context, tokenID int64) (models.ScopeSet, error)

	// ScopesForRefreshToken returns the scope snapshot of a refresh token
	ScopesForRefreshToken(ctx context.Context, tokenID int64) (models.ScopeSet, error)

	// TokensForAccount returns all tokens owned by the account
	TokensForAccount(ctx context.Context, accountID int64) ([]*models.AccessToken, []*models.RefreshToken, error)

	// DeleteAccessToken deletes access token by ID
	// Returns ErrTokenNotFound if token doesn't exist
	DeleteAccessToken(ctx context.Context, id int64) error

	// DeleteRefreshToken deletes refresh token by ID
	// Returns ErrTokenNotFound if token doesn't exist, which is how a lost rotation race shows up
	DeleteRefreshToken(ctx context.Context, id int64) error

	// DeleteAccessTokensByRefresh deletes access tokens issued together with the refresh token
	// Returns number of deleted tokens
	DeleteAccessTokensByRefresh(ctx context.Context, refreshID int64) (int, error)

	// DeleteAccountTokens deletes every access and refresh token of the account
	// Returns number of deleted tokens
	DeleteAccountTokens(ctx context.Context, accountID int64) (int, error)

	// DeleteExpiredTokens removes all tokens with expires_at <= now
	// Returns number of deleted tokens
	DeleteExpiredTokens(ctx context.Context, now int64) (int, error)
}

// Store combines all storages and adds transactions
type Store interface {
	AccountStorage
	ScopeStorage
	RoleStorage
	TokenStorage
	ClientStorage

	// InTx runs fn inside one transaction. The Store passed to fn must be
	// used for every call belonging to the transaction. fn returning an
	// error rolls the transaction back.
	InTx(ctx context.Context, fn func(tx Store) error) error

	// Ping checks database connectivity
	Ping(ctx context.Context) error
}
