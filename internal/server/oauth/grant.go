package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wisdom-oss/authorization-service/internal/crypto"
	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/storage"
)

// Supported grant types.
const (
	GrantPassword     = "password"
	GrantRefreshToken = "refresh_token"
)

// TokenRequest is the input of the token endpoint.
type TokenRequest struct {
	GrantType    string
	Username     string
	Password     string
	RefreshToken string
	Scope        string // space separated, empty requests every allowed scope
}

// Token runs the grant state machine and returns a freshly issued pair.
func (s *Service) Token(ctx context.Context, req TokenRequest) (*models.TokenPair, error) {
	ctx, span := s.tracer.Start(ctx, "oauth.Token")
	defer span.End()
	span.SetAttributes(attribute.String("oauth.grant_type", req.GrantType))

	var (
		pair *models.TokenPair
		err  error
	)

	switch req.GrantType {
	case "":
		err = newError(CodeInvalidRequest, "grant_type is required")
	case GrantPassword:
		pair, err = s.passwordGrant(ctx, req)
	case GrantRefreshToken:
		pair, err = s.refreshGrant(ctx, req)
	default:
		err = newError(CodeUnsupportedGrantType, fmt.Sprintf("grant type %q is not supported", req.GrantType))
	}

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return pair, nil
}

func (s *Service) passwordGrant(ctx context.Context, req TokenRequest) (*models.TokenPair, error) {
	if req.Username == "" || req.Password == "" || req.RefreshToken != "" {
		return nil, newError(CodeInvalidRequest, "the password grant requires username and password only")
	}

	// одинаковая ошибка для неизвестного пользователя и неверного пароля
	rejected := invalidGrant("invalid username or password")

	account, err := s.store.GetAccountByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.verifyDummy(ctx, req.Password)
			s.logger.InfoContext(ctx, "password grant for unknown user", slog.String("username", req.Username))
			return nil, rejected
		}
		return nil, storageError("failed to load account", err)
	}

	if err := s.hasher.Verify(account.PasswordHash, req.Password); err != nil {
		if !errors.Is(err, crypto.ErrMismatchedPassword) {
			s.logger.ErrorContext(ctx, "failed to verify password hash", slog.Int64("account_id", account.ID), slog.Any("error", err))
		}
		s.logger.InfoContext(ctx, "password grant rejected", slog.String("username", req.Username))
		return nil, rejected
	}

	if !account.IsActive {
		s.logger.InfoContext(ctx, "password grant for disabled account", slog.String("username", req.Username))
		return nil, rejected
	}

	requested := models.ParseScope(req.Scope)

	var pair *models.TokenPair
	err = s.store.InTx(ctx, func(tx storage.Store) error {
		allowed, err := tx.ResolveScopes(ctx, account.ID)
		if err != nil {
			return storageError("failed to resolve scopes", err)
		}

		scopes, err := selectScopes(allowed, requested)
		if err != nil {
			return err
		}

		pair, err = s.issue(ctx, tx, account.ID, scopes)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "tokens issued",
		slog.String("grant_type", GrantPassword),
		slog.String("username", account.Username),
		slog.String("scope", pair.Access.Scopes.String()),
	)
	s.notifier.TokensIssued(account.Username, *pair)

	return pair, nil
}

func (s *Service) refreshGrant(ctx context.Context, req TokenRequest) (*models.TokenPair, error) {
	if req.RefreshToken == "" || req.Username != "" || req.Password != "" {
		return nil, newError(CodeInvalidRequest, "the refresh_token grant requires refresh_token only")
	}

	requested := models.ParseScope(req.Scope)

	var (
		pair    *models.TokenPair
		account *models.Account
	)
	err := s.store.InTx(ctx, func(tx storage.Store) error {
		old, err := tx.GetRefreshToken(ctx, req.RefreshToken)
		if err != nil {
			return storageError("failed to load refresh token", err)
		}
		if old == nil {
			return invalidGrant("unknown refresh token")
		}

		now := s.now().Unix()
		if old.ExpiredAt(now) {
			return invalidGrant("refresh token expired")
		}
		if now < old.CreatedAt {
			return invalidGrant("refresh token not yet valid")
		}

		account, err = tx.GetAccountByID(ctx, old.AccountID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return invalidGrant("refresh token owner does not exist")
			}
			return storageError("failed to load account", err)
		}
		if !account.IsActive {
			return invalidGrant("account is disabled")
		}

		scopes, err := selectScopes(old.Scopes, requested)
		if err != nil {
			return err
		}

		// ноль удаленных строк означает, что токен уже использован параллельным запросом
		if err := tx.DeleteRefreshToken(ctx, old.ID); err != nil {
			if errors.Is(err, storage.ErrTokenNotFound) {
				return invalidGrant("refresh token already used")
			}
			return storageError("failed to rotate refresh token", err)
		}

		pair, err = s.issue(ctx, tx, account.ID, scopes)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "tokens issued",
		slog.String("grant_type", GrantRefreshToken),
		slog.String("username", account.Username),
		slog.String("scope", pair.Access.Scopes.String()),
	)
	s.notifier.TokensRevoked(req.RefreshToken)
	s.notifier.TokensIssued(account.Username, *pair)

	return pair, nil
}

// verifyDummy runs one Verify against a hash of a random secret, so an unknown
// username costs as much as a wrong password.
func (s *Service) verifyDummy(ctx context.Context, password string) {
	s.dummyOnce.Do(func() {
		secret, err := crypto.NewToken()
		if err == nil {
			s.dummyHash, err = s.hasher.Hash(secret)
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to prepare dummy password hash", slog.Any("error", err))
		}
	})
	if s.dummyHash != "" {
		_ = s.hasher.Verify(s.dummyHash, password)
	}
}

// selectScopes applies the request to the allowed set. An empty request takes
// everything; otherwise every requested value must be allowed.
func selectScopes(allowed, requested models.ScopeSet) (models.ScopeSet, error) {
	if len(requested) == 0 {
		return allowed, nil
	}

	if missing := requested.Missing(allowed); len(missing) > 0 {
		return nil, &Error{
			Code:          CodeInvalidScope,
			Description:   "requested scope exceeds the granted scopes",
			MissingScopes: missing,
		}
	}

	return requested, nil
}

// issue persists a new access/refresh pair inside tx.
func (s *Service) issue(ctx context.Context, tx storage.Store, accountID int64, scopes models.ScopeSet) (*models.TokenPair, error) {
	accessValue, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshValue, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := s.now()

	refresh := &models.RefreshToken{
		Token:     refreshValue,
		AccountID: accountID,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(s.refreshTTL).Unix(),
		Scopes:    scopes,
	}
	if err := tx.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, storageError("failed to store refresh token", err)
	}

	access := &models.AccessToken{
		Token:          accessValue,
		AccountID:      accountID,
		RefreshTokenID: &refresh.ID,
		CreatedAt:      now.Unix(),
		ExpiresAt:      now.Add(s.accessTTL).Unix(),
		IsActive:       true,
		Scopes:         scopes,
	}
	if err := tx.CreateAccessToken(ctx, access); err != nil {
		return nil, storageError("failed to store access token", err)
	}

	return &models.TokenPair{Access: access, Refresh: refresh}, nil
}
