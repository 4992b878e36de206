package oauth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wisdom-oss/authorization-service/internal/server/storage"
)

// Revoke permanently deletes token. Unknown tokens succeed silently.
// The caller must own the token or hold the administration scope.
// Revoking a refresh token also deletes the access tokens issued alongside it.
func (s *Service) Revoke(ctx context.Context, caller *Principal, token string) error {
	ctx, span := s.tracer.Start(ctx, "oauth.Revoke")
	defer span.End()

	if token == "" {
		return newError(CodeInvalidRequest, "token is required")
	}
	if caller == nil || caller.Account == nil {
		return newError(CodeAccessDenied, "revocation requires an authenticated caller")
	}

	var revoked []string
	err := s.store.InTx(ctx, func(tx storage.Store) error {
		access, err := tx.GetAccessToken(ctx, token)
		if err != nil {
			return storageError("failed to load access token", err)
		}
		refresh, err := tx.GetRefreshToken(ctx, token)
		if err != nil {
			return storageError("failed to load refresh token", err)
		}

		if access == nil && refresh == nil {
			return nil
		}

		if !caller.IsAdmin() {
			if (access != nil && access.AccountID != caller.Account.ID) ||
				(refresh != nil && refresh.AccountID != caller.Account.ID) {
				return newError(CodeAccessDenied, "the token belongs to another account")
			}
		}

		if access != nil {
			if err := tx.DeleteAccessToken(ctx, access.ID); err != nil && !errors.Is(err, storage.ErrTokenNotFound) {
				return storageError("failed to delete access token", err)
			}
			revoked = append(revoked, access.Token)
		}

		if refresh != nil {
			paired, _, err := tx.TokensForAccount(ctx, refresh.AccountID)
			if err != nil {
				return storageError("failed to list paired tokens", err)
			}
			if _, err := tx.DeleteAccessTokensByRefresh(ctx, refresh.ID); err != nil {
				return storageError("failed to delete paired access tokens", err)
			}
			for _, at := range paired {
				if at.RefreshTokenID != nil && *at.RefreshTokenID == refresh.ID {
					revoked = append(revoked, at.Token)
				}
			}

			if err := tx.DeleteRefreshToken(ctx, refresh.ID); err != nil && !errors.Is(err, storage.ErrTokenNotFound) {
				return storageError("failed to delete refresh token", err)
			}
			revoked = append(revoked, refresh.Token)
		}

		return nil
	})
	if err != nil {
		return err
	}

	if len(revoked) > 0 {
		s.logger.InfoContext(ctx, "tokens revoked",
			slog.Int64("caller_id", caller.Account.ID),
			slog.Int("count", len(revoked)),
		)
		s.notifier.TokensRevoked(revoked...)
	}

	return nil
}
