// Package identity manages accounts, scopes and roles. Every change that
// affects what an account may do deletes the account's tokens in the same
// transaction.
package identity

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/wisdom-oss/authorization-service/internal/crypto"
	"github.com/wisdom-oss/authorization-service/internal/server/storage"
)

// Notifier receives the values of tokens deleted by a cascade.
type Notifier interface {
	TokensRevoked(tokens ...string)
}

type nopNotifier struct{}

func (nopNotifier) TokensRevoked(...string) {}

// Service implements identity management on top of storage.Store.
type Service struct {
	logger   *slog.Logger
	store    storage.Store
	hasher   crypto.PasswordHasher
	notifier Notifier
}

// NewService создает сервис управления учетными записями
func NewService(logger *slog.Logger, store storage.Store, hasher crypto.PasswordHasher, notifier Notifier) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{
		logger:   logger,
		store:    store,
		hasher:   hasher,
		notifier: notifier,
	}
}

// revokeAccountTokens удаляет все токены аккаунта внутри tx и возвращает их значения
func revokeAccountTokens(ctx context.Context, tx storage.Store, accountID int64) ([]string, error) {
	access, refresh, err := tx.TokensForAccount(ctx, accountID)
	if err != nil {
		return nil, storageError("tokens", err)
	}

	tokens := make([]string, 0, len(access)+len(refresh))
	for _, t := range access {
		tokens = append(tokens, t.Token)
	}
	for _, t := range refresh {
		tokens = append(tokens, t.Token)
	}

	if _, err := tx.DeleteAccountTokens(ctx, accountID); err != nil {
		return nil, storageError("tokens", err)
	}

	return tokens, nil
}

// ensureAdminRemains отклоняет изменения, после которых не осталось активного администратора
func ensureAdminRemains(ctx context.Context, tx storage.Store) error {
	n, err := tx.CountActiveAdmins(ctx)
	if err != nil {
		return storageError("administrators", err)
	}
	if n == 0 {
		return &Error{Code: CodeAdminDeadlock, Description: "the change would leave the service without an active administrator"}
	}
	return nil
}

func (s *Service) notifyRevoked(ctx context.Context, reason string, tokens []string) {
	if len(tokens) == 0 {
		return
	}
	s.logger.InfoContext(ctx, "tokens revoked by cascade",
		slog.String("reason", reason),
		slog.Int("count", len(tokens)),
	)
	s.notifier.TokensRevoked(tokens...)
}

// parseID reports whether ref is a numeric id.
func parseID(ref string) (int64, bool) {
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
