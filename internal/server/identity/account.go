package identity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wisdom-oss/authorization-service/internal/crypto"
	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/storage"
	"github.com/wisdom-oss/authorization-service/internal/validation"
)

// NewAccount describes an account to create.
type NewAccount struct {
	FirstName string
	LastName  string
	Username  string
	Password  string
	Scopes    []string
	Roles     []string
}

// AccountUpdate describes a partial account update. nil fields stay unchanged.
type AccountUpdate struct {
	FirstName *string
	LastName  *string
	Username  *string
	Password  *string
	Active    *bool
	Scopes    *[]string
	Roles     *[]string
	// KeepOldScopes adds Scopes and Roles to the existing assignments instead of replacing them
	KeepOldScopes bool
}

// CreateAccount creates an account with its direct scopes and roles.
// Unknown scope and role names are logged and skipped.
func (s *Service) CreateAccount(ctx context.Context, in NewAccount) (*models.AccountDetails, error) {
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, invalidRequest("%s", err)
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, invalidRequest("%s", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Username:     in.Username,
		PasswordHash: hash,
		IsActive:     true,
	}

	var details *models.AccountDetails
	err = s.store.InTx(ctx, func(tx storage.Store) error {
		if err := tx.CreateAccount(ctx, account); err != nil {
			return storageError("account", err)
		}
		if err := s.assignScopes(ctx, tx, account.ID, in.Scopes); err != nil {
			return err
		}
		if err := s.assignRoles(ctx, tx, account.ID, in.Roles); err != nil {
			return err
		}

		details, err = loadDetails(ctx, tx, account)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "account created", slog.Int64("account_id", account.ID), slog.String("username", account.Username))
	return details, nil
}

// GetAccount returns the account with its direct scopes and roles.
func (s *Service) GetAccount(ctx context.Context, id int64) (*models.AccountDetails, error) {
	account, err := s.store.GetAccountByID(ctx, id)
	if err != nil {
		return nil, storageError("account", err)
	}
	return loadDetails(ctx, s.store, account)
}

// ListAccounts returns every account ordered by id.
func (s *Service) ListAccounts(ctx context.Context) ([]*models.AccountDetails, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, storageError("accounts", err)
	}

	out := make([]*models.AccountDetails, 0, len(accounts))
	for _, account := range accounts {
		details, err := loadDetails(ctx, s.store, account)
		if err != nil {
			return nil, err
		}
		out = append(out, details)
	}
	return out, nil
}

// UpdateAccount applies a partial update. Changes of username, password,
// active flag, scopes or roles delete every token of the account.
func (s *Service) UpdateAccount(ctx context.Context, id int64, upd AccountUpdate) (*models.AccountDetails, error) {
	if upd.Username != nil {
		if err := validation.ValidateUsername(*upd.Username); err != nil {
			return nil, invalidRequest("%s", err)
		}
	}

	var hash string
	if upd.Password != nil {
		if err := validation.ValidatePassword(*upd.Password); err != nil {
			return nil, invalidRequest("%s", err)
		}
		var err error
		if hash, err = s.hasher.Hash(*upd.Password); err != nil {
			return nil, err
		}
	}

	var (
		details *models.AccountDetails
		revoked []string
	)
	err := s.store.InTx(ctx, func(tx storage.Store) error {
		account, err := tx.GetAccountByID(ctx, id)
		if err != nil {
			return storageError("account", err)
		}

		cascade := false
		if upd.FirstName != nil {
			account.FirstName = *upd.FirstName
		}
		if upd.LastName != nil {
			account.LastName = *upd.LastName
		}
		if upd.Username != nil && *upd.Username != account.Username {
			account.Username = *upd.Username
			cascade = true
		}
		if upd.Password != nil {
			account.PasswordHash = hash
			cascade = true
		}
		if upd.Active != nil && *upd.Active != account.IsActive {
			account.IsActive = *upd.Active
			cascade = true
		}

		if err := tx.UpdateAccount(ctx, account); err != nil {
			return storageError("account", err)
		}

		if upd.Scopes != nil {
			changed, err := s.reassign(ctx, "scope", account.ID, *upd.Scopes, upd.KeepOldScopes,
				tx.AccountScopes, tx.ClearScopes, tx.AssignScopes)
			if err != nil {
				return err
			}
			cascade = cascade || changed
		}
		if upd.Roles != nil {
			changed, err := s.reassign(ctx, "role", account.ID, *upd.Roles, upd.KeepOldScopes,
				tx.AccountRoles, tx.ClearRoles, tx.AssignRoles)
			if err != nil {
				return err
			}
			cascade = cascade || changed
		}

		if cascade {
			if err := ensureAdminRemains(ctx, tx); err != nil {
				return err
			}
			if revoked, err = revokeAccountTokens(ctx, tx, account.ID); err != nil {
				return err
			}
		}

		details, err = loadDetails(ctx, tx, account)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "account updated", slog.Int64("account_id", id))
	s.notifyRevoked(ctx, "account updated", revoked)
	return details, nil
}

// SetActive enables or disables an account.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (*models.AccountDetails, error) {
	return s.UpdateAccount(ctx, id, AccountUpdate{Active: &active})
}

// ChangePassword is the self-service password change confirmed by the old password.
func (s *Service) ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return invalidRequest("%s", err)
	}

	account, err := s.store.GetAccountByID(ctx, id)
	if err != nil {
		return storageError("account", err)
	}

	if err := s.hasher.Verify(account.PasswordHash, oldPassword); err != nil {
		if !errors.Is(err, crypto.ErrMismatchedPassword) {
			s.logger.ErrorContext(ctx, "failed to verify password hash", slog.Int64("account_id", id), slog.Any("error", err))
		}
		return &Error{Code: CodeIdentityConfirmation, Description: "the current password is not correct"}
	}

	_, err = s.UpdateAccount(ctx, id, AccountUpdate{Password: &newPassword})
	return err
}

// DeleteAccount deletes the account with all tokens and assignments.
func (s *Service) DeleteAccount(ctx context.Context, id int64) error {
	var revoked []string
	err := s.store.InTx(ctx, func(tx storage.Store) error {
		var err error
		if revoked, err = revokeAccountTokens(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.DeleteAccount(ctx, id); err != nil {
			return storageError("account", err)
		}
		return ensureAdminRemains(ctx, tx)
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "account deleted", slog.Int64("account_id", id))
	s.notifyRevoked(ctx, "account deleted", revoked)
	return nil
}

func (s *Service) assignScopes(ctx context.Context, tx storage.Store, accountID int64, values []string) error {
	missing, err := tx.AssignScopes(ctx, accountID, values)
	if err != nil {
		return storageError("scope assignment", err)
	}
	s.logMissing(ctx, "scope", accountID, missing)
	return nil
}

func (s *Service) assignRoles(ctx context.Context, tx storage.Store, accountID int64, names []string) error {
	missing, err := tx.AssignRoles(ctx, accountID, names)
	if err != nil {
		return storageError("role assignment", err)
	}
	s.logMissing(ctx, "role", accountID, missing)
	return nil
}

func (s *Service) logMissing(ctx context.Context, kind string, ownerID int64, missing []string) {
	if len(missing) == 0 {
		return
	}
	s.logger.WarnContext(ctx, "skipped assignment of unknown "+kind,
		slog.Int64("owner_id", ownerID),
		slog.Any("names", missing),
	)
}

// reassign заменяет (или дополняет при keep) назначения и сообщает, изменился ли набор
func (s *Service) reassign(
	ctx context.Context,
	kind string,
	accountID int64,
	names []string,
	keep bool,
	current func(context.Context, int64) ([]string, error),
	clearAll func(context.Context, int64) error,
	assign func(context.Context, int64, []string) ([]string, error),
) (bool, error) {
	before, err := current(ctx, accountID)
	if err != nil {
		return false, storageError(kind+" assignment", err)
	}

	if !keep {
		if err := clearAll(ctx, accountID); err != nil {
			return false, storageError(kind+" assignment", err)
		}
	}

	missing, err := assign(ctx, accountID, names)
	if err != nil {
		return false, storageError(kind+" assignment", err)
	}
	s.logMissing(ctx, kind, accountID, missing)

	after, err := current(ctx, accountID)
	if err != nil {
		return false, storageError(kind+" assignment", err)
	}

	return !models.NewScopeSet(before...).Equal(models.NewScopeSet(after...)), nil
}

func loadDetails(ctx context.Context, st storage.Store, account *models.Account) (*models.AccountDetails, error) {
	scopes, err := st.AccountScopes(ctx, account.ID)
	if err != nil {
		return nil, storageError("account scopes", err)
	}
	roles, err := st.AccountRoles(ctx, account.ID)
	if err != nil {
		return nil, storageError("account roles", err)
	}
	return &models.AccountDetails{Account: *account, Scopes: scopes, Roles: roles}, nil
}
