package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/storage"
)

const accountColumns = `id, first_name, last_name, username, password_hash, is_active`

func scanAccount(row interface{ Scan(dest ...any) error }) (*models.Account, error) {
	account := &models.Account{}
	err := row.Scan(
		&account.ID,
		&account.FirstName,
		&account.LastName,
		&account.Username,
		&account.PasswordHash,
		&account.IsActive,
	)
	return account, err
}

// CreateAccount creates a new account in the storage
func (s *Storage) CreateAccount(ctx context.Context, account *models.Account) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO accounts (first_name, last_name, username, password_hash, is_active)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`

	err := s.queryRow(ctx, query,
		account.FirstName,
		account.LastName,
		account.Username,
		account.PasswordHash,
		account.IsActive,
	).Scan(&account.ID)

	if err != nil {
		return fmt.Errorf("failed to insert account: %w", s.mapError(err))
	}

	return nil
}

// GetAccountByID retrieves account by ID
func (s *Storage) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

	account, err := scanAccount(s.queryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", s.mapError(err))
	}

	return account, nil
}

// GetAccountByUsername retrieves account by username
func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = ?`

	account, err := scanAccount(s.queryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", s.mapError(err))
	}

	return account, nil
}

// ListAccounts returns all accounts ordered by ID
func (s *Storage) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY id`

	rows, err := s.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", s.mapError(err))
	}

	return accounts, nil
}

// UpdateAccount updates account information
func (s *Storage) UpdateAccount(ctx context.Context, account *models.Account) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE accounts
		SET first_name = ?, last_name = ?, username = ?, password_hash = ?, is_active = ?
		WHERE id = ?
	`

	result, err := s.exec(ctx, query,
		account.FirstName,
		account.LastName,
		account.Username,
		account.PasswordHash,
		account.IsActive,
		account.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	return affected(result, storage.ErrNotFound)
}

// DeleteAccount deletes account by ID, tokens and associations go with it via FK cascade
func (s *Storage) DeleteAccount(ctx context.Context, id int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.exec(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	return affected(result, storage.ErrNotFound)
}

// CountAccounts returns the number of accounts
func (s *Storage) CountAccounts(ctx context.Context) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", s.mapError(err))
	}
	return n, nil
}

// CountActiveAdmins returns the number of active accounts holding the admin scope
func (s *Storage) CountActiveAdmins(ctx context.Context) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT COUNT(*) FROM accounts a
		WHERE a.is_active = ? AND (
			EXISTS (
				SELECT 1 FROM account_scopes x
				JOIN scopes sc ON sc.id = x.scope_id
				WHERE x.account_id = a.id AND sc.value = ?
			) OR EXISTS (
				SELECT 1 FROM account_roles ar
				JOIN role_scopes rs ON rs.role_id = ar.role_id
				JOIN scopes sc ON sc.id = rs.scope_id
				WHERE ar.account_id = a.id AND sc.value = ?
			)
		)
	`

	var n int
	if err := s.queryRow(ctx, query, true, models.AdminScope, models.AdminScope).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", s.mapError(err))
	}
	return n, nil
}

// AssignScopes links scopes by value, unknown values are returned as missing
func (s *Storage) AssignScopes(ctx context.Context, accountID int64, values []string) ([]string, error) {
	query := `
		INSERT INTO account_scopes (account_id, scope_id)
		SELECT CAST(? AS BIGINT), id FROM scopes WHERE value = ?
		ON CONFLICT DO NOTHING
	`
	return s.assign(ctx, query, `SELECT COUNT(*) FROM scopes WHERE value = ?`, accountID, values)
}

// AssignRoles links roles by name, unknown names are returned as missing
func (s *Storage) AssignRoles(ctx context.Context, accountID int64, names []string) ([]string, error) {
	query := `
		INSERT INTO account_roles (account_id, role_id)
		SELECT CAST(? AS BIGINT), id FROM roles WHERE name = ?
		ON CONFLICT DO NOTHING
	`
	return s.assign(ctx, query, `SELECT COUNT(*) FROM roles WHERE name = ?`, accountID, names)
}

// assign выполняет insert-select для каждого имени.
// Ноль затронутых строк означает либо отсутствующую запись, либо уже существующую связь,
// поэтому существование проверяется отдельным запросом.
func (s *Storage) assign(ctx context.Context, insert, exists string, ownerID int64, names []string) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var missing []string
	for _, name := range names {
		result, err := s.exec(ctx, insert, ownerID, name)
		if err != nil {
			return nil, fmt.Errorf("failed to assign %q: %w", name, err)
		}
		n, err := count(result)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			continue
		}

		var found int
		if err := s.queryRow(ctx, exists, name).Scan(&found); err != nil {
			return nil, fmt.Errorf("failed to check %q: %w", name, s.mapError(err))
		}
		if found == 0 {
			missing = append(missing, name)
		}
	}

	return missing, nil
}

// ClearScopes removes all direct scope assignments
func (s *Storage) ClearScopes(ctx context.Context, accountID int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.exec(ctx, `DELETE FROM account_scopes WHERE account_id = ?`, accountID); err != nil {
		return fmt.Errorf("failed to clear account scopes: %w", err)
	}
	return nil
}

// ClearRoles removes all role assignments
func (s *Storage) ClearRoles(ctx context.Context, accountID int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.exec(ctx, `DELETE FROM account_roles WHERE account_id = ?`, accountID); err != nil {
		return fmt.Errorf("failed to clear account roles: %w", err)
	}
	return nil
}

// AccountScopes returns the directly assigned scope values
func (s *Storage) AccountScopes(ctx context.Context, accountID int64) ([]string, error) {
	query := `
		SELECT sc.value FROM scopes sc
		JOIN account_scopes x ON x.scope_id = sc.id
		WHERE x.account_id = ?
		ORDER BY sc.value
	`
	return s.stringColumn(ctx, query, accountID)
}

// AccountRoles returns the names of assigned roles
func (s *Storage) AccountRoles(ctx context.Context, accountID int64) ([]string, error) {
	query := `
		SELECT r.name FROM roles r
		JOIN account_roles ar ON ar.role_id = r.id
		WHERE ar.account_id = ?
		ORDER BY r.name
	`
	return s.stringColumn(ctx, query, accountID)
}

// ResolveScopes returns direct scopes united with scopes inherited from roles
func (s *Storage) ResolveScopes(ctx context.Context, accountID int64) (models.ScopeSet, error) {
	query := `
		SELECT sc.value FROM scopes sc
		JOIN account_scopes x ON x.scope_id = sc.id
		WHERE x.account_id = ?
		UNION
		SELECT sc.value FROM scopes sc
		JOIN role_scopes rs ON rs.scope_id = sc.id
		JOIN account_roles ar ON ar.role_id = rs.role_id
		WHERE ar.account_id = ?
	`
	values, err := s.stringColumn(ctx, query, accountID, accountID)
	if err != nil {
		return nil, err
	}
	return models.NewScopeSet(values...), nil
}

// stringColumn выполняет запрос, возвращающий одну текстовую колонку
func (s *Storage) stringColumn(ctx context.Context, query string, args ...any) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		out = append(out, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", s.mapError(err))
	}

	return out, nil
}
