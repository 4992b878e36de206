package storage

import (
	"context"

	"github.com/wisdom-oss/authorization-service/internal/models"
)

// AccountStorage defines interface for account persistence
type AccountStorage interface {
	// CreateAccount inserts a new account and sets its ID
	// Returns ErrDuplicateEntry if username already exists
	CreateAccount(ctx context.Context, account *models.Account) error

	// GetAccountByID retrieves account by ID
	// Returns ErrNotFound if account doesn't exist
	GetAccountByID(ctx context.Context, id int64) (*models.Account, error)

	// GetAccountByUsername retrieves account by username
	// Returns ErrNotFound if account doesn't exist
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)

	// ListAccounts returns all accounts ordered by ID
	ListAccounts(ctx context.Context) ([]*models.Account, error)

	// UpdateAccount overwrites names, username, password hash and active flag
	// Returns ErrNotFound if account doesn't exist, ErrDuplicateEntry on username clash
	UpdateAccount(ctx context.Context, account *models.Account) error

	// DeleteAccount deletes account, its tokens and associations
	// Returns ErrNotFound if account doesn't exist
	DeleteAccount(ctx context.Context, id int64) error

	// CountAccounts returns the number of accounts
	CountAccounts(ctx context.Context) (int, error)

	// CountActiveAdmins returns the number of active accounts holding the admin scope
	// directly or through a role
	CountActiveAdmins(ctx context.Context) (int, error)

	// AssignScopes links scopes by value to the account
	// Unknown values are skipped and returned as missing
	AssignScopes(ctx context.Context, accountID int64, values []string) (missing []string, err error)

	// AssignRoles links roles by name to the account
	// Unknown names are skipped and returned as missing
	AssignRoles(ctx context.Context, accountID int64, names []string) (missing []string, err error)

	// ClearScopes removes all direct scope assignments of the account
	ClearScopes(ctx context.Context, accountID int64) error

	// ClearRoles removes all role assignments of the account
	ClearRoles(ctx context.Context, accountID int64) error

	// AccountScopes returns the directly assigned scope values
	AccountScopes(ctx context.Context, accountID int64) ([]string, error)

	// AccountRoles returns the names of the assigned roles
	AccountRoles(ctx context.Context, accountID int64) ([]string, error)

	// ResolveScopes returns direct scopes united with scopes of all assigned roles
	ResolveScopes(ctx context.Context, accountID int64) (models.ScopeSet, error)
}

// ScopeStorage defines interface for scope persistence
type ScopeStorage interface {
	// CreateScope inserts a scope and sets its ID
	// Returns ErrDuplicateEntry if value already exists
	CreateScope(ctx context.Context, scope *models.Scope) error

	// EnsureScope creates the scope unless one with the same value exists
	EnsureScope(ctx context.Context, scope *models.Scope) (created bool, err error)

	// GetScopeByID returns ErrNotFound if scope doesn't exist
	GetScopeByID(ctx context.Context, id int64) (*models.Scope, error)

	// GetScopeByValue returns ErrNotFound if scope doesn't exist
	GetScopeByValue(ctx context.Context, value string) (*models.Scope, error)

	// ListScopes returns all scopes ordered by ID
	ListScopes(ctx context.Context) ([]*models.Scope, error)

	// UpdateScope overwrites name and description
	// Returns ErrNotFound if scope doesn't exist
	UpdateScope(ctx context.Context, scope *models.Scope) error

	// DeleteScope deletes the scope and every association referencing it
	// Returns ErrNotFound if scope doesn't exist
	DeleteScope(ctx context.Context, id int64) error
}

// RoleStorage defines interface for role persistence
type RoleStorage interface {
	// CreateRole inserts a role and sets its ID, role scopes are not touched
	// Returns ErrDuplicateEntry if name already exists
	CreateRole(ctx context.Context, role *models.Role) error

	// GetRoleByID returns the role with its scope values
	// Returns ErrNotFound if role doesn't exist
	GetRoleByID(ctx context.Context, id int64) (*models.Role, error)

	// GetRoleByName returns ErrNotFound if role doesn't exist
	GetRoleByName(ctx context.Context, name string) (*models.Role, error)

	// ListRoles returns all roles with their scope values
	ListRoles(ctx context.Context) ([]*models.Role, error)

	// UpdateRole overwrites name and description
	// Returns ErrNotFound if role doesn't exist, ErrDuplicateEntry on name clash
	UpdateRole(ctx context.Context, role *models.Role) error

	// DeleteRole deletes the role and every association referencing it
	// Returns ErrNotFound if role doesn't exist
	DeleteRole(ctx context.Context, id int64) error

	// SetRoleScopes replaces the scopes granted by the role
	// Unknown values are skipped and returned as missing
	SetRoleScopes(ctx context.Context, roleID int64, values []string) (missing []string, err error)

	// AccountsWithRole returns IDs of accounts holding the role
	AccountsWithRole(ctx context.Context, roleID int64) ([]int64, error)
}

// ClientStorage defines interface for message bus client credentials
type ClientStorage interface {
	// UpsertClientCredential creates or replaces credentials for ClientID
	UpsertClientCredential(ctx context.Context, client *models.ClientCredential) error

	// GetClientCredential returns ErrNotFound if client doesn't exist
	GetClientCredential(ctx context.Context, clientID string) (*models.ClientCredential, error)
}
