package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/storage"
)

func TestAccountStorage_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	account := createTestAccount(t, ctx, s)

	tests := []struct {
		get       func() (*models.Account, error)
		wantError error
		name      string
	}{
		{
			name: "get by id",
			get:  func() (*models.Account, error) { return s.GetAccountByID(ctx, account.ID) },
		},
		{
			name: "get by username",
			get:  func() (*models.Account, error) { return s.GetAccountByUsername(ctx, account.Username) },
		},
		{
			name:      "unknown id",
			get:       func() (*models.Account, error) { return s.GetAccountByID(ctx, account.ID+100) },
			wantError: storage.ErrNotFound,
		},
		{
			name:      "unknown username",
			get:       func() (*models.Account, error) { return s.GetAccountByUsername(ctx, "nobody") },
			wantError: storage.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.get()
			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, account, got)
		})
	}
}

func TestAccountStorage_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	account := createTestAccount(t, ctx, s)

	err := s.CreateAccount(ctx, &models.Account{Username: account.Username, PasswordHash: "x", IsActive: true})
	assert.ErrorIs(t, err, storage.ErrDuplicateEntry)

	other := createTestAccount(t, ctx, s)
	other.Username = account.Username
	assert.ErrorIs(t, s.UpdateAccount(ctx, other), storage.ErrDuplicateEntry)
}

func TestAccountStorage_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	account := createTestAccount(t, ctx, s)
	account.FirstName = "Changed"
	account.IsActive = false
	require.NoError(t, s.UpdateAccount(ctx, account))

	got, err := s.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Changed", got.FirstName)
	assert.False(t, got.IsActive)

	require.NoError(t, s.DeleteAccount(ctx, account.ID))
	assert.ErrorIs(t, s.DeleteAccount(ctx, account.ID), storage.ErrNotFound)
	assert.ErrorIs(t, s.UpdateAccount(ctx, account), storage.ErrNotFound)

	n, err := s.CountAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAccountStorage_AssignAndResolve(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	createTestScope(t, ctx, s, "me")
	createTestScope(t, ctx, s, "deploy")
	createTestScope(t, ctx, s, "metrics")

	ops := &models.Role{Name: "ops"}
	require.NoError(t, s.CreateRole(ctx, ops))
	missing, err := s.SetRoleScopes(ctx, ops.ID, []string{"deploy", "me"})
	require.NoError(t, err)
	assert.Empty(t, missing)

	alice := createTestAccount(t, ctx, s)

	missing, err = s.AssignScopes(ctx, alice.ID, []string{"me", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost"}, missing)

	// повторное назначение не считается отсутствующим
	missing, err = s.AssignScopes(ctx, alice.ID, []string{"me"})
	require.NoError(t, err)
	assert.Empty(t, missing)

	missing, err = s.AssignRoles(ctx, alice.ID, []string{"ops", "nope"})
	require.NoError(t, err)
	assert.Equal(t, []string{"nope"}, missing)

	direct, err := s.AccountScopes(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"me"}, direct)

	roles, err := s.AccountRoles(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ops"}, roles)

	resolved, err := s.ResolveScopes(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"deploy", "me"}, resolved.Values())

	require.NoError(t, s.ClearRoles(ctx, alice.ID))
	require.NoError(t, s.ClearScopes(ctx, alice.ID))

	resolved, err = s.ResolveScopes(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, resolved)
}

func TestAccountStorage_CountActiveAdmins(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	createTestScope(t, ctx, s, models.AdminScope)

	n, err := s.CountActiveAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	direct := createTestAccount(t, ctx, s)
	_, err = s.AssignScopes(ctx, direct.ID, []string{models.AdminScope})
	require.NoError(t, err)

	admins := &models.Role{Name: "administrators"}
	require.NoError(t, s.CreateRole(ctx, admins))
	_, err = s.SetRoleScopes(ctx, admins.ID, []string{models.AdminScope})
	require.NoError(t, err)

	viaRole := createTestAccount(t, ctx, s)
	_, err = s.AssignRoles(ctx, viaRole.ID, []string{"administrators"})
	require.NoError(t, err)

	n, err = s.CountActiveAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	viaRole.IsActive = false
	require.NoError(t, s.UpdateAccount(ctx, viaRole))

	n, err = s.CountActiveAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
