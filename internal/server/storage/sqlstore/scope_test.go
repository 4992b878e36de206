package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/storage"
)

func TestScopeStorage_CRUD(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	scope := createTestScope(t, ctx, s, "water:read")

	assert.ErrorIs(t, s.CreateScope(ctx, &models.Scope{Name: "dup", Value: "water:read"}), storage.ErrDuplicateEntry)

	byValue, err := s.GetScopeByValue(ctx, "water:read")
	require.NoError(t, err)
	assert.Equal(t, scope, byValue)

	scope.Name = "Read water data"
	scope.Description = "changed"
	require.NoError(t, s.UpdateScope(ctx, scope))

	byID, err := s.GetScopeByID(ctx, scope.ID)
	require.NoError(t, err)
	assert.Equal(t, "Read water data", byID.Name)
	assert.Equal(t, "changed", byID.Description)

	list, err := s.ListScopes(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteScope(ctx, scope.ID))
	assert.ErrorIs(t, s.DeleteScope(ctx, scope.ID), storage.ErrNotFound)
	assert.ErrorIs(t, s.UpdateScope(ctx, scope), storage.ErrNotFound)

	_, err = s.GetScopeByID(ctx, scope.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestScopeStorage_EnsureScope(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	first := &models.Scope{Name: "Administration", Value: models.AdminScope}
	created, err := s.EnsureScope(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	second := &models.Scope{Name: "Other name", Value: models.AdminScope}
	created, err = s.EnsureScope(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Administration", second.Name)
}

func TestScopeStorage_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	deploy := createTestScope(t, ctx, s, "deploy")
	createTestScope(t, ctx, s, "me")

	role := &models.Role{Name: "ops"}
	require.NoError(t, s.CreateRole(ctx, role))
	_, err := s.SetRoleScopes(ctx, role.ID, []string{"deploy"})
	require.NoError(t, err)

	account := createTestAccount(t, ctx, s)
	_, err = s.AssignScopes(ctx, account.ID, []string{"deploy", "me"})
	require.NoError(t, err)

	token := &models.AccessToken{
		Token: "snapshot", AccountID: account.ID, CreatedAt: 1, ExpiresAt: 2, IsActive: true,
		Scopes: models.NewScopeSet("deploy", "me"),
	}
	require.NoError(t, s.CreateAccessToken(ctx, token))

	require.NoError(t, s.DeleteScope(ctx, deploy.ID))

	direct, err := s.AccountScopes(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"me"}, direct)

	gotRole, err := s.GetRoleByID(ctx, role.ID)
	require.NoError(t, err)
	assert.Empty(t, gotRole.Scopes)

	gotToken, err := s.GetAccessToken(ctx, "snapshot")
	require.NoError(t, err)
	assert.Equal(t, []string{"me"}, gotToken.Scopes.Values())
}

func TestRoleStorage_CRUD(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	createTestScope(t, ctx, s, "deploy")
	createTestScope(t, ctx, s, "metrics")

	role := &models.Role{Name: "ops", Description: "operators"}
	require.NoError(t, s.CreateRole(ctx, role))
	assert.ErrorIs(t, s.CreateRole(ctx, &models.Role{Name: "ops"}), storage.ErrDuplicateEntry)

	missing, err := s.SetRoleScopes(ctx, role.ID, []string{"deploy", "metrics", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost"}, missing)

	byName, err := s.GetRoleByName(ctx, "ops")
	require.NoError(t, err)
	assert.Equal(t, []string{"deploy", "metrics"}, byName.Scopes)

	// замена, а не добавление
	_, err = s.SetRoleScopes(ctx, role.ID, []string{"metrics"})
	require.NoError(t, err)

	roles, err := s.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, []string{"metrics"}, roles[0].Scopes)

	role.Name = "operators"
	require.NoError(t, s.UpdateRole(ctx, role))
	_, err = s.GetRoleByName(ctx, "ops")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	account := createTestAccount(t, ctx, s)
	_, err = s.AssignRoles(ctx, account.ID, []string{"operators"})
	require.NoError(t, err)

	holders, err := s.AccountsWithRole(ctx, role.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{account.ID}, holders)

	require.NoError(t, s.DeleteRole(ctx, role.ID))
	assert.ErrorIs(t, s.DeleteRole(ctx, role.ID), storage.ErrNotFound)

	names, err := s.AccountRoles(ctx, account.ID)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestClientStorage_Upsert(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	client := &models.ClientCredential{ClientID: "gateway", SecretHash: "h1", Description: "first", CreatedAt: 10}
	require.NoError(t, s.UpsertClientCredential(ctx, client))

	replaced := &models.ClientCredential{ClientID: "gateway", SecretHash: "h2", Description: "second", CreatedAt: 20}
	require.NoError(t, s.UpsertClientCredential(ctx, replaced))

	got, err := s.GetClientCredential(ctx, "gateway")
	require.NoError(t, err)
	assert.Equal(t, "h2", got.SecretHash)
	assert.Equal(t, "second", got.Description)
	assert.Equal(t, int64(10), got.CreatedAt)
	assert.Equal(t, client.ID, got.ID)

	_, err = s.GetClientCredential(ctx, "unknown")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
