package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/storage"
)

func createTestPair(t *testing.T, ctx context.Context, s *Storage, accountID int64, access, refresh string, scopes ...string) (*models.AccessToken, *models.RefreshToken) {
	rt := &models.RefreshToken{
		Token:     refresh,
		AccountID: accountID,
		CreatedAt: 1000,
		ExpiresAt: 1000 + 604800,
		Scopes:    models.NewScopeSet(scopes...),
	}
	require.NoError(t, s.CreateRefreshToken(ctx, rt))

	at := &models.AccessToken{
		Token:          access,
		AccountID:      accountID,
		RefreshTokenID: &rt.ID,
		CreatedAt:      1000,
		ExpiresAt:      1000 + 3600,
		IsActive:       true,
		Scopes:         models.NewScopeSet(scopes...),
	}
	require.NoError(t, s.CreateAccessToken(ctx, at))

	return at, rt
}

func TestTokenStorage_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	createTestScope(t, ctx, s, "me")
	createTestScope(t, ctx, s, "deploy")
	account := createTestAccount(t, ctx, s)

	at, rt := createTestPair(t, ctx, s, account.ID, "access-1", "refresh-1", "me", "deploy")

	gotAccess, err := s.GetAccessToken(ctx, "access-1")
	require.NoError(t, err)
	require.NotNil(t, gotAccess)
	assert.Equal(t, at.ID, gotAccess.ID)
	assert.Equal(t, account.ID, gotAccess.AccountID)
	require.NotNil(t, gotAccess.RefreshTokenID)
	assert.Equal(t, rt.ID, *gotAccess.RefreshTokenID)
	assert.True(t, gotAccess.IsActive)
	assert.Equal(t, int64(4600), gotAccess.ExpiresAt)
	assert.Equal(t, []string{"deploy", "me"}, gotAccess.Scopes.Values())

	byID, err := s.GetAccessTokenByID(ctx, at.ID)
	require.NoError(t, err)
	assert.Equal(t, gotAccess, byID)

	gotRefresh, err := s.GetRefreshToken(ctx, "refresh-1")
	require.NoError(t, err)
	require.NotNil(t, gotRefresh)
	assert.Equal(t, rt.ID, gotRefresh.ID)
	assert.Equal(t, []string{"deploy", "me"}, gotRefresh.Scopes.Values())

	t.Run("unknown tokens are nil without error", func(t *testing.T) {
		a, err := s.GetAccessToken(ctx, "nope")
		assert.NoError(t, err)
		assert.Nil(t, a)

		r, err := s.GetRefreshToken(ctx, "nope")
		assert.NoError(t, err)
		assert.Nil(t, r)
	})

	t.Run("duplicate token value", func(t *testing.T) {
		err := s.CreateAccessToken(ctx, &models.AccessToken{Token: "access-1", AccountID: account.ID, IsActive: true})
		assert.ErrorIs(t, err, storage.ErrDuplicateEntry)
	})

	t.Run("unknown owner", func(t *testing.T) {
		err := s.CreateRefreshToken(ctx, &models.RefreshToken{Token: "orphan", AccountID: account.ID + 99})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestTokenStorage_SnapshotIsIndependentOfAccount(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	createTestScope(t, ctx, s, "me")
	createTestScope(t, ctx, s, "deploy")
	account := createTestAccount(t, ctx, s)
	_, err := s.AssignScopes(ctx, account.ID, []string{"me", "deploy"})
	require.NoError(t, err)

	createTestPair(t, ctx, s, account.ID, "a", "r", "me")

	// снимок не меняется при изменении прав владельца
	require.NoError(t, s.ClearScopes(ctx, account.ID))

	scopes, err := s.ScopesForAccessToken(ctx, mustAccess(t, ctx, s, "a").ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"me"}, scopes.Values())
}

func mustAccess(t *testing.T, ctx context.Context, s *Storage, token string) *models.AccessToken {
	at, err := s.GetAccessToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, at)
	return at
}

func TestTokenStorage_Delete(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	account := createTestAccount(t, ctx, s)
	at, rt := createTestPair(t, ctx, s, account.ID, "a1", "r1")
	other, _ := createTestPair(t, ctx, s, account.ID, "a2", "r2")

	t.Run("rowcount detects concurrent delete", func(t *testing.T) {
		require.NoError(t, s.DeleteRefreshToken(ctx, rt.ID))
		assert.ErrorIs(t, s.DeleteRefreshToken(ctx, rt.ID), storage.ErrTokenNotFound)
	})

	t.Run("refresh deletion keeps paired access token unlinked", func(t *testing.T) {
		got := mustAccess(t, ctx, s, "a1")
		assert.Nil(t, got.RefreshTokenID)
	})

	t.Run("access delete", func(t *testing.T) {
		require.NoError(t, s.DeleteAccessToken(ctx, at.ID))
		assert.ErrorIs(t, s.DeleteAccessToken(ctx, at.ID), storage.ErrTokenNotFound)
	})

	t.Run("paired access tokens", func(t *testing.T) {
		n, err := s.DeleteAccessTokensByRefresh(ctx, *other.RefreshTokenID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		a, err := s.GetAccessToken(ctx, "a2")
		require.NoError(t, err)
		assert.Nil(t, a)

		r, err := s.GetRefreshToken(ctx, "r2")
		require.NoError(t, err)
		assert.NotNil(t, r)
	})
}

func TestTokenStorage_AccountTokens(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	alice := createTestAccount(t, ctx, s)
	bob := createTestAccount(t, ctx, s)

	createTestPair(t, ctx, s, alice.ID, "alice-a1", "alice-r1")
	createTestPair(t, ctx, s, alice.ID, "alice-a2", "alice-r2")
	createTestPair(t, ctx, s, bob.ID, "bob-a", "bob-r")

	access, refresh, err := s.TokensForAccount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, access, 2)
	assert.Len(t, refresh, 2)
	assert.Equal(t, "alice-a2", access[0].Token)

	n, err := s.DeleteAccountTokens(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	access, refresh, err = s.TokensForAccount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, access)
	assert.Empty(t, refresh)

	access, _, err = s.TokensForAccount(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, access, 1)

	t.Run("account deletion removes tokens", func(t *testing.T) {
		require.NoError(t, s.DeleteAccount(ctx, bob.ID))

		a, err := s.GetAccessToken(ctx, "bob-a")
		require.NoError(t, err)
		assert.Nil(t, a)

		r, err := s.GetRefreshToken(ctx, "bob-r")
		require.NoError(t, err)
		assert.Nil(t, r)
	})
}

func TestTokenStorage_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	account := createTestAccount(t, ctx, s)
	createTestPair(t, ctx, s, account.ID, "a", "r")

	// граница включительная: access истекает ровно в 4600
	n, err := s.DeleteExpiredTokens(ctx, 4599)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = s.DeleteExpiredTokens(ctx, 4600)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	r, err := s.GetRefreshToken(ctx, "r")
	require.NoError(t, err)
	assert.NotNil(t, r)

	n, err = s.DeleteExpiredTokens(ctx, 1000+604800)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
