package oauth

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisdom-oss/authorization-service/internal/models"
)

func principalFor(t *testing.T, f *fixture, pair *models.TokenPair) *Principal {
	t.Helper()
	p, err := f.svc.Authorize(context.Background(), pair.Access.Token, nil)
	require.NoError(t, err)
	return p
}

func TestService_Revoke(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	f.createAccount(t, "bob", models.SelfScope)
	f.createAccount(t, "eve", models.SelfScope)
	f.createAccount(t, "root", models.AdminScope)

	t.Run("owner revokes access token", func(t *testing.T) {
		pair := f.login(t, "bob", "")
		caller := principalFor(t, f, f.login(t, "bob", ""))

		require.NoError(t, f.svc.Revoke(ctx, caller, pair.Access.Token))

		result, err := f.svc.Introspect(ctx, pair.Access.Token, nil)
		require.NoError(t, err)
		assert.False(t, result.Active)

		// refresh token остается действительным
		result, err = f.svc.Introspect(ctx, pair.Refresh.Token, nil)
		require.NoError(t, err)
		assert.True(t, result.Active)
	})

	t.Run("refresh revocation removes paired access token", func(t *testing.T) {
		pair := f.login(t, "bob", "")
		caller := principalFor(t, f, f.login(t, "bob", ""))

		require.NoError(t, f.svc.Revoke(ctx, caller, pair.Refresh.Token))

		for _, token := range []string{pair.Access.Token, pair.Refresh.Token} {
			result, err := f.svc.Introspect(ctx, token, nil)
			require.NoError(t, err)
			assert.False(t, result.Active)
		}
		assert.Contains(t, f.notifier.revoked, pair.Access.Token)
		assert.Contains(t, f.notifier.revoked, pair.Refresh.Token)

		// caller token не был связан с отозванным refresh
		_, err := f.svc.Authorize(ctx, caller.Token.Token, nil)
		assert.NoError(t, err)
	})

	t.Run("idempotent", func(t *testing.T) {
		caller := principalFor(t, f, f.login(t, "bob", ""))
		pair := f.login(t, "bob", "")

		require.NoError(t, f.svc.Revoke(ctx, caller, pair.Access.Token))
		require.NoError(t, f.svc.Revoke(ctx, caller, pair.Access.Token))
		require.NoError(t, f.svc.Revoke(ctx, caller, "never-existed"))
	})

	t.Run("concurrent revokes both succeed", func(t *testing.T) {
		caller := principalFor(t, f, f.login(t, "bob", ""))
		pair := f.login(t, "bob", "")

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = f.svc.Revoke(ctx, caller, pair.Refresh.Token)
			}()
		}
		wg.Wait()

		for _, err := range errs {
			assert.NoError(t, err)
		}
	})

	t.Run("foreign token is denied", func(t *testing.T) {
		pair := f.login(t, "bob", "")
		eve := principalFor(t, f, f.login(t, "eve", ""))

		err := f.svc.Revoke(ctx, eve, pair.Access.Token)
		requireCode(t, err, CodeAccessDenied)

		result, err := f.svc.Introspect(ctx, pair.Access.Token, nil)
		require.NoError(t, err)
		assert.True(t, result.Active)
	})

	t.Run("admin revokes any token", func(t *testing.T) {
		pair := f.login(t, "bob", "")
		root := principalFor(t, f, f.login(t, "root", ""))

		require.NoError(t, f.svc.Revoke(ctx, root, pair.Access.Token))
	})

	t.Run("invalid input", func(t *testing.T) {
		caller := principalFor(t, f, f.login(t, "bob", ""))
		requireCode(t, f.svc.Revoke(ctx, caller, ""), CodeInvalidRequest)
		requireCode(t, f.svc.Revoke(ctx, nil, "x"), CodeAccessDenied)
	})
}
