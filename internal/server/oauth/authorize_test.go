package oauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisdom-oss/authorization-service/internal/models"
)

func TestDecide(t *testing.T) {
	const now = int64(1000)

	active := &models.Account{ID: 1, Username: "bob", IsActive: true}
	disabled := &models.Account{ID: 1, Username: "bob"}

	token := func(mutate func(*models.AccessToken)) *models.AccessToken {
		at := &models.AccessToken{
			Token:     "t",
			AccountID: 1,
			CreatedAt: 900,
			ExpiresAt: 1100,
			IsActive:  true,
			Scopes:    models.NewScopeSet("me", "deploy"),
		}
		if mutate != nil {
			mutate(at)
		}
		return at
	}

	tests := []struct {
		token       *models.AccessToken
		owner       *models.Account
		required    models.ScopeSet
		name        string
		wantCode    string
		wantMissing []string
	}{
		{name: "valid", token: token(nil), owner: active, required: models.NewScopeSet("me")},
		{name: "no requirement", token: token(nil), owner: active},
		{name: "unknown", token: nil, owner: nil, wantCode: CodeInvalidToken},
		{name: "inactive flag", token: token(func(at *models.AccessToken) { at.IsActive = false }), owner: active, wantCode: CodeInvalidToken},
		{name: "expires now", token: token(func(at *models.AccessToken) { at.ExpiresAt = now }), owner: active, wantCode: CodeInvalidToken},
		{name: "created in the future", token: token(func(at *models.AccessToken) { at.CreatedAt = now + 1 }), owner: active, wantCode: CodeInvalidToken},
		{name: "owner deleted", token: token(nil), owner: nil, wantCode: CodeInvalidToken},
		{name: "owner disabled", token: token(nil), owner: disabled, wantCode: CodeInvalidToken},
		{
			name:        "missing scopes",
			token:       token(nil),
			owner:       active,
			required:    models.NewScopeSet("me", "metrics", "admin"),
			wantCode:    CodeInsufficientScope,
			wantMissing: []string{"admin", "metrics"},
		},
		{
			name:     "admin implies all",
			token:    token(func(at *models.AccessToken) { at.Scopes = models.NewScopeSet(models.AdminScope) }),
			owner:    active,
			required: models.NewScopeSet("me", "metrics"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Decide(tt.token, tt.owner, now, tt.required)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			oauthErr := requireCode(t, err, tt.wantCode)
			assert.Equal(t, tt.wantMissing, oauthErr.MissingScopes)
		})
	}
}

func TestService_Authorize(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	bob := f.createAccount(t, "bob", models.SelfScope)
	pair := f.login(t, "bob", "")

	t.Run("placeholder token", func(t *testing.T) {
		for _, bearer := range []string{"", "undefined"} {
			_, err := f.svc.Authorize(ctx, bearer, nil)
			requireCode(t, err, CodeInvalidRequest)
		}
	})

	t.Run("refresh token is not a bearer", func(t *testing.T) {
		_, err := f.svc.Authorize(ctx, pair.Refresh.Token, nil)
		requireCode(t, err, CodeInvalidToken)
	})

	t.Run("resolves principal", func(t *testing.T) {
		p, err := f.svc.Authorize(ctx, pair.Access.Token, models.NewScopeSet("me"))
		require.NoError(t, err)
		assert.Equal(t, bob.ID, p.Account.ID)
		assert.False(t, p.IsAdmin())
		assert.True(t, p.Can("me"))
		assert.False(t, p.Can("admin"))

		ctx := ContextWithPrincipal(ctx, p)
		got, ok := PrincipalFromContext(ctx)
		require.True(t, ok)
		assert.Same(t, p, got)
	})

	t.Run("repeated calls are stable", func(t *testing.T) {
		for range 3 {
			_, err := f.svc.Authorize(ctx, pair.Access.Token, models.NewScopeSet("admin"))
			requireCode(t, err, CodeInsufficientScope)
		}
	})

	t.Run("no principal in empty context", func(t *testing.T) {
		_, ok := PrincipalFromContext(context.Background())
		assert.False(t, ok)
	})
}
