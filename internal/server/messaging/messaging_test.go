package messaging

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisdom-oss/authorization-service/internal/crypto"
	"github.com/wisdom-oss/authorization-service/internal/ids"
	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/identity"
	"github.com/wisdom-oss/authorization-service/internal/server/oauth"
	"github.com/wisdom-oss/authorization-service/internal/server/storage/sqlstore"
)

const (
	testClientID     = "water-usage-forecasts"
	testClientSecret = "forecast-secret"
)

type fixture struct {
	tokens   *oauth.Service
	executor *Executor
	pair     *models.TokenPair
}

func ptr(s string) *string { return &s }

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqlstore.New(ctx, sqlstore.Options{Driver: sqlstore.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})

	hasher, err := crypto.NewHasher(crypto.AlgorithmArgon2id, crypto.Argon2Params{Memory: 1024, Time: 1, Threads: 1, KeyLen: 32, SaltLen: 16}, 0)
	require.NoError(t, err)

	tokens := oauth.NewService(logger, store, hasher)
	ident := identity.NewService(logger, store, hasher, nil)

	for _, value := range []string{models.AdminScope, models.SelfScope, "water:read"} {
		_, err := ident.CreateScope(ctx, models.Scope{Value: value})
		require.NoError(t, err)
	}
	_, err = ident.CreateAccount(ctx, identity.NewAccount{Username: "alice", Password: "password123", Scopes: []string{models.SelfScope, "water:read"}})
	require.NoError(t, err)

	secretHash, err := hasher.Hash(testClientSecret)
	require.NoError(t, err)
	require.NoError(t, store.UpsertClientCredential(ctx, &models.ClientCredential{ClientID: testClientID, SecretHash: secretHash}))

	pair, err := tokens.Token(ctx, oauth.TokenRequest{GrantType: oauth.GrantPassword, Username: "alice", Password: "password123"})
	require.NoError(t, err)

	return &fixture{
		tokens:   tokens,
		executor: NewExecutor(logger, store, hasher, tokens, ident, nil),
		pair:     pair,
	}
}

func request(action string, payload Payload) Request {
	payload.Action = action
	return Request{
		CorrelationID: "corr-1",
		ClientID:      testClientID,
		ClientSecret:  testClientSecret,
		Payload:       payload,
	}
}

func TestExecutor_ClientAuthentication(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		id     string
		secret string
	}{
		{name: "missing credentials"},
		{name: "unknown client", id: "nobody", secret: testClientSecret},
		{name: "wrong secret", id: testClientID, secret: "wrong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(ActionCheckScope, Payload{Scope: "water:read"})
			req.ClientID, req.ClientSecret = tt.id, tt.secret

			resp := f.executor.Execute(ctx, req)
			assert.Equal(t, StatusError, resp.Status)
			assert.Equal(t, CodeInvalidClient, resp.Error)
			assert.Equal(t, "corr-1", resp.CorrelationID)
			assert.Nil(t, resp.Scope)
		})
	}
}

func TestExecutor_ValidateToken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	t.Run("active", func(t *testing.T) {
		resp := f.executor.Execute(ctx, request(ActionValidateToken, Payload{Token: f.pair.Access.Token, Scopes: "water:read"}))
		require.Equal(t, StatusSuccess, resp.Status)
		require.NotNil(t, resp.Token)
		assert.True(t, resp.Token.Active)
		assert.Equal(t, "alice", resp.Token.Username)
		assert.Equal(t, oauth.TokenTypeAccess, resp.Token.TokenType)
		assert.Equal(t, "me water:read", resp.Token.Scope)
		assert.Empty(t, resp.Reason)
	})

	t.Run("insufficient scope", func(t *testing.T) {
		resp := f.executor.Execute(ctx, request(ActionValidateToken, Payload{Token: f.pair.Access.Token, Scopes: "water:write"}))
		require.Equal(t, StatusSuccess, resp.Status)
		require.NotNil(t, resp.Token)
		assert.False(t, resp.Token.Active)
		assert.Equal(t, oauth.ReasonInsufficientScope, resp.Reason)
	})

	t.Run("unknown token", func(t *testing.T) {
		resp := f.executor.Execute(ctx, request(ActionValidateToken, Payload{Token: "does-not-exist"}))
		require.NotNil(t, resp.Token)
		assert.False(t, resp.Token.Active)
		assert.Equal(t, oauth.ReasonUnknownToken, resp.Reason)
	})

	t.Run("missing token", func(t *testing.T) {
		resp := f.executor.Execute(ctx, request(ActionValidateToken, Payload{}))
		assert.Equal(t, StatusError, resp.Status)
		assert.Equal(t, oauth.CodeInvalidRequest, resp.Error)
	})
}

func TestExecutor_RevokeToken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	resp := f.executor.Execute(ctx, request(ActionRevokeToken, Payload{Token: f.pair.Refresh.Token}))
	require.Equal(t, StatusSuccess, resp.Status, resp.Description)

	result, err := f.tokens.Introspect(ctx, f.pair.Refresh.Token, nil)
	require.NoError(t, err)
	assert.False(t, result.Active)

	// access token выдан вместе с refresh и отзывается с ним
	result, err = f.tokens.Introspect(ctx, f.pair.Access.Token, nil)
	require.NoError(t, err)
	assert.False(t, result.Active)

	resp = f.executor.Execute(ctx, request(ActionRevokeToken, Payload{}))
	assert.Equal(t, oauth.CodeInvalidRequest, resp.Error)
}

func TestExecutor_Scopes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	resp := f.executor.Execute(ctx, request(ActionAddScope, Payload{Name: ptr("Forecasts"), Value: ptr("forecast:run")}))
	require.Equal(t, StatusSuccess, resp.Status, resp.Description)
	require.NotNil(t, resp.Scope)
	assert.Equal(t, "forecast:run", resp.Scope.Value)
	assert.Equal(t, "Forecasts", resp.Scope.Name)

	resp = f.executor.Execute(ctx, request(ActionAddScope, Payload{Value: ptr("forecast:run")}))
	assert.Equal(t, identity.CodeDuplicateEntry, resp.Error)

	resp = f.executor.Execute(ctx, request(ActionEditScope, Payload{Scope: "forecast:run", Description: ptr("run the forecast models")}))
	require.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, "run the forecast models", resp.Scope.Description)
	assert.Equal(t, "Forecasts", resp.Scope.Name)

	resp = f.executor.Execute(ctx, request(ActionCheckScope, Payload{Scope: "forecast:run"}))
	require.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, "run the forecast models", resp.Scope.Description)

	resp = f.executor.Execute(ctx, request(ActionDeleteScope, Payload{Scope: models.AdminScope}))
	assert.Equal(t, identity.CodeScopeDeadlock, resp.Error)

	resp = f.executor.Execute(ctx, request(ActionDeleteScope, Payload{Scope: "forecast:run"}))
	assert.Equal(t, StatusSuccess, resp.Status)

	resp = f.executor.Execute(ctx, request(ActionCheckScope, Payload{Scope: "forecast:run"}))
	assert.Equal(t, identity.CodeNotFound, resp.Error)
}

func TestExecutor_UnknownAction(t *testing.T) {
	f := setup(t)

	resp := f.executor.Execute(context.Background(), request("reticulate_splines", Payload{}))
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, oauth.CodeInvalidRequest, resp.Error)
}

func TestCodecs_For(t *testing.T) {
	codecs, err := NewCodecs()
	require.NoError(t, err)

	tests := []struct {
		name        string
		contentType string
		want        string
		wantErr     bool
	}{
		{name: "empty falls back to json", want: ContentTypeJSON},
		{name: "json with charset", contentType: "application/json; charset=utf-8", want: ContentTypeJSON},
		{name: "cbor", contentType: ContentTypeCBOR, want: ContentTypeCBOR},
		{name: "unsupported", contentType: "text/xml", wantErr: true},
		{name: "malformed", contentType: ";;", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec, err := codecs.For(tt.contentType)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, codec.ContentType())
		})
	}
}

func TestCodecs_DecodeRequest(t *testing.T) {
	codecs, err := NewCodecs()
	require.NoError(t, err)

	want := request(ActionEditScope, Payload{Scope: "water:read", Name: ptr("Water")})

	for _, contentType := range []string{ContentTypeJSON, ContentTypeCBOR} {
		t.Run(contentType, func(t *testing.T) {
			codec, err := codecs.For(contentType)
			require.NoError(t, err)

			data, err := codec.Marshal(want)
			require.NoError(t, err)

			var got Request
			require.NoError(t, codec.Unmarshal(data, &got))
			assert.Equal(t, want, got)
		})
	}

	t.Run("json field names", func(t *testing.T) {
		var got Request
		body := `{"correlation_id":"c","client_id":"id","client_secret":"s","payload":{"action":"check_scope","scope":"me"}}`
		require.NoError(t, JSONCodec{}.Unmarshal([]byte(body), &got))
		assert.Equal(t, ActionCheckScope, got.Payload.Action)
		assert.Equal(t, "me", got.Payload.Scope)
		assert.Equal(t, "id", got.ClientID)
	})
}

func TestServer_RoundTrip(t *testing.T) {
	f := setup(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	codecs, err := NewCodecs()
	require.NoError(t, err)

	transport := NewChannelTransport(4)
	srv := NewServer(logger, transport, f.executor, codecs, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	sendCtx, sendCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer sendCancel()

	for _, contentType := range []string{ContentTypeJSON, ContentTypeCBOR} {
		t.Run(contentType, func(t *testing.T) {
			codec, err := codecs.For(contentType)
			require.NoError(t, err)

			req := request(ActionCheckScope, Payload{Scope: "water:read"})
			req.CorrelationID = ""
			body, err := codec.Marshal(req)
			require.NoError(t, err)

			out, gotType, err := transport.Send(sendCtx, contentType, body)
			require.NoError(t, err)
			assert.Equal(t, contentType, gotType)

			var resp Response
			require.NoError(t, codec.Unmarshal(out, &resp))
			assert.Equal(t, StatusSuccess, resp.Status)
			assert.Equal(t, "water:read", resp.Scope.Value)
			assert.True(t, ids.Valid(resp.CorrelationID))
		})
	}

	t.Run("undecodable body", func(t *testing.T) {
		out, gotType, err := transport.Send(sendCtx, ContentTypeJSON, []byte("{not json"))
		require.NoError(t, err)
		assert.Equal(t, ContentTypeJSON, gotType)

		var resp Response
		require.NoError(t, JSONCodec{}.Unmarshal(out, &resp))
		assert.Equal(t, StatusError, resp.Status)
		assert.Equal(t, oauth.CodeInvalidRequest, resp.Error)
	})

	t.Run("unsupported content type", func(t *testing.T) {
		out, gotType, err := transport.Send(sendCtx, "text/xml", []byte("<x/>"))
		require.NoError(t, err)
		assert.Equal(t, ContentTypeJSON, gotType)
		assert.Contains(t, string(out), oauth.CodeInvalidRequest)
	})

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestChannelTransport_Close(t *testing.T) {
	transport := NewChannelTransport(0)
	require.NoError(t, transport.Close())
	require.NoError(t, transport.Close())

	_, err := transport.Receive(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	_, _, err = transport.Send(context.Background(), ContentTypeJSON, nil)
	assert.ErrorIs(t, err, ErrClosed)
}
