package boltdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/wisdom-oss/authorization-service/internal/client/storage"
)

func createTestStorage(t *testing.T) (*Storage, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "authctl.db")

	store, err := New(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store, dbPath
}

func TestNew_Success(t *testing.T) {
	store, dbPath := createTestStorage(t)

	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.False(t, info.IsDir())

	err = store.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketSession) == nil {
			return os.ErrNotExist
		}
		return nil
	})
	require.NoError(t, err)
}

func TestNew_InvalidPath(t *testing.T) {
	store, err := New(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "authctl.db"))
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestClose(t *testing.T) {
	store, err := New(context.Background(), filepath.Join(t.TempDir(), "authctl.db"))
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.Nil(t, store.db)
	// второй вызов ничего не делает
	assert.NoError(t, store.Close())
}

func TestStorage_Session(t *testing.T) {
	ctx := context.Background()
	store, dbPath := createTestStorage(t)

	_, err := store.GetSession(ctx)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
	assert.ErrorIs(t, store.DeleteSession(ctx), storage.ErrSessionNotFound)

	session := &storage.Session{
		ServerURL:    "http://localhost:8080",
		Username:     "alice",
		AccessToken:  "access",
		RefreshToken: "refresh",
		Scope:        "me",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}
	require.NoError(t, store.SaveSession(ctx, session))

	got, err := store.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, session, got)

	session.AccessToken = "rotated"
	require.NoError(t, store.SaveSession(ctx, session))
	got, err = store.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "rotated", got.AccessToken)

	t.Run("survives reopen", func(t *testing.T) {
		require.NoError(t, store.Close())

		reopened, err := New(ctx, dbPath)
		require.NoError(t, err)
		store.db = reopened.db

		got, err := store.GetSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)
	})

	require.NoError(t, store.DeleteSession(ctx))
	_, err = store.GetSession(ctx)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestSession_Expired(t *testing.T) {
	now := time.Unix(1_000, 0)

	assert.False(t, (&storage.Session{ExpiresAt: 1_001}).Expired(now))
	assert.True(t, (&storage.Session{ExpiresAt: 1_000}).Expired(now))
	assert.True(t, (&storage.Session{ExpiresAt: 999}).Expired(now))
}
