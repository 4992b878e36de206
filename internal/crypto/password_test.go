package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// testParams дешевые параметры, чтобы тесты выполнялись быстро
var testParams = Argon2Params{Memory: 1024, Time: 1, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestHasher_Argon2id(t *testing.T) {
	h, err := NewHasher(AlgorithmArgon2id, testParams, 0)
	require.NoError(t, err)

	encoded, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$"))

	assert.NoError(t, h.Verify(encoded, "correct horse battery staple"))
	assert.ErrorIs(t, h.Verify(encoded, "wrong"), ErrMismatchedPassword)

	// одинаковый пароль дает разные хеши из-за соли
	other, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, encoded, other)
}

func TestHasher_Bcrypt(t *testing.T) {
	h, err := NewHasher(AlgorithmBcrypt, testParams, bcrypt.MinCost)
	require.NoError(t, err)

	encoded, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$2a$"))

	assert.NoError(t, h.Verify(encoded, "s3cret"))
	assert.ErrorIs(t, h.Verify(encoded, "nope"), ErrMismatchedPassword)
}

func TestHasher_VerifiesBothFormats(t *testing.T) {
	argonHasher, err := NewHasher("", testParams, 0)
	require.NoError(t, err)
	bcryptHasher, err := NewHasher(AlgorithmBcrypt, testParams, bcrypt.MinCost)
	require.NoError(t, err)

	legacy, err := bcryptHasher.Hash("legacy-password")
	require.NoError(t, err)

	assert.NoError(t, argonHasher.Verify(legacy, "legacy-password"))
}

func TestHasher_InvalidInput(t *testing.T) {
	h, err := NewHasher("", testParams, 0)
	require.NoError(t, err)

	_, err = h.Hash("")
	assert.Error(t, err)

	tests := []struct {
		name    string
		encoded string
	}{
		{name: "plain text", encoded: "password"},
		{name: "truncated phc", encoded: "$argon2id$v=19$m=1024,t=1,p=1$abc"},
		{name: "wrong version", encoded: "$argon2id$v=16$m=1024,t=1,p=1$c2FsdA$a2V5"},
		{name: "bad params", encoded: "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5"},
		{name: "bad salt encoding", encoded: "$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, h.Verify(tt.encoded, "password"), ErrUnsupportedHash)
		})
	}

	_, err = NewHasher("md5", testParams, 0)
	assert.Error(t, err)
}

func TestNewToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := NewToken()
		require.NoError(t, err)
		assert.Len(t, token, 36)
		assert.False(t, seen[token], "token must be unique")
		seen[token] = true
	}
}

func TestRandomString(t *testing.T) {
	s, err := RandomString(32, AlphabetPassword)
	require.NoError(t, err)
	assert.Len(t, s, 32)
	for _, c := range s {
		assert.True(t, strings.ContainsRune(AlphabetPassword, c))
	}

	_, err = RandomString(0, AlphabetPassword)
	assert.Error(t, err)
	_, err = RandomString(8, "")
	assert.Error(t, err)
}
