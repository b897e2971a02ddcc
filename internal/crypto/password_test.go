package crypto_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authdemo/internal/crypto"
)

func TestGenerateHash(t *testing.T) {
	t.Run("empty password yields empty hash", func(t *testing.T) {
		assert.Equal(t, "", crypto.GenerateHash(""))
	})

	t.Run("hash is deterministic and truncated to 126 chars", func(t *testing.T) {
		h1 := crypto.GenerateHash("secret")
		h2 := crypto.GenerateHash("secret")
		assert.Equal(t, h1, h2)
		assert.Len(t, h1, 126)
	})

	t.Run("different passwords yield different hashes", func(t *testing.T) {
		assert.NotEqual(t, crypto.GenerateHash("secret"), crypto.GenerateHash("other"))
	})
}

func TestVerifyPassword_LegacyDigest(t *testing.T) {
	t.Run("empty password always fails", func(t *testing.T) {
		assert.False(t, crypto.VerifyPassword("", crypto.GenerateHash("secret")))
		assert.False(t, crypto.VerifyPassword("", ""))
	})

	t.Run("matching password verifies", func(t *testing.T) {
		assert.True(t, crypto.VerifyPassword("secret", crypto.GenerateHash("secret")))
	})

	t.Run("wrong password fails", func(t *testing.T) {
		assert.False(t, crypto.VerifyPassword("secret", crypto.GenerateHash("other")))
	})
}

func TestVerifyPassword_Argon2(t *testing.T) {
	hash, err := crypto.HashPassword("pw1234567")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$"))

	t.Run("matching password verifies", func(t *testing.T) {
		assert.True(t, crypto.VerifyPassword("pw1234567", hash))
	})

	t.Run("wrong password fails", func(t *testing.T) {
		assert.False(t, crypto.VerifyPassword("pw123456", hash))
	})

	t.Run("hashes are salted", func(t *testing.T) {
		other, err := crypto.HashPassword("pw1234567")
		require.NoError(t, err)
		assert.NotEqual(t, hash, other)
	})

	t.Run("mangled hash fails instead of panicking", func(t *testing.T) {
		assert.False(t, crypto.VerifyPassword("pw1234567", "$argon2id$v=19$m=65536,t=1,p=4$notbase64!$x"))
		assert.False(t, crypto.VerifyPassword("pw1234567", "$argon2id$broken"))
	})
}

func TestHashPassword_EmptyPassword(t *testing.T) {
	_, err := crypto.HashPassword("")
	assert.Error(t, err)
}
