package login

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("Secur3!pass")
	require.NoError(t, err)
	assert.NotEqual(t, "Secur3!pass", hash)

	ok, err := hasher.Verify("Secur3!pass", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	t.Run("salted", func(t *testing.T) {
		other, err := hasher.Hash("Secur3!pass")
		require.NoError(t, err)
		assert.NotEqual(t, hash, other)
	})

	t.Run("empty inputs", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.Error(t, err)

		ok, err := hasher.Verify("", hash)
		assert.NoError(t, err)
		assert.False(t, ok)

		_, err = hasher.Verify("x", "")
		assert.Error(t, err)
	})

	t.Run("malformed hash", func(t *testing.T) {
		_, err := hasher.Verify("Secur3!pass", "not-a-bcrypt-hash")
		assert.Error(t, err)
	})

	t.Run("out of range cost falls back", func(t *testing.T) {
		assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	})
}
