package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	t.Run("HashAndVerify", func(t *testing.T) {
		hash, err := hasher.Hash("correct horse battery")
		assert.NoError(t, err)
		assert.NotEqual(t, "correct horse battery", hash)
		assert.True(t, hasher.Verify(hash, "correct horse battery"))
	})

	t.Run("MismatchReturnsFalse", func(t *testing.T) {
		hash, err := hasher.Hash("password1")
		assert.NoError(t, err)
		assert.False(t, hasher.Verify(hash, "password2"))
	})

	t.Run("SaltedOutputDiffers", func(t *testing.T) {
		h1, err := hasher.Hash("samepassword")
		assert.NoError(t, err)
		h2, err := hasher.Hash("samepassword")
		assert.NoError(t, err)
		assert.NotEqual(t, h1, h2)
	})

	t.Run("EmptyPasswordRejected", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.Error(t, err)
	})

	t.Run("GarbageHashReturnsFalse", func(t *testing.T) {
		assert.False(t, hasher.Verify("not-a-bcrypt-hash", "anything"))
	})
}
