package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("s3cret-password")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-password", hash)

	assert.True(t, hasher.Verify(hash, "s3cret-password"))
	assert.False(t, hasher.Verify(hash, "wrong-password"))
	assert.False(t, hasher.Verify("not-a-bcrypt-hash", "s3cret-password"))
}

func TestPasswordHasher_SaltsEachHash(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	first, err := hasher.Hash("same-password")
	require.NoError(t, err)
	second, err := hasher.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, hasher.Verify(first, "same-password"))
	assert.True(t, hasher.Verify(second, "same-password"))
}

func TestPasswordHasher_DefaultCost(t *testing.T) {
	hasher := NewPasswordHasher(0)

	hash, err := hasher.Hash("password")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, DefaultBcryptCost, cost)
}

func TestPasswordHasher_DummyDigestIsValid(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	// The throwaway digest must be a real bcrypt hash at the configured cost
	// so a dummy comparison costs the same as a real one.
	cost, err := bcrypt.Cost([]byte(hasher.dummy))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	hasher.VerifyDummy("any-password")
	hasher.VerifyDummy("")
}

func TestPasswordHasher_RejectsOverlongPassword(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	// bcrypt caps input at 72 bytes.
	_, err := hasher.Hash(strings.Repeat("a", 100))
	assert.Error(t, err)
}
