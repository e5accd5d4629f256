package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the cost factor used for password hashing.
const DefaultBcryptCost = 12

// PasswordHasher wraps bcrypt hashing and verification. Each Hash call embeds
// a fresh random salt, so hashing the same password twice yields different
// digests that both verify.
type PasswordHasher struct {
	cost  int
	dummy string
}

// NewPasswordHasher creates a hasher with the given bcrypt cost. A cost
// outside bcrypt's valid range falls back to DefaultBcryptCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("throwaway timing digest"), cost)
	return &PasswordHasher{cost: cost, dummy: string(dummy)}
}

// Hash returns the bcrypt digest of the given plaintext. Failures (entropy
// exhaustion, oversized input) are server-fault errors.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches the stored digest. bcrypt's
// comparison is constant time; malformed digests return false, never an
// error.
func (h *PasswordHasher) Verify(digest, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// VerifyDummy burns a full bcrypt comparison against a throwaway digest at the
// configured cost. Login calls it when no account matches the identifier so an
// unknown identifier takes as long to reject as a wrong password.
func (h *PasswordHasher) VerifyDummy(plaintext string) {
	_ = bcrypt.CompareHashAndPassword([]byte(h.dummy), []byte(plaintext))
}
