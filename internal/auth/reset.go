package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Ronak-Malkan/teachyourselfmath/pkg/errors"

	"github.com/Ronak-Malkan/teachyourselfmath/internal/repository"
)

const resetTokenBytes = 32

// ResetTokenManager issues and consumes single-use password-reset tokens.
// Only a SHA-256 digest of each token is persisted; the plaintext exists
// solely in the value handed to the caller.
type ResetTokenManager struct {
	repo repository.ResetTokenRepository
	ttl  time.Duration
	now  func() time.Time
}

func NewResetTokenManager(repo repository.ResetTokenRepository, ttl time.Duration) *ResetTokenManager {
	return &ResetTokenManager{
		repo: repo,
		ttl:  ttl,
		now:  time.Now,
	}
}

// WithClock overrides the time source.
func (m *ResetTokenManager) WithClock(now func() time.Time) *ResetTokenManager {
	m.now = now
	return m
}

// Create mints a fresh token for the user, stores its hash, and returns the
// plaintext token.
func (m *ResetTokenManager) Create(ctx context.Context, userID int64) (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", apperrors.Internal(fmt.Errorf("generate reset token: %w", err))
	}
	token := hex.EncodeToString(buf)

	expiresAt := m.now().Add(m.ttl)
	if err := m.repo.Insert(ctx, userID, hashToken(token), expiresAt); err != nil {
		return "", err
	}
	return token, nil
}

// Consume redeems a token exactly once. It returns (userID, true, nil) on
// success and (0, false, nil) for any token that is unknown, expired, or
// already used; the three cases are indistinguishable to the caller. A
// non-nil error means the store itself failed.
func (m *ResetTokenManager) Consume(ctx context.Context, token string) (int64, bool, error) {
	userID, err := m.repo.Consume(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return userID, true, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
