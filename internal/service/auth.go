package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Ronak-Malkan/teachyourselfmath/internal/auth"
	"github.com/Ronak-Malkan/teachyourselfmath/internal/domain"
	"github.com/Ronak-Malkan/teachyourselfmath/internal/repository"
	apperrors "github.com/Ronak-Malkan/teachyourselfmath/pkg/errors"
	"github.com/Ronak-Malkan/teachyourselfmath/pkg/middleware"
)

// AuthEvents is the slice of the event producer the auth service publishes to.
type AuthEvents interface {
	UserRegistered(ctx context.Context, u *domain.User) error
	PasswordResetRequested(ctx context.Context, u *domain.User, token string, expiresAt time.Time) error
}

// AuthService owns signup, login, token verification, profile management, and
// the password reset flow. All dependencies are injected; there is no package
// state.
type AuthService struct {
	users    repository.UserRepository
	resets   *auth.ResetTokenManager
	hasher   *auth.PasswordHasher
	tokens   *auth.TokenCodec
	events   AuthEvents
	logger   *slog.Logger
	resetTTL time.Duration
}

// NewAuthService creates an auth service.
func NewAuthService(
	users repository.UserRepository,
	resets *auth.ResetTokenManager,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenCodec,
	events AuthEvents,
	logger *slog.Logger,
	resetTTL time.Duration,
) *AuthService {
	return &AuthService{
		users:    users,
		resets:   resets,
		hasher:   hasher,
		tokens:   tokens,
		events:   events,
		logger:   logger,
		resetTTL: resetTTL,
	}
}

// SignupInput carries the fields needed to register a user.
type SignupInput struct {
	Name     string
	Email    string
	Username string
	Password string
}

// Signup registers a new user and returns an authenticated session.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*domain.Session, error) {
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Insert(ctx, input.Name, input.Email, input.Username, hash)
	if err != nil {
		return nil, err
	}

	if err := s.events.UserRegistered(ctx, user); err != nil {
		// Registration already committed; the event is best-effort.
		s.logger.ErrorContext(ctx, "failed to publish user.registered",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	return s.newSession(user)
}

// Login authenticates by email or username. Unknown identifiers and wrong
// passwords produce the same failure so callers cannot probe which accounts
// exist.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*domain.Session, error) {
	user, err := s.users.GetByEmailOrUsername(ctx, identifier, identifier)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Burn a comparison so the miss is not faster than a hit.
			s.hasher.VerifyDummy(password)
			return nil, apperrors.Unauthorized("invalid credentials")
		}
		return nil, err
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	return s.newSession(user)
}

// VerifyToken checks a bearer token and returns the identity it asserts, or
// nil for any token that fails verification. It never touches the database.
func (s *AuthService) VerifyToken(token string) *middleware.Identity {
	claims, ok := s.tokens.Verify(token)
	if !ok {
		return nil
	}
	return &middleware.Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
	}
}

// GetProfile returns the user's profile.
func (s *AuthService) GetProfile(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", userID)
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile changes the user's display name.
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, name string) (*domain.User, error) {
	user, err := s.users.UpdateName(ctx, userID, name)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", userID)
		}
		return nil, err
	}
	return user, nil
}

// UpdatePassword replaces the user's password after verifying the current one.
func (s *AuthService) UpdatePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("user", userID)
		}
		return err
	}

	if !s.hasher.Verify(user.PasswordHash, currentPassword) {
		return apperrors.Unauthorized("invalid credentials")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if _, err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	return nil
}

// UpdatePreferences replaces the user's preferences blob.
func (s *AuthService) UpdatePreferences(ctx context.Context, userID int64, preferences json.RawMessage) (*domain.User, error) {
	user, err := s.users.UpdatePreferences(ctx, userID, preferences)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", userID)
		}
		return nil, err
	}
	return user, nil
}

// RequestPasswordReset mints a reset token for the account, if one exists,
// and hands it to the mailer via the event bus. The response is identical
// whether or not the email is registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmailOrUsername(ctx, email, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}

	token, err := s.resets.Create(ctx, user.ID)
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(s.resetTTL)
	if err := s.events.PasswordResetRequested(ctx, user, token, expiresAt); err != nil {
		// Without the event the token never reaches the user.
		s.logger.ErrorContext(ctx, "failed to publish user.password_reset_requested",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return apperrors.Internal(fmt.Errorf("deliver reset token: %w", err))
	}

	return nil
}

// CompletePasswordReset redeems a reset token and sets the new password.
// Unknown, expired, and already-used tokens all fail the same way.
func (s *AuthService) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	userID, ok, err := s.resets.Consume(ctx, token)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Unauthorized("invalid or expired reset token")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if _, err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password reset completed", slog.Int64("user_id", userID))
	return nil
}

func (s *AuthService) newSession(user *domain.User) (*domain.Session, error) {
	token, err := s.tokens.Issue(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("issue session token: %w", err))
	}
	return &domain.Session{User: user, Token: token}, nil
}
