package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Ronak-Malkan/teachyourselfmath/internal/auth"
	"github.com/Ronak-Malkan/teachyourselfmath/internal/domain"
	apperrors "github.com/Ronak-Malkan/teachyourselfmath/pkg/errors"
)

// ---------------------------------------------------------------------------
// mocks
// ---------------------------------------------------------------------------

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Insert(ctx context.Context, name, email, username, passwordHash string) (*domain.User, error) {
	args := m.Called(ctx, name, email, username, passwordHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error) {
	args := m.Called(ctx, email, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) UpdateName(ctx context.Context, id int64, name string) (*domain.User, error) {
	args := m.Called(ctx, id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) (*domain.User, error) {
	args := m.Called(ctx, id, passwordHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) UpdatePreferences(ctx context.Context, id int64, preferences json.RawMessage) (*domain.User, error) {
	args := m.Called(ctx, id, preferences)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type mockResetRepo struct {
	mock.Mock
}

func (m *mockResetRepo) Insert(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *mockResetRepo) Consume(ctx context.Context, tokenHash string) (int64, error) {
	args := m.Called(ctx, tokenHash)
	return args.Get(0).(int64), args.Error(1)
}

type mockAuthEvents struct {
	mock.Mock
}

func (m *mockAuthEvents) UserRegistered(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockAuthEvents) PasswordResetRequested(ctx context.Context, u *domain.User, token string, expiresAt time.Time) error {
	args := m.Called(ctx, u, token, expiresAt)
	return args.Error(0)
}

// ---------------------------------------------------------------------------
// fixtures
// ---------------------------------------------------------------------------

type authFixture struct {
	svc    *AuthService
	users  *mockUserRepo
	resets *mockResetRepo
	events *mockAuthEvents
	hasher *auth.PasswordHasher
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := new(mockUserRepo)
	resets := new(mockResetRepo)
	events := new(mockAuthEvents)
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	tokens := auth.NewTokenCodec("test-secret-with-enough-entropy", time.Hour)
	resetMgr := auth.NewResetTokenManager(resets, 30*time.Minute)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewAuthService(users, resetMgr, hasher, tokens, events, log, 30*time.Minute)
	return &authFixture{svc: svc, users: users, resets: resets, events: events, hasher: hasher}
}

func (f *authFixture) storedUser(t *testing.T, password string) *domain.User {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	return &domain.User{
		ID:           1,
		Name:         "Ada Lovelace",
		Email:        "ada@example.com",
		Username:     "ada",
		PasswordHash: hash,
		Preferences:  json.RawMessage(`{}`),
	}
}

// ---------------------------------------------------------------------------
// Signup
// ---------------------------------------------------------------------------

func TestAuthService_Signup_Success(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	var storedHash string
	f.users.On("Insert", ctx, "Ada Lovelace", "ada@example.com", "ada", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { storedHash = args.String(4) }).
		Return(&domain.User{ID: 1, Name: "Ada Lovelace", Email: "ada@example.com", Username: "ada"}, nil)
	f.events.On("UserRegistered", ctx, mock.AnythingOfType("*domain.User")).Return(nil)

	session, err := f.svc.Signup(ctx, SignupInput{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Username: "ada",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), session.User.ID)
	assert.NotEmpty(t, session.Token)

	// The stored credential is a hash, not the plaintext.
	assert.NotEqual(t, "correct horse battery", storedHash)
	assert.True(t, f.hasher.Verify(storedHash, "correct horse battery"))

	// The session token verifies back to the same identity.
	identity := f.svc.VerifyToken(session.Token)
	require.NotNil(t, identity)
	assert.Equal(t, int64(1), identity.UserID)
	assert.Equal(t, "ada", identity.Username)

	f.users.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestAuthService_Signup_DuplicateIdentifier(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.users.On("Insert", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperrors.AlreadyExists("user", "email or username"))

	session, err := f.svc.Signup(ctx, SignupInput{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Username: "ada",
		Password: "correct horse battery",
	})
	assert.Nil(t, session)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	f.events.AssertNotCalled(t, "UserRegistered", mock.Anything, mock.Anything)
}

func TestAuthService_Signup_EventFailureDoesNotFailSignup(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.users.On("Insert", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.User{ID: 1, Username: "ada", Email: "ada@example.com"}, nil)
	f.events.On("UserRegistered", ctx, mock.Anything).Return(assert.AnError)

	session, err := f.svc.Signup(ctx, SignupInput{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Username: "ada",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestAuthService_Login_ByEmailAndUsername(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.storedUser(t, "correct horse battery")

	f.users.On("GetByEmailOrUsername", ctx, "ada@example.com", "ada@example.com").Return(user, nil)
	f.users.On("GetByEmailOrUsername", ctx, "ada", "ada").Return(user, nil)

	byEmail, err := f.svc.Login(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.NotEmpty(t, byEmail.Token)

	byUsername, err := f.svc.Login(ctx, "ada", "correct horse battery")
	require.NoError(t, err)
	assert.NotEmpty(t, byUsername.Token)
}

func TestAuthService_Login_FailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.storedUser(t, "correct horse battery")

	f.users.On("GetByEmailOrUsername", ctx, "ghost@example.com", "ghost@example.com").
		Return(nil, apperrors.ErrNotFound)
	f.users.On("GetByEmailOrUsername", ctx, "ada@example.com", "ada@example.com").
		Return(user, nil)

	_, unknownErr := f.svc.Login(ctx, "ghost@example.com", "whatever")
	_, wrongPassErr := f.svc.Login(ctx, "ada@example.com", "wrong password")

	require.Error(t, unknownErr)
	require.Error(t, wrongPassErr)
	assert.ErrorIs(t, unknownErr, apperrors.ErrUnauthorized)
	assert.ErrorIs(t, wrongPassErr, apperrors.ErrUnauthorized)

	// An attacker must not be able to tell the two apart.
	assert.Equal(t, unknownErr.Error(), wrongPassErr.Error())
}

func TestAuthService_Login_RepoErrorIsNotCollapsed(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.users.On("GetByEmailOrUsername", ctx, "ada@example.com", "ada@example.com").
		Return(nil, assert.AnError)

	_, err := f.svc.Login(ctx, "ada@example.com", "correct horse battery")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrUnauthorized)
}

// ---------------------------------------------------------------------------
// VerifyToken
// ---------------------------------------------------------------------------

func TestAuthService_VerifyToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.storedUser(t, "correct horse battery")

	f.users.On("GetByEmailOrUsername", ctx, "ada", "ada").Return(user, nil)
	session, err := f.svc.Login(ctx, "ada", "correct horse battery")
	require.NoError(t, err)

	identity := f.svc.VerifyToken(session.Token)
	require.NotNil(t, identity)
	assert.Equal(t, user.ID, identity.UserID)
	assert.Equal(t, user.Email, identity.Email)

	assert.Nil(t, f.svc.VerifyToken("not-a-token"))
	assert.Nil(t, f.svc.VerifyToken(""))
}

// ---------------------------------------------------------------------------
// Profile
// ---------------------------------------------------------------------------

func TestAuthService_UpdatePassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.storedUser(t, "old password 123")

	t.Run("wrong current password", func(t *testing.T) {
		f.users.On("GetByID", ctx, int64(1)).Return(user, nil)

		err := f.svc.UpdatePassword(ctx, 1, "not the password", "new password 456")
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		f.users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("correct current password", func(t *testing.T) {
		var newHash string
		f.users.On("UpdatePassword", ctx, int64(1), mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { newHash = args.String(2) }).
			Return(user, nil)

		err := f.svc.UpdatePassword(ctx, 1, "old password 123", "new password 456")
		require.NoError(t, err)
		assert.True(t, f.hasher.Verify(newHash, "new password 456"))
	})
}

func TestAuthService_GetProfile_NotFound(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.users.On("GetByID", ctx, int64(99)).Return(nil, apperrors.ErrNotFound)

	user, err := f.svc.GetProfile(ctx, 99)
	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Password reset
// ---------------------------------------------------------------------------

func TestAuthService_RequestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.users.On("GetByEmailOrUsername", ctx, "ghost@example.com", "ghost@example.com").
		Return(nil, apperrors.ErrNotFound)

	err := f.svc.RequestPasswordReset(ctx, "ghost@example.com")
	assert.NoError(t, err)
	f.resets.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.events.AssertNotCalled(t, "PasswordResetRequested", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_RequestPasswordReset_PublishesToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.storedUser(t, "correct horse battery")

	var storedHash, publishedToken string
	f.users.On("GetByEmailOrUsername", ctx, user.Email, user.Email).Return(user, nil)
	f.resets.On("Insert", ctx, user.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) { storedHash = args.String(2) }).
		Return(nil)
	f.events.On("PasswordResetRequested", ctx, user, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) { publishedToken = args.String(2) }).
		Return(nil)

	err := f.svc.RequestPasswordReset(ctx, user.Email)
	require.NoError(t, err)

	assert.Len(t, publishedToken, 64)
	assert.NotEqual(t, publishedToken, storedHash, "event carries the plaintext, store carries the hash")
}

func TestAuthService_RequestPasswordReset_EventFailureSurfaces(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.storedUser(t, "correct horse battery")

	f.users.On("GetByEmailOrUsername", ctx, user.Email, user.Email).Return(user, nil)
	f.resets.On("Insert", ctx, user.ID, mock.Anything, mock.Anything).Return(nil)
	f.events.On("PasswordResetRequested", ctx, user, mock.Anything, mock.Anything).Return(assert.AnError)

	err := f.svc.RequestPasswordReset(ctx, user.Email)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestAuthService_CompletePasswordReset_Success(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	token := "deadbeefdeadbeefdeadbeefdeadbeef"

	var newHash string
	f.resets.On("Consume", ctx, mock.AnythingOfType("string")).Return(int64(1), nil)
	f.users.On("UpdatePassword", ctx, int64(1), mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { newHash = args.String(2) }).
		Return(&domain.User{ID: 1}, nil)

	err := f.svc.CompletePasswordReset(ctx, token, "brand new password")
	require.NoError(t, err)
	assert.True(t, f.hasher.Verify(newHash, "brand new password"))
}

func TestAuthService_CompletePasswordReset_InvalidTokensAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	// Unknown, expired, and already-used tokens all come back from the store
	// as the same not-found.
	f.resets.On("Consume", ctx, mock.AnythingOfType("string")).
		Return(int64(0), apperrors.NotFound("reset token", ""))

	firstErr := f.svc.CompletePasswordReset(ctx, "unknown-token", "new password")
	secondErr := f.svc.CompletePasswordReset(ctx, "spent-token", "new password")

	require.Error(t, firstErr)
	require.Error(t, secondErr)
	assert.ErrorIs(t, firstErr, apperrors.ErrUnauthorized)
	assert.Equal(t, firstErr.Error(), secondErr.Error())
	f.users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_CompletePasswordReset_StoreErrorSurfaces(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.resets.On("Consume", ctx, mock.AnythingOfType("string")).
		Return(int64(0), apperrors.Internal(assert.AnError))

	err := f.svc.CompletePasswordReset(ctx, "some-token", "new password")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrUnauthorized)
}
