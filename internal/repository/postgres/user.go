package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Ronak-Malkan/teachyourselfmath/internal/domain"
	"github.com/Ronak-Malkan/teachyourselfmath/pkg/database"
	apperrors "github.com/Ronak-Malkan/teachyourselfmath/pkg/errors"
)

const userColumns = `id, name, email, username, password_hash, preferences, created_at, updated_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Insert creates a new user row and returns the stored record.
func (r *UserRepository) Insert(ctx context.Context, name, email, username, passwordHash string) (*domain.User, error) {
	query := `
		INSERT INTO users (name, email, username, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	u, err := r.scanUser(ctx, query, name, email, username, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.AlreadyExists("user", "email or username")
		}
		return nil, err
	}
	return u, nil
}

// GetByEmailOrUsername retrieves a user matching either identifier.
func (r *UserRepository) GetByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1 OR username = $2`

	return r.scanUser(ctx, query, email, username)
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`

	return r.scanUser(ctx, query, id)
}

// UpdateName changes the user's display name.
func (r *UserRepository) UpdateName(ctx context.Context, id int64, name string) (*domain.User, error) {
	query := `
		UPDATE users
		SET name = $1, updated_at = now()
		WHERE id = $2
		RETURNING ` + userColumns

	return r.scanUser(ctx, query, name, id)
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) (*domain.User, error) {
	query := `
		UPDATE users
		SET password_hash = $1, updated_at = now()
		WHERE id = $2
		RETURNING ` + userColumns

	return r.scanUser(ctx, query, passwordHash, id)
}

// UpdatePreferences replaces the user's preferences blob.
func (r *UserRepository) UpdatePreferences(ctx context.Context, id int64, preferences json.RawMessage) (*domain.User, error) {
	query := `
		UPDATE users
		SET preferences = $1, updated_at = now()
		WHERE id = $2
		RETURNING ` + userColumns

	return r.scanUser(ctx, query, preferences, id)
}

// scanUser executes a query expected to return a single user row.
func (r *UserRepository) scanUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var u domain.User

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.Preferences,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &u, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
