package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Ronak-Malkan/teachyourselfmath/pkg/database"
	apperrors "github.com/Ronak-Malkan/teachyourselfmath/pkg/errors"
)

// ResetTokenRepository implements repository.ResetTokenRepository using PostgreSQL.
type ResetTokenRepository struct {
	db database.DBTX
}

// NewResetTokenRepository creates a new PostgreSQL-backed reset token repository.
func NewResetTokenRepository(db database.DBTX) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

// Insert stores a reset token hash with its expiry.
func (r *ResetTokenRepository) Insert(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	query := `
		INSERT INTO reset_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)`

	_, err := r.db.Exec(ctx, query, userID, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("insert reset token: %w", err)
	}

	return nil
}

// Consume marks an unused, unexpired token as used and returns its owner.
// The single UPDATE is the linearization point: two concurrent calls with
// the same hash cannot both match the used_at IS NULL predicate.
func (r *ResetTokenRepository) Consume(ctx context.Context, tokenHash string) (int64, error) {
	query := `
		UPDATE reset_tokens
		SET used_at = now()
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > now()
		RETURNING user_id`

	var userID int64
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrNotFound
		}
		return 0, fmt.Errorf("consume reset token: %w", err)
	}

	return userID, nil
}
