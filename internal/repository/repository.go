package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Ronak-Malkan/teachyourselfmath/internal/domain"
)

// UserRepository is the credential store contract. Implementations own the
// persisted user rows; callers never see plaintext passwords.
type UserRepository interface {
	// Insert creates a user and returns the stored record with its assigned id.
	Insert(ctx context.Context, name, email, username, passwordHash string) (*domain.User, error)

	// GetByEmailOrUsername finds a user matching either identifier.
	GetByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error)

	// GetByID retrieves a user by id.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// UpdateName changes the display name and returns the updated record.
	UpdateName(ctx context.Context, id int64, name string) (*domain.User, error)

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) (*domain.User, error)

	// UpdatePreferences replaces the preferences blob.
	UpdatePreferences(ctx context.Context, id int64, preferences json.RawMessage) (*domain.User, error)
}

// ResetTokenRepository persists password-reset tokens by hash.
type ResetTokenRepository interface {
	// Insert stores a reset token hash with its expiry.
	Insert(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error

	// Consume atomically marks an unused, unexpired token as used and returns
	// its owner. It returns domain-level not-found for unknown, expired, and
	// already-used hashes alike; callers must not distinguish the cases.
	Consume(ctx context.Context, tokenHash string) (int64, error)
}

// ProblemFilter narrows a problem listing.
type ProblemFilter struct {
	Tags         []string
	Difficulties []string
	Limit        int
	Offset       int
}

// ProblemRepository persists problems, tags, and comments.
type ProblemRepository interface {
	// Insert creates a problem in pending state.
	Insert(ctx context.Context, p *domain.Problem) (*domain.Problem, error)

	// UpsertTag finds or creates the tag with the given name.
	UpsertTag(ctx context.Context, name string) (*domain.Tag, error)

	// AttachTag links a tag to a problem.
	AttachTag(ctx context.Context, problemID, tagID int64) error

	// Get retrieves one problem with its tag list and comment count.
	Get(ctx context.Context, id int64) (*domain.Problem, error)

	// List returns approved problems matching the filter, newest first.
	List(ctx context.Context, filter ProblemFilter) ([]domain.Problem, error)

	// Count returns the number of approved problems matching the filter.
	Count(ctx context.Context, filter ProblemFilter) (int64, error)

	// ListTags returns all tags.
	ListTags(ctx context.Context) ([]domain.Tag, error)

	// InsertComment adds a comment to a problem.
	InsertComment(ctx context.Context, problemID, userID int64, body string) (*domain.Comment, error)

	// ListComments returns a problem's comments, oldest first.
	ListComments(ctx context.Context, problemID int64) ([]domain.Comment, error)
}
