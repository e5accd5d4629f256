package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Ronak-Malkan/teachyourselfmath/internal/domain"
	"github.com/Ronak-Malkan/teachyourselfmath/internal/repository"
	"github.com/Ronak-Malkan/teachyourselfmath/pkg/database"
	apperrors "github.com/Ronak-Malkan/teachyourselfmath/pkg/errors"
)

// ProblemRepository implements repository.ProblemRepository using PostgreSQL.
type ProblemRepository struct {
	db database.DBTX
}

// NewProblemRepository creates a new PostgreSQL-backed problem repository.
func NewProblemRepository(db database.DBTX) *ProblemRepository {
	return &ProblemRepository{db: db}
}

// Insert creates a problem in pending state.
func (r *ProblemRepository) Insert(ctx context.Context, p *domain.Problem) (*domain.Problem, error) {
	query := `
		INSERT INTO problems (title, description, source, difficulty, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	stored := *p
	stored.Status = domain.StatusPending
	err := r.db.QueryRow(ctx, query,
		p.Title,
		p.Description,
		p.Source,
		p.Difficulty,
		domain.StatusPending,
	).Scan(&stored.ID, &stored.CreatedAt, &stored.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert problem: %w", err)
	}

	if stored.Tags == nil {
		stored.Tags = []string{}
	}
	return &stored, nil
}

// UpsertTag finds or creates the tag with the given name.
func (r *ProblemRepository) UpsertTag(ctx context.Context, name string) (*domain.Tag, error) {
	query := `
		INSERT INTO tags (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name`

	var t domain.Tag
	if err := r.db.QueryRow(ctx, query, name).Scan(&t.ID, &t.Name); err != nil {
		return nil, fmt.Errorf("upsert tag: %w", err)
	}

	return &t, nil
}

// AttachTag links a tag to a problem.
func (r *ProblemRepository) AttachTag(ctx context.Context, problemID, tagID int64) error {
	query := `
		INSERT INTO problems_tags (problem_id, tag_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	_, err := r.db.Exec(ctx, query, problemID, tagID)
	if err != nil {
		return fmt.Errorf("attach tag: %w", err)
	}

	return nil
}

// problemSelect aggregates each problem row with its tag names and comment count.
const problemSelect = `
	SELECT p.id, p.title, p.description, p.source, p.difficulty, p.status,
	       COALESCE(string_agg(DISTINCT t.name, ',' ORDER BY t.name), '') AS tags,
	       COUNT(DISTINCT c.id) AS total_comments,
	       p.created_at, p.updated_at
	FROM problems p
	LEFT JOIN problems_tags pt ON pt.problem_id = p.id
	LEFT JOIN tags t ON t.id = pt.tag_id
	LEFT JOIN comments c ON c.problem_id = p.id`

// Get retrieves a single problem with its tag list and comment count.
func (r *ProblemRepository) Get(ctx context.Context, id int64) (*domain.Problem, error) {
	query := problemSelect + `
	WHERE p.id = $1
	GROUP BY p.id`

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("get problem: %w", err)
	}

	problems, err := scanProblems(rows)
	if err != nil {
		return nil, err
	}
	if len(problems) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &problems[0], nil
}

// List returns approved problems matching the filter, newest first.
func (r *ProblemRepository) List(ctx context.Context, filter repository.ProblemFilter) ([]domain.Problem, error) {
	where, args := buildProblemFilter(filter)

	query := fmt.Sprintf(`%s
	%s
	GROUP BY p.id
	ORDER BY p.created_at DESC, p.id DESC
	LIMIT $%d OFFSET $%d`, problemSelect, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}

	return scanProblems(rows)
}

// Count returns the number of approved problems matching the filter.
func (r *ProblemRepository) Count(ctx context.Context, filter repository.ProblemFilter) (int64, error) {
	where, args := buildProblemFilter(filter)

	query := `
	SELECT COUNT(DISTINCT p.id)
	FROM problems p
	LEFT JOIN problems_tags pt ON pt.problem_id = p.id
	LEFT JOIN tags t ON t.id = pt.tag_id
	` + where

	var count int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count problems: %w", err)
	}

	return count, nil
}

// ListTags returns all tags ordered by name.
func (r *ProblemRepository) ListTags(ctx context.Context) ([]domain.Tag, error) {
	query := `SELECT id, name FROM tags ORDER BY name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag row: %w", err)
		}
		tags = append(tags, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tag rows: %w", err)
	}

	if tags == nil {
		tags = []domain.Tag{}
	}

	return tags, nil
}

// InsertComment adds a comment to a problem.
func (r *ProblemRepository) InsertComment(ctx context.Context, problemID, userID int64, body string) (*domain.Comment, error) {
	query := `
		INSERT INTO comments (problem_id, user_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	c := domain.Comment{
		ProblemID: problemID,
		UserID:    userID,
		Body:      body,
	}
	err := r.db.QueryRow(ctx, query, problemID, userID, body).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, apperrors.NotFound("problem", problemID)
		}
		return nil, fmt.Errorf("insert comment: %w", err)
	}

	return &c, nil
}

// ListComments returns a problem's comments, oldest first.
func (r *ProblemRepository) ListComments(ctx context.Context, problemID int64) ([]domain.Comment, error) {
	query := `
		SELECT c.id, c.problem_id, c.user_id, u.username, c.body, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.problem_id = $1
		ORDER BY c.created_at ASC, c.id ASC`

	rows, err := r.db.Query(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.ProblemID, &c.UserID, &c.Author, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment row: %w", err)
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comment rows: %w", err)
	}

	if comments == nil {
		comments = []domain.Comment{}
	}

	return comments, nil
}

// buildProblemFilter renders the WHERE clause shared by List and Count.
// Listings only ever expose approved problems.
func buildProblemFilter(filter repository.ProblemFilter) (string, []any) {
	clauses := []string{"p.status = 'approved'"}
	var args []any

	if len(filter.Difficulties) > 0 {
		args = append(args, filter.Difficulties)
		clauses = append(clauses, fmt.Sprintf("p.difficulty = ANY($%d)", len(args)))
	}
	if len(filter.Tags) > 0 {
		args = append(args, filter.Tags)
		clauses = append(clauses, fmt.Sprintf(
			"p.id IN (SELECT pt2.problem_id FROM problems_tags pt2 JOIN tags t2 ON t2.id = pt2.tag_id WHERE t2.name = ANY($%d))",
			len(args)))
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

// scanProblems drains a result set produced by problemSelect.
func scanProblems(rows pgx.Rows) ([]domain.Problem, error) {
	defer rows.Close()

	var problems []domain.Problem
	for rows.Next() {
		var (
			p    domain.Problem
			tags string
		)
		if err := rows.Scan(
			&p.ID,
			&p.Title,
			&p.Description,
			&p.Source,
			&p.Difficulty,
			&p.Status,
			&tags,
			&p.TotalComments,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan problem row: %w", err)
		}
		if tags == "" {
			p.Tags = []string{}
		} else {
			p.Tags = strings.Split(tags, ",")
		}
		problems = append(problems, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate problem rows: %w", err)
	}

	if problems == nil {
		problems = []domain.Problem{}
	}

	return problems, nil
}

// isForeignKeyViolation checks for a PostgreSQL foreign key violation (SQLSTATE 23503).
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23503")
}
