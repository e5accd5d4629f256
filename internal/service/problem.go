package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Ronak-Malkan/teachyourselfmath/internal/domain"
	"github.com/Ronak-Malkan/teachyourselfmath/internal/repository"
	apperrors "github.com/Ronak-Malkan/teachyourselfmath/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ProblemEvents is the slice of the event producer the problem service
// publishes to.
type ProblemEvents interface {
	ProblemCreated(ctx context.Context, p *domain.Problem) error
}

// ListingCache caches listing pages and the tag index. Implementations must
// treat every failure as a miss; the service never depends on the cache for
// correctness.
type ListingCache interface {
	GetProblemPage(ctx context.Context, filterKey string) (*domain.ProblemPage, bool)
	SetProblemPage(ctx context.Context, filterKey string, page *domain.ProblemPage)
	GetTags(ctx context.Context) ([]domain.Tag, bool)
	SetTags(ctx context.Context, tags []domain.Tag)
	Invalidate(ctx context.Context)
}

// ProblemService owns problem submission, listing, tags, and comments.
type ProblemService struct {
	problems repository.ProblemRepository
	cache    ListingCache
	events   ProblemEvents
	logger   *slog.Logger
}

// NewProblemService creates a problem service.
func NewProblemService(
	problems repository.ProblemRepository,
	cache ListingCache,
	events ProblemEvents,
	logger *slog.Logger,
) *ProblemService {
	return &ProblemService{
		problems: problems,
		cache:    cache,
		events:   events,
		logger:   logger,
	}
}

// CreateProblemInput carries the fields needed to submit a problem.
type CreateProblemInput struct {
	Title       string
	Description string
	Source      string
	Difficulty  string
	Tags        []string
}

// CreateProblem submits a problem for moderation. It enters the listing only
// once approved.
func (s *ProblemService) CreateProblem(ctx context.Context, input CreateProblemInput) (*domain.Problem, error) {
	if !domain.ValidDifficulty(input.Difficulty) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown difficulty %q", input.Difficulty))
	}

	problem, err := s.problems.Insert(ctx, &domain.Problem{
		Title:       input.Title,
		Description: input.Description,
		Source:      input.Source,
		Difficulty:  input.Difficulty,
	})
	if err != nil {
		return nil, err
	}

	tags := normalizeTags(input.Tags)
	for _, name := range tags {
		tag, err := s.problems.UpsertTag(ctx, name)
		if err != nil {
			return nil, err
		}
		if err := s.problems.AttachTag(ctx, problem.ID, tag.ID); err != nil {
			return nil, err
		}
	}
	problem.Tags = tags

	s.cache.Invalidate(ctx)

	if err := s.events.ProblemCreated(ctx, problem); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish problem.created",
			slog.Int64("problem_id", problem.ID),
			slog.String("error", err.Error()),
		)
	}

	return problem, nil
}

// GetProblem retrieves one problem with its tags and comment count.
func (s *ProblemService) GetProblem(ctx context.Context, id int64) (*domain.Problem, error) {
	problem, err := s.problems.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("problem", id)
		}
		return nil, err
	}
	return problem, nil
}

// ListProblemsInput narrows and pages a problem listing.
type ListProblemsInput struct {
	Tags         []string
	Difficulties []string
	Page         int
	PerPage      int
}

// ListProblems returns a page of approved problems, read through the cache.
func (s *ProblemService) ListProblems(ctx context.Context, input ListProblemsInput) (*domain.ProblemPage, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.PerPage < 1 {
		input.PerPage = defaultPageSize
	}
	if input.PerPage > maxPageSize {
		input.PerPage = maxPageSize
	}
	for _, d := range input.Difficulties {
		if !domain.ValidDifficulty(d) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("unknown difficulty %q", d))
		}
	}
	input.Tags = normalizeTags(input.Tags)

	key := listingKey(input)
	if page, ok := s.cache.GetProblemPage(ctx, key); ok {
		return page, nil
	}

	filter := repository.ProblemFilter{
		Tags:         input.Tags,
		Difficulties: input.Difficulties,
		Limit:        input.PerPage,
		Offset:       (input.Page - 1) * input.PerPage,
	}

	problems, err := s.problems.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	total, err := s.problems.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	page := &domain.ProblemPage{
		Problems:   problems,
		Total:      total,
		Page:       input.Page,
		PerPage:    input.PerPage,
		TotalPages: int((total + int64(input.PerPage) - 1) / int64(input.PerPage)),
	}

	s.cache.SetProblemPage(ctx, key, page)
	return page, nil
}

// ListTags returns all tags, read through the cache.
func (s *ProblemService) ListTags(ctx context.Context) ([]domain.Tag, error) {
	if tags, ok := s.cache.GetTags(ctx); ok {
		return tags, nil
	}

	tags, err := s.problems.ListTags(ctx)
	if err != nil {
		return nil, err
	}

	s.cache.SetTags(ctx, tags)
	return tags, nil
}

// AddComment posts a comment on a problem.
func (s *ProblemService) AddComment(ctx context.Context, problemID, userID int64, body string) (*domain.Comment, error) {
	comment, err := s.problems.InsertComment(ctx, problemID, userID, body)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("problem", problemID)
		}
		return nil, err
	}
	return comment, nil
}

// ListComments returns a problem's comments, oldest first. Unknown problems
// are a not-found, not an empty list.
func (s *ProblemService) ListComments(ctx context.Context, problemID int64) ([]domain.Comment, error) {
	if _, err := s.problems.Get(ctx, problemID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("problem", problemID)
		}
		return nil, err
	}

	return s.problems.ListComments(ctx, problemID)
}

// normalizeTags lowercases, trims, dedupes, and sorts tag names.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		name := strings.ToLower(strings.TrimSpace(t))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// listingKey renders a stable cache key for the listing filter.
func listingKey(input ListProblemsInput) string {
	difficulties := append([]string(nil), input.Difficulties...)
	sort.Strings(difficulties)
	return fmt.Sprintf("tags=%s:diff=%s:page=%d:per=%d",
		strings.Join(input.Tags, ","),
		strings.Join(difficulties, ","),
		input.Page,
		input.PerPage,
	)
}
