package domain

import "time"

// Problem difficulty levels.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Problem moderation states. Only approved problems appear in listings.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// ValidDifficulty reports whether s names a known difficulty level.
func ValidDifficulty(s string) bool {
	return s == DifficultyEasy || s == DifficultyMedium || s == DifficultyHard
}

// Problem is a posted question. Tags and TotalComments are read-model
// aggregates computed by the listing queries.
type Problem struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Source        string    `json:"source,omitempty"`
	Difficulty    string    `json:"difficulty"`
	Status        string    `json:"status"`
	Tags          []string  `json:"tags"`
	TotalComments int64     `json:"total_comments"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProblemPage is one page of a problem listing.
type ProblemPage struct {
	Problems   []Problem `json:"problems"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PerPage    int       `json:"per_page"`
	TotalPages int       `json:"total_pages"`
}

// Tag is a topic label attached to problems.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Comment is a user remark on a problem.
type Comment struct {
	ID        int64     `json:"id"`
	ProblemID int64     `json:"problem_id"`
	UserID    int64     `json:"user_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
