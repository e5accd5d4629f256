package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Ronak-Malkan/teachyourselfmath/internal/service"
	"github.com/Ronak-Malkan/teachyourselfmath/pkg/middleware"
	"github.com/Ronak-Malkan/teachyourselfmath/pkg/validator"
)

// ProblemHandler handles HTTP requests for problems, tags, and comments.
type ProblemHandler struct {
	service *service.ProblemService
	logger  *slog.Logger
}

// NewProblemHandler creates a new problem HTTP handler.
func NewProblemHandler(svc *service.ProblemService, logger *slog.Logger) *ProblemHandler {
	return &ProblemHandler{service: svc, logger: logger}
}

// CreateProblemRequest is the JSON request body for problem submission.
type CreateProblemRequest struct {
	Title       string   `json:"title" validate:"required,min=1,max=300"`
	Description string   `json:"description" validate:"required,min=1"`
	Source      string   `json:"source" validate:"max=200"`
	Difficulty  string   `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Tags        []string `json:"tags" validate:"max=10,dive,min=1,max=50"`
}

// AddCommentRequest is the JSON request body for posting a comment.
type AddCommentRequest struct {
	Body string `json:"body" validate:"required,min=1,max=5000"`
}

// List handles GET /api/v1/problems
func (h *ProblemHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	input := service.ListProblemsInput{
		Tags:         splitParam(q.Get("tags")),
		Difficulties: splitParam(q.Get("difficulty")),
	}

	var err error
	if input.Page, err = intParam(q.Get("page"), 1); err != nil {
		writeBadRequest(w, "page must be an integer")
		return
	}
	if input.PerPage, err = intParam(q.Get("per_page"), 0); err != nil {
		writeBadRequest(w, "per_page must be an integer")
		return
	}

	page, err := h.service.ListProblems(r.Context(), input)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: page})
}

// Get handles GET /api/v1/problems/{id}
func (h *ProblemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "problem id must be an integer")
		return
	}

	problem, err := h.service.GetProblem(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: problem})
}

// Create handles POST /api/v1/problems
func (h *ProblemHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req CreateProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	problem, err := h.service.CreateProblem(r.Context(), service.CreateProblemInput{
		Title:       req.Title,
		Description: req.Description,
		Source:      req.Source,
		Difficulty:  req.Difficulty,
		Tags:        req.Tags,
	})
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, response{Data: problem})
}

// ListTags handles GET /api/v1/tags
func (h *ProblemHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.ListTags(r.Context())
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: tags})
}

// ListComments handles GET /api/v1/problems/{id}/comments
func (h *ProblemHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "problem id must be an integer")
		return
	}

	comments, err := h.service.ListComments(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: comments})
}

// AddComment handles POST /api/v1/problems/{id}/comments
func (h *ProblemHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, response{
			Error: &errorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "problem id must be an integer")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	comment, err := h.service.AddComment(r.Context(), id, identity.UserID, req.Body)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, response{Data: comment})
}

func splitParam(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intParam(s string, fallback int) (int, error) {
	if s == "" {
		return fallback, nil
	}
	return strconv.Atoi(s)
}
