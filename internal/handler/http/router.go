package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ronak-Malkan/teachyourselfmath/internal/service"
	"github.com/Ronak-Malkan/teachyourselfmath/pkg/health"
	"github.com/Ronak-Malkan/teachyourselfmath/pkg/middleware"
)

// NewRouter creates a chi router with all routes registered.
func NewRouter(
	authService *service.AuthService,
	problemService *service.ProblemService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("teachyourselfmath"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	verify := middleware.TokenVerifier(authService.VerifyToken)

	// Auth endpoints (public)
	authHandler := NewAuthHandler(authService, logger)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Post("/password/reset-request", authHandler.RequestPasswordReset)
		r.Post("/password/reset", authHandler.CompletePasswordReset)
	})

	// Profile endpoints (auth required)
	userHandler := NewUserHandler(authService, logger)
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(verify))

		r.Get("/me", userHandler.GetProfile)
		r.Put("/me", userHandler.UpdateProfile)
		r.Put("/me/password", userHandler.UpdatePassword)
		r.Put("/me/preferences", userHandler.UpdatePreferences)
	})

	// Problem board
	problemHandler := NewProblemHandler(problemService, logger)
	r.Route("/api/v1/problems", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Listings are public; a valid token enriches the request log.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(verify))
			r.Use(middleware.RequestLogger(logger))

			r.Get("/", problemHandler.List)
			r.Get("/{id}", problemHandler.Get)
			r.Get("/{id}/comments", problemHandler.ListComments)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(verify))

			r.Post("/", problemHandler.Create)
			r.Post("/{id}/comments", problemHandler.AddComment)
		})
	})

	r.Route("/api/v1/tags", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(verify))

		r.Get("/", problemHandler.ListTags)
	})

	return r
}
