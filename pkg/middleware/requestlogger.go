package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Ronak-Malkan/teachyourselfmath/pkg/logger"
)

// RequestLogger builds a request-scoped logger enriched with correlation_id,
// user_id, and trace context, and stores it in context via logger.NewContext.
// Mount it after RequestLogging (which sets correlation_id) and after Auth or
// OptionalAuth (which attach the identity).
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if identity := IdentityFromContext(ctx); identity != nil {
				ctx = logger.WithUserID(ctx, strconv.FormatInt(identity.UserID, 10))
			}

			enriched := logger.WithContext(ctx, base)
			ctx = logger.NewContext(ctx, enriched)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
