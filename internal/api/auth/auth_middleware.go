package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/atelier-studio/atelier-api/internal/api"
	"github.com/atelier-studio/atelier-api/internal/types"
)

type contextKey string

// principalKey holds the *types.User resolved by Authenticate.
const principalKey contextKey = "principal"

// Authenticate validates the bearer token and resolves the principal
// against the database, so a deleted account is rejected even with a
// still-valid token.
func Authenticate(service AuthService, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Access token required")
				return
			}

			headerParts := strings.SplitN(authHeader, " ", 2)
			if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") || headerParts[1] == "" {
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Access token required")
				return
			}

			userID, err := service.VerifyToken(headerParts[1])
			if err != nil {
				l.WarnContext(ctx, "Token verification failed", slog.Any("error", err))
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			user, err := service.GetUserByID(ctx, userID)
			if err != nil {
				l.WarnContext(ctx, "Principal no longer exists", slog.String("user_id", userID.String()))
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx = context.WithValue(ctx, principalKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates admin routes. It must run after Authenticate.
func RequireAdmin(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := PrincipalFromContext(r.Context())
			if !ok {
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Access token required")
				return
			}
			if !user.IsAdmin() {
				logger.WarnContext(r.Context(), "Non-admin attempted admin route",
					slog.String("user_id", user.ID.String()), slog.String("path", r.URL.Path))
				api.ErrorResponse(w, r, http.StatusForbidden, "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext returns the authenticated user, if any.
func PrincipalFromContext(ctx context.Context) (*types.User, bool) {
	user, ok := ctx.Value(principalKey).(*types.User)
	return user, ok
}

// ContextWithPrincipal is exported for handler tests.
func ContextWithPrincipal(ctx context.Context, user *types.User) context.Context {
	return context.WithValue(ctx, principalKey, user)
}
