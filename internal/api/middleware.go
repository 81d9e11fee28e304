package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/learning-engine/internal/auth"
)

// AuthMiddleware handles bearer token authentication
type AuthMiddleware struct {
	issuer *auth.Issuer
}

// NewAuthMiddleware creates new auth middleware
func NewAuthMiddleware(issuer *auth.Issuer) *AuthMiddleware {
	return &AuthMiddleware{issuer: issuer}
}

// Authenticate verifies the bearer token from the Authorization header.
// Websocket clients that cannot set headers may pass ?access_token=.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "provide Authorization header with Bearer token")
			return
		}

		principal, err := m.issuer.Verify(token)
		if err != nil {
			slog.Warn("invalid token attempt", "error", err, "remote_addr", r.RemoteAddr)
			respondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}

		slog.Debug("authenticated request", "student_id", principal.ID, "role", principal.Role)

		ctx := ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission returns middleware that checks for specific permission
func (m *AuthMiddleware) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}

			if !principal.HasPermission(permission) {
				slog.Warn("permission denied",
					"student_id", principal.ID,
					"role", principal.Role,
					"required", permission,
				)
				respondError(w, http.StatusForbidden, "forbidden",
					"caller does not have required permission: "+permission)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// requireCourse resolves {courseId} and 404s on unknown courses
func (s *Server) requireCourse(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		course := s.catalog.Get(chi.URLParam(r, "courseId"))
		if course == nil {
			respondError(w, http.StatusNotFound, "course_not_found", "course not found")
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithCourse(r.Context(), course)))
	})
}

// extractToken extracts the bearer token from the request
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if strings.HasPrefix(header, "Bearer ") {
			return strings.TrimPrefix(header, "Bearer ")
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}
