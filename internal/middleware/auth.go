package middleware

import (
	"context"
	"net/http"

	"github.com/lucratix100/cmga-invoice/internal/domain"
)

const (
	// RoleHeader carries the caller's role, set by the authenticating
	// reverse proxy in front of this service.
	RoleHeader = "X-User-Role"

	// RoleContextKey is the context key for the caller's role
	RoleContextKey contextKey = "role"
)

// ResolveRole extracts the caller's role from the request headers and
// stores it in the request context. Requests without a valid role are
// rejected.
func ResolveRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := domain.ParseRole(r.Header.Get(RoleHeader))
		if !ok {
			respondError(w, &domain.Error{
				Code:    domain.EUNAUTHORIZED,
				Message: "A valid role is required",
				Op:      "middleware.ResolveRole",
			})
			return
		}

		ctx := context.WithValue(r.Context(), RoleContextKey, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRole retrieves the caller's role from the context
func GetRole(ctx context.Context) (domain.Role, bool) {
	role, ok := ctx.Value(RoleContextKey).(domain.Role)
	return role, ok
}

// RequireCapability rejects requests whose role lacks the capability.
func RequireCapability(cap domain.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetRole(r.Context())
			if !ok || !domain.Can(role, cap) {
				respondError(w, &domain.Error{
					Code:    domain.EFORBIDDEN,
					Message: "You do not have permission to perform this action",
					Op:      "middleware.RequireCapability",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
