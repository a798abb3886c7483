package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/kgyan/makola/pkg/auth"
	"github.com/kgyan/makola/pkg/response"
)

type userIDKey struct{}
type rolesKey struct{}

// Auth validates the bearer token and stores the caller's user ID and role
// snapshot in the request context. Roles from the token are a UX affordance;
// services re-verify against the store before privileged writes.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.Unauthorized(w)
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		claims, err := auth.ValidateToken(token)
		if err != nil {
			response.Unauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey{}, claims.UserID)
		ctx = context.WithValue(ctx, rolesKey{}, claims.Roles)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth populates the context from a bearer token when one is
// present but lets anonymous requests through. Used on callback endpoints
// that authenticate with a service key instead of a user token.
func OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			if claims, err := auth.ValidateToken(strings.TrimPrefix(header, "Bearer ")); err == nil {
				ctx := context.WithValue(r.Context(), userIDKey{}, claims.UserID)
				ctx = context.WithValue(ctx, rolesKey{}, claims.Roles)
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// UserIDFromCtx returns the authenticated caller's user ID.
func UserIDFromCtx(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(userIDKey{}).(uint)
	return id, ok
}

// RolesFromCtx returns the caller's role snapshot from the token.
func RolesFromCtx(ctx context.Context) []string {
	roles, _ := ctx.Value(rolesKey{}).([]string)
	return roles
}

// HasRoleCtx reports whether the token snapshot carries the given role.
func HasRoleCtx(ctx context.Context, role string) bool {
	for _, r := range RolesFromCtx(ctx) {
		if r == role {
			return true
		}
	}
	return false
}
