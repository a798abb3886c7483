// Package rbac provides role-based route gating for Makola.
//
// These middlewares read the role snapshot baked into the JWT, so they are
// fast but advisory: any service performing a privileged write re-checks the
// caller's roles against user_roles at call time.
package rbac

import (
	"net/http"

	"github.com/kgyan/makola/pkg/middleware"
	"github.com/kgyan/makola/pkg/response"
)

// HasRole returns middleware that allows access only to callers whose token
// carries at least one of the given roles. Requires middleware.Auth first.
func HasRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, role := range middleware.RolesFromCtx(r.Context()) {
				if allowed[role] {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Forbidden(w)
		})
	}
}

// Guest returns middleware that blocks authenticated users (login/register).
func Guest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.UserIDFromCtx(r.Context()); ok {
			response.Error(w, http.StatusConflict, "Already authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}
