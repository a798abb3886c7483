// Package controllers holds the HTTP handlers. Controllers stay thin:
// decode, call the service, encode. Authorization beyond role routing
// lives in the services.
package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/pkg/middleware"
)

// paramUint reads a numeric chi URL parameter. Zero means absent or
// malformed.
func paramUint(r *http.Request, key string) uint {
	raw := chi.URLParam(r, key)
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}

// isAdmin reports whether the request token carries the admin role. A
// routing hint only; services re-check the store for anything sensitive.
func isAdmin(r *http.Request) bool {
	return middleware.HasRoleCtx(r.Context(), models.RoleAdmin)
}
