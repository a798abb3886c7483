package controllers

import (
	"net"
	"net/http"

	"github.com/kgyan/makola/app/services"
	"github.com/kgyan/makola/pkg/bind"
	"github.com/kgyan/makola/pkg/middleware"
	"github.com/kgyan/makola/pkg/response"
)

type RoleController struct {
	roles *services.RoleService
}

func NewRoleController() *RoleController {
	return &RoleController{roles: services.NewRoleService()}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Change handles POST /api/admin/roles: one grant or revoke per request.
func (c *RoleController) Change(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.UserIDFromCtx(r.Context())

	var in services.RoleChange
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}
	in.RequestIP = clientIP(r)

	result, err := c.roles.Change(actorID, in)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, result)
}

// List returns a user's current roles with their grant timestamps.
func (c *RoleController) List(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.UserIDFromCtx(r.Context())

	assignments, err := c.roles.AssignmentsFor(actorID, paramUint(r, "id"))
	if err != nil {
		response.FromError(w, err)
		return
	}

	roles := make([]map[string]interface{}, 0, len(assignments))
	for _, a := range assignments {
		roles = append(roles, map[string]interface{}{
			"role":       a.Role,
			"granted_at": a.CreatedAt,
		})
	}
	response.Success(w, map[string]interface{}{"roles": roles})
}

// Audit returns the newest role-change audit entries for a user.
func (c *RoleController) Audit(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.UserIDFromCtx(r.Context())

	entries, err := c.roles.Audit(actorID, paramUint(r, "id"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, entries)
}
