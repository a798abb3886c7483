package controllers

import (
	"net/http"

	"github.com/kgyan/makola/app/services"
	"github.com/kgyan/makola/pkg/bind"
	"github.com/kgyan/makola/pkg/middleware"
	"github.com/kgyan/makola/pkg/response"
)

type AuthController struct {
	auth  *services.AuthService
	roles *services.RoleService
}

func NewAuthController() *AuthController {
	return &AuthController{
		auth:  services.NewAuthService(),
		roles: services.NewRoleService(),
	}
}

func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	user, pair, err := c.auth.Register(in)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, map[string]interface{}{
		"user":   user,
		"tokens": pair,
	})
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	user, pair, err := c.auth.Login(in)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]interface{}{
		"user":   user,
		"tokens": pair,
	})
}

func (c *AuthController) Refresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	pair, err := c.auth.Refresh(in.RefreshToken)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, pair)
}

// Me returns the caller's id and live roles, read from the store rather
// than the token.
func (c *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromCtx(r.Context())
	if !ok {
		response.Unauthorized(w)
		return
	}

	roles, err := c.roles.RolesFor(userID, userID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]interface{}{
		"user_id": userID,
		"roles":   roles,
	})
}
