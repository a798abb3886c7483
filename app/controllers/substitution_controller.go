package controllers

import (
	"net/http"

	"github.com/kgyan/makola/app/services"
	"github.com/kgyan/makola/pkg/bind"
	"github.com/kgyan/makola/pkg/middleware"
	"github.com/kgyan/makola/pkg/response"
)

type SubstitutionController struct {
	subs *services.SubstitutionService
}

func NewSubstitutionController() *SubstitutionController {
	return &SubstitutionController{subs: services.NewSubstitutionService()}
}

func (c *SubstitutionController) Request(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	var in services.SubstitutionInput
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	req, err := c.subs.Request(userID, in)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, req)
}

func (c *SubstitutionController) Respond(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	var in services.SubstitutionResponse
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	req, err := c.subs.Respond(userID, paramUint(r, "id"), isAdmin(r), in)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, req)
}

func (c *SubstitutionController) Pending(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	reqs, err := c.subs.PendingForOrder(userID, paramUint(r, "id"), isAdmin(r))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, reqs)
}
