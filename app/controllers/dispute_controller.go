package controllers

import (
	"net/http"

	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/app/services"
	"github.com/kgyan/makola/pkg/bind"
	"github.com/kgyan/makola/pkg/middleware"
	"github.com/kgyan/makola/pkg/response"
)

type DisputeController struct {
	disputes *services.DisputeService
}

func NewDisputeController() *DisputeController {
	return &DisputeController{disputes: services.NewDisputeService()}
}

func (c *DisputeController) Open(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	var in services.DisputeInput
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	dispute, err := c.disputes.Open(userID, in)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, dispute)
}

// Advance moves a dispute through its workflow. Admin route.
func (c *DisputeController) Advance(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status string `json:"status" validate:"required,oneof=investigating resolved"`
		Notes  string `json:"notes"`
	}
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	dispute, err := c.disputes.Advance(paramUint(r, "id"), models.DisputeStatus(in.Status), in.Notes)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, dispute)
}

func (c *DisputeController) ForOrder(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	disputes, err := c.disputes.ForOrder(userID, paramUint(r, "id"), isAdmin(r))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, disputes)
}
