package controllers

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/kgyan/makola/app/services"
	"github.com/kgyan/makola/config"
	"github.com/kgyan/makola/pkg/bind"
	"github.com/kgyan/makola/pkg/middleware"
	"github.com/kgyan/makola/pkg/response"
)

type PaymentController struct {
	payments *services.PaymentService
	roles    *services.RoleService
}

func NewPaymentController() *PaymentController {
	return &PaymentController{
		payments: services.NewPaymentService(),
		roles:    services.NewRoleService(),
	}
}

func (c *PaymentController) Initiate(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	var in services.PaymentRequest
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	payment, err := c.payments.Initiate(userID, in)
	if err != nil {
		var pending *services.PendingPaymentError
		if errors.As(err, &pending) {
			response.ConflictData(w, err.Error(), map[string]interface{}{
				"payment_id": pending.PaymentID,
			})
			return
		}
		response.FromError(w, err)
		return
	}
	response.Created(w, payment)
}

// callbackAuthorized accepts the provider's service key or an admin whose
// role is re-read from the store. Payment settlement never comes from an
// ordinary user.
func (c *PaymentController) callbackAuthorized(r *http.Request) bool {
	key := config.ServiceRoleKey()
	if key != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get("X-Service-Key")), []byte(key)) == 1 {
		return true
	}
	userID, ok := middleware.UserIDFromCtx(r.Context())
	return ok && c.roles.IsAdmin(userID)
}

func (c *PaymentController) settle(w http.ResponseWriter, r *http.Request,
	fn func(uint, string) (interface{}, error)) {
	if !c.callbackAuthorized(r) {
		response.Forbidden(w)
		return
	}

	var in struct {
		ProviderRef string `json:"provider_ref"`
	}
	if _, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	payment, err := fn(paramUint(r, "id"), in.ProviderRef)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, payment)
}

func (c *PaymentController) Confirm(w http.ResponseWriter, r *http.Request) {
	c.settle(w, r, func(id uint, ref string) (interface{}, error) {
		return c.payments.Confirm(id, ref)
	})
}

func (c *PaymentController) Fail(w http.ResponseWriter, r *http.Request) {
	c.settle(w, r, func(id uint, ref string) (interface{}, error) {
		return c.payments.Fail(id, ref)
	})
}

func (c *PaymentController) ForOrder(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	payments, err := c.payments.ForOrder(userID, paramUint(r, "id"), isAdmin(r))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, payments)
}
