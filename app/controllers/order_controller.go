package controllers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/kgyan/makola/app/services"
	"github.com/kgyan/makola/pkg/bind"
	"github.com/kgyan/makola/pkg/middleware"
	"github.com/kgyan/makola/pkg/response"
	"github.com/kgyan/makola/pkg/storage"
)

// maxPhotoBytes caps pickup photo uploads at 8 MB.
const maxPhotoBytes = 8 << 20

type OrderController struct {
	orders *services.OrderService
}

func NewOrderController() *OrderController {
	return &OrderController{orders: services.NewOrderService()}
}

func (c *OrderController) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	var in struct {
		VendorID     uint                    `json:"vendor_id" validate:"required"`
		Items        []services.CheckoutItem `json:"items" validate:"required"`
		Instructions string                  `json:"instructions"`
	}
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	order, err := c.orders.Checkout(userID, in.VendorID, in.Items, in.Instructions)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, order)
}

func (c *OrderController) Show(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	order, err := c.orders.Find(userID, paramUint(r, "id"), isAdmin(r))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, order)
}

func (c *OrderController) Mine(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	orders, err := c.orders.ForConsumer(userID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, orders)
}

// Queue pages through the caller's stall orders.
func (c *OrderController) Queue(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	orders, pagination, err := c.orders.ForVendor(userID, page, perPage)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Paginated(w, orders, pagination)
}

// vendorEvent builds a handler for one vendor-side lifecycle event.
func (c *OrderController) vendorEvent(ev services.OrderEvent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserIDFromCtx(r.Context())

		order, err := c.orders.VendorTransition(userID, paramUint(r, "id"), ev)
		if err != nil {
			response.FromError(w, err)
			return
		}
		response.Success(w, order)
	}
}

func (c *OrderController) Accept() http.HandlerFunc { return c.vendorEvent(services.EventAccept) }
func (c *OrderController) Cancel() http.HandlerFunc { return c.vendorEvent(services.EventCancel) }
func (c *OrderController) Prepare() http.HandlerFunc {
	return c.vendorEvent(services.EventStartPreparing)
}
func (c *OrderController) Ready() http.HandlerFunc { return c.vendorEvent(services.EventMarkReady) }

func (c *OrderController) PickUp(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	order, err := c.orders.PickUp(userID, paramUint(r, "id"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, order)
}

// PickupPhoto accepts a multipart proof photo, stores it, and moves the
// order into inspection.
func (c *OrderController) PickupPhoto(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())
	orderID := paramUint(r, "id")

	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		response.Error(w, http.StatusBadRequest, "photo must be jpg, png, or webp")
		return
	}

	path := fmt.Sprintf("pickups/%s/%s%s", strconv.FormatUint(uint64(orderID), 10), uuid.NewString(), ext)
	if err := storage.PutStream(path, file); err != nil {
		response.Error(w, http.StatusInternalServerError, "could not store photo")
		return
	}

	order, err := c.orders.AttachPickupPhoto(userID, orderID, path)
	if err != nil {
		storage.Delete(path) //nolint:errcheck
		response.FromError(w, err)
		return
	}
	response.Success(w, order)
}

func (c *OrderController) Approve(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	order, err := c.orders.Approve(userID, paramUint(r, "id"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, order)
}
