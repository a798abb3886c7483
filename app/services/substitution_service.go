package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/app/repositories"
	"github.com/kgyan/makola/pkg/apperr"
	"github.com/kgyan/makola/pkg/logger"
	"gorm.io/gorm"
)

// SubstitutionInput is a shopper asking to swap one item for another.
type SubstitutionInput struct {
	OrderID     uint   `json:"order_id" validate:"required"`
	OrderItemID uint   `json:"order_item_id" validate:"required"`
	Reason      string `json:"reason" validate:"required"`
	Suggestion  string `json:"suggestion" validate:"max=255"`
	PhotoPath   string `json:"photo_path"`
}

// SubstitutionResponse resolves a pending request. Approving carries the
// replacement item snapshot.
type SubstitutionResponse struct {
	Approve     bool    `json:"approve"`
	Note        string  `json:"note"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// SubstitutionService handles out-of-stock swaps mid-shop. The assigned
// shopper raises a request; the consumer answers it.
type SubstitutionService struct {
	subs    *repositories.SubstitutionRepository
	orders  *repositories.OrderRepository
	markets *repositories.MarketRepository
}

func NewSubstitutionService() *SubstitutionService {
	return &SubstitutionService{
		subs:    repositories.NewSubstitutionRepository(),
		orders:  repositories.NewOrderRepository(),
		markets: repositories.NewMarketRepository(),
	}
}

// Request opens a substitution request. Only the order's assigned shopper
// may raise one, and only while the order is being shopped.
func (s *SubstitutionService) Request(userID uint, in SubstitutionInput) (models.SubstitutionRequest, error) {
	order, err := s.orders.FindByID(in.OrderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.SubstitutionRequest{}, fmt.Errorf("%w: order %d", apperr.ErrNotFound, in.OrderID)
	}
	if err != nil {
		return models.SubstitutionRequest{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}

	shopper, serr := s.markets.ShopperForUser(userID)
	if serr != nil || order.ShopperID == nil || *order.ShopperID != shopper.ID {
		return models.SubstitutionRequest{}, fmt.Errorf("%w: not the assigned shopper", apperr.ErrForbidden)
	}
	switch order.Status {
	case models.OrderPickedUp, models.OrderInspecting:
	default:
		return models.SubstitutionRequest{}, apperr.BadRequestf("order %s is %s, substitutions closed", order.Number, order.Status)
	}

	item, ierr := s.orders.FindItem(in.OrderItemID)
	if ierr != nil || item.OrderID != order.ID {
		return models.SubstitutionRequest{}, fmt.Errorf("%w: item %d", apperr.ErrNotFound, in.OrderItemID)
	}
	if strings.TrimSpace(in.Reason) == "" {
		return models.SubstitutionRequest{}, apperr.BadRequestf("reason is required")
	}

	req := models.SubstitutionRequest{
		OrderID:     order.ID,
		OrderItemID: item.ID,
		RequesterID: userID,
		Reason:      in.Reason,
		Suggestion:  in.Suggestion,
		PhotoPath:   in.PhotoPath,
		Status:      models.SubstitutionPending,
	}
	if err := s.subs.Create(&req); err != nil {
		return models.SubstitutionRequest{}, fmt.Errorf("%w: create substitution: %v", apperr.ErrUpstream, err)
	}

	logger.Info("substitution requested", "order", order.Number, "item", item.ID, "shopper", shopper.ID)
	return req, nil
}

// Respond resolves a pending request. The order's consumer (or an admin)
// answers; approval rewrites the item snapshot and reprices the order.
// Responses are exclusive: a request already answered reports Conflict.
func (s *SubstitutionService) Respond(userID, requestID uint, isAdmin bool, resp SubstitutionResponse) (models.SubstitutionRequest, error) {
	req, err := s.subs.FindByID(requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.SubstitutionRequest{}, fmt.Errorf("%w: substitution %d", apperr.ErrNotFound, requestID)
	}
	if err != nil {
		return models.SubstitutionRequest{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}

	order, oerr := s.orders.FindByID(req.OrderID)
	if oerr != nil {
		return models.SubstitutionRequest{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, oerr)
	}
	if !isAdmin && order.ConsumerID != userID {
		return models.SubstitutionRequest{}, fmt.Errorf("%w: not the consumer for this order", apperr.ErrForbidden)
	}

	to := models.SubstitutionRejected
	if resp.Approve {
		to = models.SubstitutionApproved
		if strings.TrimSpace(resp.ProductName) == "" || resp.Quantity < 1 || resp.UnitPrice < 0 {
			return models.SubstitutionRequest{}, apperr.BadRequestf("approval needs a valid replacement item")
		}
	}

	ok, rerr := s.subs.Respond(requestID, to, userID, resp.Note)
	if rerr != nil {
		return models.SubstitutionRequest{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, rerr)
	}
	if !ok {
		return models.SubstitutionRequest{}, apperr.Conflictf("substitution %d was already answered", requestID)
	}

	if resp.Approve {
		if aerr := s.orders.ApplySubstitution(order.ID, req.OrderItemID, resp.ProductName, resp.Quantity, resp.UnitPrice); aerr != nil {
			return models.SubstitutionRequest{}, fmt.Errorf("%w: apply substitution: %v", apperr.ErrUpstream, aerr)
		}
	}

	logger.Info("substitution answered", "substitution", requestID, "order", order.Number, "status", to)
	return s.subs.FindByID(requestID)
}

// PendingForOrder lists unresolved requests for a participant.
func (s *SubstitutionService) PendingForOrder(callerID, orderID uint, isAdmin bool) ([]models.SubstitutionRequest, error) {
	order, err := s.orders.FindByID(orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order %d", apperr.ErrNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	if !isAdmin && order.ConsumerID != callerID {
		shopper, serr := s.markets.ShopperForUser(callerID)
		if serr != nil || order.ShopperID == nil || *order.ShopperID != shopper.ID {
			return nil, fmt.Errorf("%w: order %d", apperr.ErrNotFound, orderID)
		}
	}
	return s.subs.PendingForOrder(orderID)
}
