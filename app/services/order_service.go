package services

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kgyan/makola/app/jobs"
	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/app/repositories"
	"github.com/kgyan/makola/pkg/apperr"
	"github.com/kgyan/makola/pkg/collection"
	"github.com/kgyan/makola/pkg/event"
	"github.com/kgyan/makola/pkg/logger"
	"github.com/kgyan/makola/pkg/metrics"
	"github.com/kgyan/makola/pkg/orm"
	"github.com/kgyan/makola/pkg/queue"
	"gorm.io/gorm"
)

// ShopperCommissionRate is the fixed cut of the subtotal paid to the shopper.
const ShopperCommissionRate = 0.10

// CheckoutItem is one submitted line of a consumer checkout.
type CheckoutItem struct {
	ProductRef  string  `json:"product_ref"`
	ProductName string  `json:"product_name" validate:"required,max=255"`
	Quantity    int     `json:"quantity" validate:"required,gte=1"`
	UnitPrice   float64 `json:"unit_price" validate:"required,gte=0"`
}

// OrderService owns the order lifecycle: checkout and status transitions.
type OrderService struct {
	orders   *repositories.OrderRepository
	jobs     *repositories.JobRepository
	markets  *repositories.MarketRepository
	payments *repositories.PaymentRepository
}

func NewOrderService() *OrderService {
	return &OrderService{
		orders:   repositories.NewOrderRepository(),
		jobs:     repositories.NewJobRepository(),
		markets:  repositories.NewMarketRepository(),
		payments: repositories.NewPaymentRepository(),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// newOrderNumber builds a human-readable, collision-resistant order number:
// MKL-20260829-4F2A1C.
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("MKL-%s-%s", now.Format("20060102"), suffix)
}

// Checkout places an order: it prices the submitted lines, creates the
// order with its item snapshots, and opens the shopper job, all in one
// transaction. subtotal = Σ qty×unit price, fee = 10% of subtotal,
// total = subtotal + fee.
func (s *OrderService) Checkout(consumerID, vendorID uint, items []CheckoutItem, instructions string) (models.Order, error) {
	if len(items) == 0 {
		return models.Order{}, apperr.BadRequestf("order must contain at least one item")
	}
	for _, it := range items {
		if it.Quantity < 1 {
			return models.Order{}, apperr.BadRequestf("quantity must be at least 1")
		}
		if it.UnitPrice < 0 {
			return models.Order{}, apperr.BadRequestf("unit price cannot be negative")
		}
	}

	vendor, err := s.markets.FindVendor(vendorID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Order{}, fmt.Errorf("%w: vendor %d", apperr.ErrNotFound, vendorID)
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}

	lines := collection.Map(items, func(it CheckoutItem) models.OrderItem {
		return models.OrderItem{
			ProductRef:  it.ProductRef,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   round2(float64(it.Quantity) * it.UnitPrice),
		}
	})
	subtotal := round2(collection.Sum(lines, func(l models.OrderItem) float64 {
		return l.LineTotal
	}))
	fee := round2(subtotal * ShopperCommissionRate)

	order := models.Order{
		Number:       newOrderNumber(time.Now()),
		ConsumerID:   consumerID,
		VendorID:     vendor.ID,
		MarketID:     vendor.MarketID,
		Status:       models.OrderPending,
		Subtotal:     subtotal,
		ShopperFee:   fee,
		Total:        round2(subtotal + fee),
		Instructions: instructions,
		Items:        lines,
	}
	job := models.ShopperJob{
		Status:     models.JobAvailable,
		Commission: fee,
	}

	if err := s.orders.CreateWithChildren(&order, &job); err != nil {
		return models.Order{}, fmt.Errorf("%w: create order: %v", apperr.ErrUpstream, err)
	}

	logger.Info("order placed",
		"order", order.Number, "consumer", consumerID, "vendor", vendor.ID, "total", order.Total)
	event.FireAsync("order.placed", order)
	return order, nil
}

// Find returns an order, restricted to participants and admins.
func (s *OrderService) Find(callerID, orderID uint, isAdmin bool) (models.Order, error) {
	order, err := s.orders.FindByID(orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Order{}, fmt.Errorf("%w: order %d", apperr.ErrNotFound, orderID)
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	if !isAdmin && !s.hasStanding(callerID, order) {
		return models.Order{}, fmt.Errorf("%w: order %d", apperr.ErrNotFound, orderID)
	}
	return order, nil
}

// ForConsumer lists the caller's own orders.
func (s *OrderService) ForConsumer(consumerID uint) ([]models.Order, error) {
	return s.orders.ForConsumer(consumerID)
}

// ForVendor pages through the caller's stall queue, newest first.
func (s *OrderService) ForVendor(userID uint, page, perPage int) ([]models.Order, orm.Pagination, error) {
	vendor, err := s.markets.VendorForUser(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, orm.Pagination{}, fmt.Errorf("%w: no vendor profile", apperr.ErrForbidden)
	}
	if err != nil {
		return nil, orm.Pagination{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	return s.orders.ForVendor(vendor.ID, page, perPage)
}

// VendorTransition applies a vendor-side event (accept, cancel,
// start_preparing, mark_ready) on behalf of the vendor's user account.
func (s *OrderService) VendorTransition(userID, orderID uint, ev OrderEvent) (models.Order, error) {
	switch ev {
	case EventAccept, EventCancel, EventStartPreparing, EventMarkReady:
	default:
		return models.Order{}, fmt.Errorf("%w: %s is not a vendor event", apperr.ErrBadRequest, ev)
	}

	order, err := s.orders.FindByID(orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Order{}, fmt.Errorf("%w: order %d", apperr.ErrNotFound, orderID)
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}

	vendor, err := s.markets.VendorForUser(userID)
	if err != nil || vendor.ID != order.VendorID {
		return models.Order{}, fmt.Errorf("%w: not the vendor for this order", apperr.ErrForbidden)
	}

	return s.apply(order, ev, nil)
}

// PickUp collects a ready order. Only the shopper who claimed the job may
// pick up; the order's shopper reference is set in the same write.
func (s *OrderService) PickUp(userID, orderID uint) (models.Order, error) {
	order, err := s.orders.FindByID(orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Order{}, fmt.Errorf("%w: order %d", apperr.ErrNotFound, orderID)
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}

	shopper, err := s.markets.ShopperForUser(userID)
	if err != nil {
		return models.Order{}, fmt.Errorf("%w: no shopper profile", apperr.ErrForbidden)
	}
	job, err := s.jobs.FindByOrder(orderID)
	if err != nil || job.ShopperID == nil || *job.ShopperID != shopper.ID {
		return models.Order{}, fmt.Errorf("%w: job not claimed by caller", apperr.ErrForbidden)
	}

	return s.apply(order, EventPickUp, map[string]interface{}{"shopper_id": shopper.ID})
}

// AttachPickupPhoto records the proof photo and moves the order into
// inspection. The assigned shopper uploads the photo.
func (s *OrderService) AttachPickupPhoto(userID, orderID uint, photoPath string) (models.Order, error) {
	order, err := s.orders.FindByID(orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Order{}, fmt.Errorf("%w: order %d", apperr.ErrNotFound, orderID)
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}

	shopper, err := s.markets.ShopperForUser(userID)
	if err != nil || order.ShopperID == nil || *order.ShopperID != shopper.ID {
		return models.Order{}, fmt.Errorf("%w: not the assigned shopper", apperr.ErrForbidden)
	}

	return s.apply(order, EventBeginInspect, map[string]interface{}{
		"pickup_photo_path": photoPath,
		"inspection_status": "awaiting_consumer",
	})
}

// Approve is the consumer accepting the delivered goods. If the payment is
// already confirmed the order completes in the same call.
func (s *OrderService) Approve(userID, orderID uint) (models.Order, error) {
	order, err := s.orders.FindByID(orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Order{}, fmt.Errorf("%w: order %d", apperr.ErrNotFound, orderID)
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	if order.ConsumerID != userID {
		return models.Order{}, fmt.Errorf("%w: not the consumer for this order", apperr.ErrForbidden)
	}

	approved, err := s.apply(order, EventApprove, map[string]interface{}{
		"inspection_status": "approved",
	})
	if err != nil {
		return models.Order{}, err
	}

	return s.CompleteIfPaid(approved.ID)
}

// CompleteIfPaid closes an approved order whose payment has been confirmed.
// Called after consumer approval and after payment confirmation, whichever
// lands second.
func (s *OrderService) CompleteIfPaid(orderID uint) (models.Order, error) {
	order, err := s.orders.FindByID(orderID)
	if err != nil {
		return models.Order{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	if order.Status != models.OrderApproved {
		return order, nil
	}

	open, err := s.payments.OpenForOrder(orderID)
	if err != nil {
		return models.Order{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	if open != nil {
		// Still awaiting confirmation.
		return order, nil
	}

	paid, err := s.payments.CompletedForOrder(orderID)
	if err != nil {
		return models.Order{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	if !paid {
		return order, nil
	}

	return s.apply(order, EventComplete, nil)
}

// hasStanding reports whether the user is a participant in the order:
// its consumer, its vendor, or its assigned shopper.
func (s *OrderService) hasStanding(userID uint, order models.Order) bool {
	if order.ConsumerID == userID {
		return true
	}
	if vendor, err := s.markets.VendorForUser(userID); err == nil && vendor.ID == order.VendorID {
		return true
	}
	if order.ShopperID != nil {
		if shopper, err := s.markets.ShopperForUser(userID); err == nil && shopper.ID == *order.ShopperID {
			return true
		}
	}
	return false
}

// apply validates the edge, performs the conditional write, and emits
// metrics and events. A lost write race surfaces as Conflict, not as a
// silently re-applied transition.
func (s *OrderService) apply(order models.Order, ev OrderEvent, extra map[string]interface{}) (models.Order, error) {
	if order.Status.Terminal() {
		return models.Order{}, fmt.Errorf("%w: order %s is %s", apperr.ErrInvalidTransition, order.Number, order.Status)
	}

	next, err := NextStatus(order.Status, ev)
	if err != nil {
		return models.Order{}, err
	}

	ok, terr := s.orders.TransitionStatus(order.ID, order.Status, next, extra)
	if terr != nil {
		return models.Order{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, terr)
	}
	if !ok {
		return models.Order{}, apperr.Conflictf("order %s changed status concurrently", order.Number)
	}

	metrics.OrderTransitions.WithLabelValues(string(order.Status), string(next)).Inc()
	logger.Info("order transition",
		"order", order.Number, "from", order.Status, "to", next, "event", ev)
	event.FireAsync("order.transitioned", map[string]interface{}{
		"order_id": order.ID, "from": order.Status, "to": next,
	})
	if next == models.OrderCompleted {
		if qerr := queue.Dispatch(jobs.OrderReceiptJob{
			OrderID: order.ID, Number: order.Number, Total: order.Total,
		}); qerr != nil {
			logger.Error("receipt dispatch failed", "order", order.Number, "error", qerr)
		}
	}

	return s.orders.FindByID(order.ID)
}
