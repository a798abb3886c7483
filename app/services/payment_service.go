package services

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/kgyan/makola/app/jobs"
	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/app/repositories"
	"github.com/kgyan/makola/pkg/apperr"
	"github.com/kgyan/makola/pkg/logger"
	"github.com/kgyan/makola/pkg/metrics"
	"github.com/kgyan/makola/pkg/queue"
	"gorm.io/gorm"
)

// AmountTolerance is how far a submitted amount may drift from the order
// total before it is rejected. Covers float rounding on the client side.
const AmountTolerance = 0.01

var momoPhonePattern = regexp.MustCompile(`^0[2-5]\d{8}$`)

// PendingPaymentError signals that the order already has an open payment.
// It unwraps to Conflict so transports map it to 409, while carrying the
// open payment's id for the response body.
type PendingPaymentError struct {
	PaymentID uint
}

func (e *PendingPaymentError) Error() string {
	return fmt.Sprintf("order already has an open payment (id %d)", e.PaymentID)
}

func (e *PendingPaymentError) Unwrap() error { return apperr.ErrConflict }

// PaymentRequest is one mobile-money payment initiation.
type PaymentRequest struct {
	OrderID     uint    `json:"order_id" validate:"required"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	MomoPhone   string  `json:"momo_phone" validate:"required"`
	MomoNetwork string  `json:"momo_network" validate:"required"`
}

// PaymentService guards mobile-money intake. It validates everything it
// can before touching the upstream provider and never marks a payment
// completed on its own; confirmation comes from the provider callback.
type PaymentService struct {
	payments *repositories.PaymentRepository
	orders   *repositories.OrderRepository
	flow     *OrderService
}

func NewPaymentService() *PaymentService {
	return &PaymentService{
		payments: repositories.NewPaymentRepository(),
		orders:   repositories.NewOrderRepository(),
		flow:     NewOrderService(),
	}
}

// Initiate opens a payment for an order. The guard runs in order: the
// caller must be the order's consumer, the order must not be terminal,
// the phone and network must be valid, the amount must match the order
// total, and the order must not already have an open payment.
func (s *PaymentService) Initiate(consumerID uint, req PaymentRequest) (models.Payment, error) {
	order, err := s.orders.FindByID(req.OrderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.PaymentsInitiated.WithLabelValues("rejected").Inc()
		return models.Payment{}, fmt.Errorf("%w: order %d", apperr.ErrNotFound, req.OrderID)
	}
	if err != nil {
		return models.Payment{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	if order.ConsumerID != consumerID {
		// A foreign order looks like a missing one; don't confirm it exists.
		metrics.PaymentsInitiated.WithLabelValues("rejected").Inc()
		return models.Payment{}, fmt.Errorf("%w: order %d", apperr.ErrNotFound, req.OrderID)
	}
	if order.Status.Terminal() {
		metrics.PaymentsInitiated.WithLabelValues("rejected").Inc()
		return models.Payment{}, apperr.BadRequestf("order %s is %s, cannot take payment", order.Number, order.Status)
	}

	phone := strings.TrimSpace(req.MomoPhone)
	if !momoPhonePattern.MatchString(phone) {
		metrics.PaymentsInitiated.WithLabelValues("rejected").Inc()
		return models.Payment{}, apperr.BadRequestf("invalid mobile money number")
	}
	network := strings.ToLower(strings.TrimSpace(req.MomoNetwork))
	if !models.MomoNetworks[network] {
		metrics.PaymentsInitiated.WithLabelValues("rejected").Inc()
		return models.Payment{}, apperr.BadRequestf("unknown mobile money network %q", req.MomoNetwork)
	}
	if math.Abs(req.Amount-order.Total) > AmountTolerance {
		metrics.PaymentsInitiated.WithLabelValues("rejected").Inc()
		return models.Payment{}, apperr.BadRequestf("amount %.2f does not match order total %.2f", req.Amount, order.Total)
	}

	payment := models.Payment{
		OrderID:     order.ID,
		Amount:      order.Total,
		Method:      "momo",
		MomoPhone:   phone,
		MomoNetwork: network,
		Status:      models.PaymentPending,
		Reference:   "PAY-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12],
	}

	existing, err := s.payments.CreateIfNoneOpen(&payment)
	if err != nil {
		return models.Payment{}, fmt.Errorf("%w: create payment: %v", apperr.ErrUpstream, err)
	}
	if existing != nil {
		metrics.PaymentsInitiated.WithLabelValues("conflict").Inc()
		return models.Payment{}, &PendingPaymentError{PaymentID: existing.ID}
	}

	metrics.PaymentsInitiated.WithLabelValues("accepted").Inc()
	logger.Info("payment initiated",
		"order", order.Number, "payment", payment.Reference, "network", network, "amount", payment.Amount)
	if qerr := queue.Dispatch(jobs.PaymentWebhookJob{
		PaymentID: payment.ID,
		Reference: payment.Reference,
		Amount:    payment.Amount,
		Network:   network,
	}); qerr != nil {
		logger.Error("payment webhook dispatch failed", "payment", payment.Reference, "error", qerr)
	}
	return payment, nil
}

// Confirm marks a pending or processing payment completed. Only the
// provider callback (service key) or an admin may confirm; the payment
// never completes on its own. Completing the payment may also close an
// already-approved order.
func (s *PaymentService) Confirm(paymentID uint, providerRef string) (models.Payment, error) {
	p, err := s.payments.FindByID(paymentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Payment{}, fmt.Errorf("%w: payment %d", apperr.ErrNotFound, paymentID)
	}
	if err != nil {
		return models.Payment{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	if !p.Status.Open() {
		return models.Payment{}, apperr.Conflictf("payment %s is already %s", p.Reference, p.Status)
	}

	ok, err := s.payments.Advance(paymentID, p.Status, models.PaymentCompleted, providerRef)
	if err != nil {
		return models.Payment{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	if !ok {
		return models.Payment{}, apperr.Conflictf("payment %s changed status concurrently", p.Reference)
	}

	logger.Info("payment confirmed", "payment", p.Reference, "provider_ref", providerRef)
	if _, cerr := s.flow.CompleteIfPaid(p.OrderID); cerr != nil {
		logger.Error("order completion after payment failed", "order_id", p.OrderID, "error", cerr)
	}
	return s.payments.FindByID(paymentID)
}

// Fail marks an open payment failed. A failed payment frees the order for
// a fresh initiation attempt.
func (s *PaymentService) Fail(paymentID uint, providerRef string) (models.Payment, error) {
	p, err := s.payments.FindByID(paymentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Payment{}, fmt.Errorf("%w: payment %d", apperr.ErrNotFound, paymentID)
	}
	if err != nil {
		return models.Payment{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	if !p.Status.Open() {
		return models.Payment{}, apperr.Conflictf("payment %s is already %s", p.Reference, p.Status)
	}

	ok, err := s.payments.Advance(paymentID, p.Status, models.PaymentFailed, providerRef)
	if err != nil {
		return models.Payment{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	if !ok {
		return models.Payment{}, apperr.Conflictf("payment %s changed status concurrently", p.Reference)
	}

	logger.Warn("payment failed", "payment", p.Reference, "provider_ref", providerRef)
	return s.payments.FindByID(paymentID)
}

// ForOrder lists an order's payment attempts for its consumer or an admin.
func (s *PaymentService) ForOrder(callerID, orderID uint, isAdmin bool) ([]models.Payment, error) {
	order, err := s.orders.FindByID(orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order %d", apperr.ErrNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	if !isAdmin && order.ConsumerID != callerID {
		return nil, fmt.Errorf("%w: order %d", apperr.ErrNotFound, orderID)
	}
	return s.payments.ForOrder(orderID)
}
