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

// DisputeInput is one complaint submission.
type DisputeInput struct {
	OrderID     uint   `json:"order_id" validate:"required"`
	ReportedID  *uint  `json:"reported_id"`
	Category    string `json:"category" validate:"required,max=50"`
	Description string `json:"description" validate:"required"`
}

// DisputeService lets order participants raise complaints and admins work
// them. Opening a dispute freezes the order in the same transaction.
type DisputeService struct {
	disputes *repositories.DisputeRepository
	orders   *repositories.OrderRepository
	markets  *repositories.MarketRepository
	flow     *OrderService
}

func NewDisputeService() *DisputeService {
	return &DisputeService{
		disputes: repositories.NewDisputeRepository(),
		orders:   repositories.NewOrderRepository(),
		markets:  repositories.NewMarketRepository(),
		flow:     NewOrderService(),
	}
}

// Open raises a dispute. Only participants of the order may dispute it,
// and only while the order is live: terminal and already-disputed orders
// are rejected.
func (s *DisputeService) Open(reporterID uint, in DisputeInput) (models.Dispute, error) {
	order, err := s.orders.FindByID(in.OrderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Dispute{}, fmt.Errorf("%w: order %d", apperr.ErrNotFound, in.OrderID)
	}
	if err != nil {
		return models.Dispute{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}

	if !s.flow.hasStanding(reporterID, order) {
		return models.Dispute{}, fmt.Errorf("%w: not a participant of order %s", apperr.ErrForbidden, order.Number)
	}
	if order.Status == models.OrderDisputed {
		return models.Dispute{}, apperr.Conflictf("order %s is already disputed", order.Number)
	}
	if order.Status.Terminal() {
		return models.Dispute{}, apperr.BadRequestf("order %s is %s, cannot be disputed", order.Number, order.Status)
	}
	if strings.TrimSpace(in.Description) == "" {
		return models.Dispute{}, apperr.BadRequestf("description is required")
	}

	dispute := models.Dispute{
		OrderID:     order.ID,
		ReporterID:  reporterID,
		ReportedID:  in.ReportedID,
		Category:    strings.ToLower(strings.TrimSpace(in.Category)),
		Description: in.Description,
		Status:      models.DisputeOpen,
	}
	if err := s.disputes.CreateWithOrderFlag(&dispute, s.orders); err != nil {
		if errors.Is(err, repositories.ErrOrderTerminal) {
			return models.Dispute{}, fmt.Errorf("%w: order %s is closed", apperr.ErrConflict, order.Number)
		}
		return models.Dispute{}, fmt.Errorf("%w: open dispute: %v", apperr.ErrUpstream, err)
	}

	logger.Warn("dispute opened",
		"order", order.Number, "dispute", dispute.ID, "reporter", reporterID, "category", dispute.Category)
	return dispute, nil
}

// Advance moves a dispute through its workflow. Admin only; the allowed
// moves are open→investigating and investigating→resolved.
func (s *DisputeService) Advance(disputeID uint, to models.DisputeStatus, notes string) (models.Dispute, error) {
	d, err := s.disputes.FindByID(disputeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Dispute{}, fmt.Errorf("%w: dispute %d", apperr.ErrNotFound, disputeID)
	}
	if err != nil {
		return models.Dispute{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}

	valid := (d.Status == models.DisputeOpen && to == models.DisputeInvestigating) ||
		(d.Status == models.DisputeInvestigating && to == models.DisputeResolved)
	if !valid {
		return models.Dispute{}, fmt.Errorf("%w: dispute cannot move from %s to %s", apperr.ErrInvalidTransition, d.Status, to)
	}
	if to == models.DisputeResolved && strings.TrimSpace(notes) == "" {
		return models.Dispute{}, apperr.BadRequestf("resolution notes are required")
	}

	if err := s.disputes.UpdateStatus(disputeID, to, notes); err != nil {
		return models.Dispute{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}

	logger.Info("dispute advanced", "dispute", disputeID, "from", d.Status, "to", to)
	return s.disputes.FindByID(disputeID)
}

// ForOrder lists an order's disputes for a participant or admin.
func (s *DisputeService) ForOrder(callerID, orderID uint, isAdmin bool) ([]models.Dispute, error) {
	order, err := s.orders.FindByID(orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order %d", apperr.ErrNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	if !isAdmin && !s.flow.hasStanding(callerID, order) {
		return nil, fmt.Errorf("%w: order %d", apperr.ErrNotFound, orderID)
	}
	return s.disputes.ForOrder(orderID)
}
