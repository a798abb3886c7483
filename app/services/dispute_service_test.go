package services

import (
	"testing"

	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/app/repositories"
	"github.com/kgyan/makola/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func disputeInput(orderID uint) DisputeInput {
	return DisputeInput{
		OrderID:     orderID,
		Category:    "Quality",
		Description: "tomatoes arrived crushed",
	}
}

func TestOpenDispute_FreezesOrder(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	svc := NewDisputeService()

	d, err := svc.Open(f.consumer.ID, disputeInput(order.ID))
	require.NoError(t, err)
	assert.Equal(t, models.DisputeOpen, d.Status)
	assert.Equal(t, "quality", d.Category)
	assert.Equal(t, f.consumer.ID, d.ReporterID)

	// The order froze in the same transaction.
	got, err := NewOrderService().Find(f.consumer.ID, order.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.OrderDisputed, got.Status)

	// Frozen orders take no further lifecycle events.
	_, err = NewOrderService().VendorTransition(f.vendorUsr.ID, order.ID, EventAccept)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestOpenDispute_ParticipantsOnly(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	svc := NewDisputeService()

	// Shopper 2 never touched the order.
	_, err := svc.Open(f.shopper2.ID, disputeInput(order.ID))
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	// The vendor is a participant.
	_, err = svc.Open(f.vendorUsr.ID, disputeInput(order.ID))
	assert.NoError(t, err)
}

func TestOpenDispute_DoubleDisputeConflicts(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	svc := NewDisputeService()

	_, err := svc.Open(f.consumer.ID, disputeInput(order.ID))
	require.NoError(t, err)

	_, err = svc.Open(f.consumer.ID, disputeInput(order.ID))
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestOpenDispute_TerminalOrderRejected(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)

	_, err := NewOrderService().VendorTransition(f.vendorUsr.ID, order.ID, EventCancel)
	require.NoError(t, err)

	_, err = NewDisputeService().Open(f.consumer.ID, disputeInput(order.ID))
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
}

func TestOpenDispute_OrderClosingUnderneathConflicts(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)

	// The order closes after the service's terminal check would have
	// passed; the dispute write itself must refuse and roll back.
	_, err := NewOrderService().VendorTransition(f.vendorUsr.ID, order.ID, EventCancel)
	require.NoError(t, err)

	repo := repositories.NewDisputeRepository()
	dispute := models.Dispute{
		OrderID:    order.ID,
		ReporterID: f.consumer.ID,
		Category:   "quality",
		Status:     models.DisputeOpen,
	}
	err = repo.CreateWithOrderFlag(&dispute, repositories.NewOrderRepository())
	assert.ErrorIs(t, err, repositories.ErrOrderTerminal)

	disputes, err := repo.ForOrder(order.ID)
	require.NoError(t, err)
	assert.Empty(t, disputes)

	got, err := NewOrderService().Find(f.admin.ID, order.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, got.Status)
}

func TestAdvanceDispute_Workflow(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	svc := NewDisputeService()

	d, err := svc.Open(f.consumer.ID, disputeInput(order.ID))
	require.NoError(t, err)

	// open → resolved skips investigation.
	_, err = svc.Advance(d.ID, models.DisputeResolved, "refunded")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	got, err := svc.Advance(d.ID, models.DisputeInvestigating, "")
	require.NoError(t, err)
	assert.Equal(t, models.DisputeInvestigating, got.Status)

	// Resolving without notes is rejected.
	_, err = svc.Advance(d.ID, models.DisputeResolved, "  ")
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	got, err = svc.Advance(d.ID, models.DisputeResolved, "partial refund issued")
	require.NoError(t, err)
	assert.Equal(t, models.DisputeResolved, got.Status)
	assert.Equal(t, "partial refund issued", got.ResolutionNotes)

	// Resolved is final.
	_, err = svc.Advance(d.ID, models.DisputeInvestigating, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestDisputesForOrder_Visibility(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	svc := NewDisputeService()

	_, err := svc.Open(f.consumer.ID, disputeInput(order.ID))
	require.NoError(t, err)

	list, err := svc.ForOrder(f.vendorUsr.ID, order.ID, false)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.ForOrder(f.shopper2.ID, order.ID, false)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
