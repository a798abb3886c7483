package services

import (
	"testing"

	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/pkg/apperr"
	"github.com/kgyan/makola/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// driveToPickedUp gets shopper A holding the order mid-shop.
func driveToPickedUp(t *testing.T, f fixture, orderID uint) models.Order {
	t.Helper()
	driveToReady(t, f, orderID)

	job := orderJob(t, orderID)
	_, err := NewJobService().Accept(f.shopper1.ID, job.ID)
	require.NoError(t, err)

	order, err := NewOrderService().PickUp(f.shopper1.ID, orderID)
	require.NoError(t, err)
	return order
}

func substitutionInput(order models.Order) SubstitutionInput {
	return SubstitutionInput{
		OrderID:     order.ID,
		OrderItemID: order.Items[0].ID,
		Reason:      "tomatoes sold out",
		Suggestion:  "cherry tomatoes",
	}
}

func TestRequestSubstitution_AssignedShopperMidShopOnly(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	svc := NewSubstitutionService()

	// Order not picked up yet.
	_, err := svc.Request(f.shopper1.ID, substitutionInput(order))
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	order = driveToPickedUp(t, f, order.ID)

	// Shopper 2 is not assigned.
	_, err = svc.Request(f.shopper2.ID, substitutionInput(order))
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	req, err := svc.Request(f.shopper1.ID, substitutionInput(order))
	require.NoError(t, err)
	assert.Equal(t, models.SubstitutionPending, req.Status)
	assert.Equal(t, order.Items[0].ID, req.OrderItemID)

	// An item from another order is rejected.
	other := placeOrder(t, f)
	in := substitutionInput(order)
	in.OrderItemID = other.Items[0].ID
	_, err = svc.Request(f.shopper1.ID, in)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRespondSubstitution_ApprovalReprices(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	order = driveToPickedUp(t, f, order.ID)
	svc := NewSubstitutionService()

	req, err := svc.Request(f.shopper1.ID, substitutionInput(order))
	require.NoError(t, err)

	// Swap 3×5.00 tomatoes for 2×6.00 cherry tomatoes.
	got, err := svc.Respond(f.consumer.ID, req.ID, false, SubstitutionResponse{
		Approve:     true,
		Note:        "fine by me",
		ProductName: "Cherry Tomatoes",
		Quantity:    2,
		UnitPrice:   6.00,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubstitutionApproved, got.Status)

	updated, err := NewOrderService().Find(f.consumer.ID, order.ID, false)
	require.NoError(t, err)

	// New money: 12.00 + 6.00 = 18.00 subtotal, 1.80 fee, 19.80 total.
	assert.InDelta(t, 18.00, updated.Subtotal, 0.001)
	assert.InDelta(t, 1.80, updated.ShopperFee, 0.001)
	assert.InDelta(t, 19.80, updated.Total, 0.001)

	var item models.OrderItem
	require.NoError(t, database.DB.First(&item, req.OrderItemID).Error)
	assert.Equal(t, "Cherry Tomatoes", item.ProductName)
	assert.Equal(t, 2, item.Quantity)
	assert.InDelta(t, 12.00, item.LineTotal, 0.001)

	// The shopper's commission follows the reprice.
	job := orderJob(t, order.ID)
	assert.InDelta(t, 1.80, job.Commission, 0.001)
}

func TestRespondSubstitution_Rejection(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	order = driveToPickedUp(t, f, order.ID)
	svc := NewSubstitutionService()

	req, err := svc.Request(f.shopper1.ID, substitutionInput(order))
	require.NoError(t, err)

	got, err := svc.Respond(f.consumer.ID, req.ID, false, SubstitutionResponse{
		Approve: false, Note: "I'll skip it",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubstitutionRejected, got.Status)

	// Money untouched.
	updated, err := NewOrderService().Find(f.consumer.ID, order.ID, false)
	require.NoError(t, err)
	assert.InDelta(t, 21.00, updated.Subtotal, 0.001)
}

func TestRespondSubstitution_SecondAnswerConflicts(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	order = driveToPickedUp(t, f, order.ID)
	svc := NewSubstitutionService()

	req, err := svc.Request(f.shopper1.ID, substitutionInput(order))
	require.NoError(t, err)

	_, err = svc.Respond(f.consumer.ID, req.ID, false, SubstitutionResponse{Approve: false})
	require.NoError(t, err)

	_, err = svc.Respond(f.consumer.ID, req.ID, false, SubstitutionResponse{
		Approve: true, ProductName: "Okra", Quantity: 1, UnitPrice: 2,
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestRespondSubstitution_ConsumerOrAdminOnly(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	order = driveToPickedUp(t, f, order.ID)
	svc := NewSubstitutionService()

	req, err := svc.Request(f.shopper1.ID, substitutionInput(order))
	require.NoError(t, err)

	// The requesting shopper cannot answer their own request.
	_, err = svc.Respond(f.shopper1.ID, req.ID, false, SubstitutionResponse{Approve: false})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	// Approval without a replacement snapshot is rejected.
	_, err = svc.Respond(f.consumer.ID, req.ID, false, SubstitutionResponse{Approve: true})
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	_, err = svc.Respond(f.admin.ID, req.ID, true, SubstitutionResponse{Approve: false})
	assert.NoError(t, err)
}

func TestPendingForOrder(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	order = driveToPickedUp(t, f, order.ID)
	svc := NewSubstitutionService()

	req, err := svc.Request(f.shopper1.ID, substitutionInput(order))
	require.NoError(t, err)

	list, err := svc.PendingForOrder(f.consumer.ID, order.ID, false)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.PendingForOrder(f.vendorUsr.ID, order.ID, false)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Respond(f.consumer.ID, req.ID, false, SubstitutionResponse{Approve: false})
	require.NoError(t, err)

	list, err = svc.PendingForOrder(f.consumer.ID, order.ID, false)
	require.NoError(t, err)
	assert.Empty(t, list)
}
