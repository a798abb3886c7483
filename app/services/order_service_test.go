package services

import (
	"testing"

	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/pkg/apperr"
	"github.com/kgyan/makola/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckout_MoneyMath(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)

	order := placeOrder(t, f)

	assert.Equal(t, models.OrderPending, order.Status)
	assert.InDelta(t, 21.00, order.Subtotal, 0.001)
	assert.InDelta(t, 2.10, order.ShopperFee, 0.001)
	assert.InDelta(t, 23.10, order.Total, 0.001)
	require.Len(t, order.Items, 2)
	assert.InDelta(t, 15.00, order.Items[0].LineTotal, 0.001)
	assert.InDelta(t, 6.00, order.Items[1].LineTotal, 0.001)
	assert.Regexp(t, `^MKL-\d{8}-[0-9A-F]{6}$`, order.Number)

	// The shopper job opens with the checkout, carrying the fee as its
	// commission.
	var job models.ShopperJob
	require.NoError(t, database.DB.Where("order_id = ?", order.ID).First(&job).Error)
	assert.Equal(t, models.JobAvailable, job.Status)
	assert.Nil(t, job.ShopperID)
	assert.InDelta(t, 2.10, job.Commission, 0.001)
}

func TestCheckout_RejectsBadInput(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	svc := NewOrderService()

	_, err := svc.Checkout(f.consumer.ID, f.vendor.ID, nil, "")
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	_, err = svc.Checkout(f.consumer.ID, f.vendor.ID, []CheckoutItem{
		{ProductName: "Yam", Quantity: 0, UnitPrice: 4},
	}, "")
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	_, err = svc.Checkout(f.consumer.ID, f.vendor.ID, []CheckoutItem{
		{ProductName: "Yam", Quantity: 1, UnitPrice: -4},
	}, "")
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	_, err = svc.Checkout(f.consumer.ID, 9999, []CheckoutItem{
		{ProductName: "Yam", Quantity: 1, UnitPrice: 4},
	}, "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVendorTransition_HappyPath(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)

	got := driveToReady(t, f, order.ID)
	assert.Equal(t, models.OrderReady, got.Status)
}

func TestVendorTransition_WrongVendorRejected(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)

	// The consumer has no vendor profile at all.
	_, err := NewOrderService().VendorTransition(f.consumer.ID, order.ID, EventAccept)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestVendorTransition_NoStateSkipping(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	svc := NewOrderService()

	// pending → ready skips accepted and preparing.
	_, err := svc.VendorTransition(f.vendorUsr.ID, order.ID, EventMarkReady)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	// Still pending afterwards.
	got, err := svc.Find(f.consumer.ID, order.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, got.Status)
}

func TestVendorTransition_TerminalOrderFrozen(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	svc := NewOrderService()

	_, err := svc.VendorTransition(f.vendorUsr.ID, order.ID, EventCancel)
	require.NoError(t, err)

	_, err = svc.VendorTransition(f.vendorUsr.ID, order.ID, EventAccept)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestPickUp_OnlyClaimedShopper(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	driveToReady(t, f, order.ID)

	orders := NewOrderService()
	jobs := NewJobService()

	var job models.ShopperJob
	require.NoError(t, database.DB.Where("order_id = ?", order.ID).First(&job).Error)

	// Shopper B never claimed the job.
	_, err := orders.PickUp(f.shopper2.ID, order.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = jobs.Accept(f.shopper1.ID, job.ID)
	require.NoError(t, err)

	got, err := orders.PickUp(f.shopper1.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPickedUp, got.Status)
	require.NotNil(t, got.ShopperID)
	assert.Equal(t, f.shopperA.ID, *got.ShopperID)

	// B still cannot act on the order.
	_, err = orders.AttachPickupPhoto(f.shopper2.ID, order.ID, "pickups/x.jpg")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestApprove_WithoutPaymentStaysApproved(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	driveToReady(t, f, order.ID)

	got := driveToApproved(t, f, order.ID)
	assert.Equal(t, models.OrderApproved, got.Status)
	assert.Equal(t, "approved", got.InspectionStatus)
	assert.Equal(t, "pickups/test.jpg", got.PickupPhotoPath)
}

func TestApprove_OnlyConsumer(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	driveToReady(t, f, order.ID)

	jobs := NewJobService()
	orders := NewOrderService()
	var job models.ShopperJob
	require.NoError(t, database.DB.Where("order_id = ?", order.ID).First(&job).Error)
	_, err := jobs.Accept(f.shopper1.ID, job.ID)
	require.NoError(t, err)
	_, err = orders.PickUp(f.shopper1.ID, order.ID)
	require.NoError(t, err)
	_, err = orders.AttachPickupPhoto(f.shopper1.ID, order.ID, "pickups/x.jpg")
	require.NoError(t, err)

	_, err = orders.Approve(f.vendorUsr.ID, order.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestFind_HidesOrdersFromStrangers(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	svc := NewOrderService()

	// Shopper 2 has no relation to the order: reads as not-found rather
	// than leaking its existence.
	_, err := svc.Find(f.shopper2.ID, order.ID, false)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// Admin sees everything.
	got, err := svc.Find(f.admin.ID, order.ID, true)
	require.NoError(t, err)
	assert.Equal(t, order.Number, got.Number)
}
