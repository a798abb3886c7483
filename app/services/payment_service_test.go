package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goodPaymentRequest(order models.Order) PaymentRequest {
	return PaymentRequest{
		OrderID:     order.ID,
		Amount:      order.Total,
		MomoPhone:   "0241234567",
		MomoNetwork: "mtn",
	}
}

func TestInitiate_HappyPath(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)

	p, err := NewPaymentService().Initiate(f.consumer.ID, goodPaymentRequest(order))
	require.NoError(t, err)

	assert.Equal(t, models.PaymentPending, p.Status)
	assert.Equal(t, "momo", p.Method)
	assert.Equal(t, "mtn", p.MomoNetwork)
	assert.InDelta(t, 23.10, p.Amount, 0.001)
	assert.Regexp(t, `^PAY-[0-9A-F]{12}$`, p.Reference)
}

func TestInitiate_GuardRejections(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	svc := NewPaymentService()

	cases := []struct {
		name    string
		caller  uint
		mutate  func(*PaymentRequest)
		wantErr error
	}{
		{"unknown order", f.consumer.ID, func(r *PaymentRequest) { r.OrderID = 9999 }, apperr.ErrNotFound},
		{"foreign order hidden", f.vendorUsr.ID, func(r *PaymentRequest) {}, apperr.ErrNotFound},
		{"short phone", f.consumer.ID, func(r *PaymentRequest) { r.MomoPhone = "024123" }, apperr.ErrBadRequest},
		{"bad prefix", f.consumer.ID, func(r *PaymentRequest) { r.MomoPhone = "0691234567" }, apperr.ErrBadRequest},
		{"unknown network", f.consumer.ID, func(r *PaymentRequest) { r.MomoNetwork = "glo" }, apperr.ErrBadRequest},
		{"amount too low", f.consumer.ID, func(r *PaymentRequest) { r.Amount = 20.00 }, apperr.ErrBadRequest},
		{"amount too high", f.consumer.ID, func(r *PaymentRequest) { r.Amount = 23.13 }, apperr.ErrBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := goodPaymentRequest(order)
			tc.mutate(&req)
			_, err := svc.Initiate(tc.caller, req)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	// Tolerance window itself is accepted.
	req := goodPaymentRequest(order)
	req.Amount = order.Total + 0.005
	_, err := svc.Initiate(f.consumer.ID, req)
	assert.NoError(t, err)
}

func TestInitiate_RejectsTerminalOrder(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)

	_, err := NewOrderService().VendorTransition(f.vendorUsr.ID, order.ID, EventCancel)
	require.NoError(t, err)

	_, err = NewPaymentService().Initiate(f.consumer.ID, goodPaymentRequest(order))
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
}

func TestInitiate_OneOpenPaymentPerOrder(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	svc := NewPaymentService()

	first, err := svc.Initiate(f.consumer.ID, goodPaymentRequest(order))
	require.NoError(t, err)

	_, err = svc.Initiate(f.consumer.ID, goodPaymentRequest(order))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	var pending *PendingPaymentError
	require.True(t, errors.As(err, &pending))
	assert.Equal(t, first.ID, pending.PaymentID)
}

func TestInitiate_ConcurrentSingleOpenPayment(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	svc := NewPaymentService()

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Initiate(f.consumer.ID, goodPaymentRequest(order))
		}(i)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		var pending *PendingPaymentError
		if errors.As(err, &pending) {
			losses++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)

	open, err := NewPaymentService().payments.OpenForOrder(order.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
}

func TestFail_FreesOrderForRetry(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	svc := NewPaymentService()

	first, err := svc.Initiate(f.consumer.ID, goodPaymentRequest(order))
	require.NoError(t, err)

	failed, err := svc.Fail(first.ID, "prov-ref-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, failed.Status)
	assert.Equal(t, "prov-ref-1", failed.ProviderRef)

	second, err := svc.Initiate(f.consumer.ID, goodPaymentRequest(order))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestConfirm_SettledPaymentConflicts(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	svc := NewPaymentService()

	p, err := svc.Initiate(f.consumer.ID, goodPaymentRequest(order))
	require.NoError(t, err)

	_, err = svc.Confirm(p.ID, "prov-ref-1")
	require.NoError(t, err)

	_, err = svc.Confirm(p.ID, "prov-ref-2")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = svc.Fail(p.ID, "prov-ref-3")
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestConfirm_CompletesApprovedOrder(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	driveToReady(t, f, order.ID)
	svc := NewPaymentService()

	p, err := svc.Initiate(f.consumer.ID, goodPaymentRequest(order))
	require.NoError(t, err)

	// Approval before confirmation: the order parks at approved.
	got := driveToApproved(t, f, order.ID)
	assert.Equal(t, models.OrderApproved, got.Status)

	confirmed, err := svc.Confirm(p.ID, "prov-ref-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, confirmed.Status)

	got, err = NewOrderService().Find(f.consumer.ID, order.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, got.Status)
}

func TestApprove_CompletesWhenAlreadyPaid(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	driveToReady(t, f, order.ID)
	svc := NewPaymentService()

	p, err := svc.Initiate(f.consumer.ID, goodPaymentRequest(order))
	require.NoError(t, err)
	_, err = svc.Confirm(p.ID, "prov-ref-1")
	require.NoError(t, err)

	// Confirmation before approval: approve closes the order directly.
	got := driveToApproved(t, f, order.ID)
	assert.Equal(t, models.OrderCompleted, got.Status)
}

func TestPaymentsForOrder_Visibility(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	svc := NewPaymentService()

	_, err := svc.Initiate(f.consumer.ID, goodPaymentRequest(order))
	require.NoError(t, err)

	list, err := svc.ForOrder(f.consumer.ID, order.ID, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "0241234567", list[0].MomoPhone)

	_, err = svc.ForOrder(f.shopper2.ID, order.ID, false)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	list, err = svc.ForOrder(f.admin.ID, order.ID, true)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
