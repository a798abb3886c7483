package services

import (
	"testing"

	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatus_ValidEdges(t *testing.T) {
	cases := []struct {
		from models.OrderStatus
		ev   OrderEvent
		want models.OrderStatus
	}{
		{models.OrderPending, EventAccept, models.OrderAccepted},
		{models.OrderPending, EventCancel, models.OrderCancelled},
		{models.OrderAccepted, EventStartPreparing, models.OrderPreparing},
		{models.OrderAccepted, EventCancel, models.OrderCancelled},
		{models.OrderPreparing, EventMarkReady, models.OrderReady},
		{models.OrderReady, EventPickUp, models.OrderPickedUp},
		{models.OrderPickedUp, EventBeginInspect, models.OrderInspecting},
		{models.OrderInspecting, EventApprove, models.OrderApproved},
		{models.OrderApproved, EventComplete, models.OrderCompleted},
	}

	for _, c := range cases {
		got, err := NextStatus(c.from, c.ev)
		require.NoError(t, err, "%s + %s", c.from, c.ev)
		assert.Equal(t, c.want, got)
	}
}

func TestNextStatus_InvalidEdges(t *testing.T) {
	cases := []struct {
		from models.OrderStatus
		ev   OrderEvent
	}{
		{models.OrderPending, EventMarkReady},
		{models.OrderPending, EventApprove},
		{models.OrderPending, EventComplete},
		{models.OrderPreparing, EventCancel},
		{models.OrderReady, EventAccept},
		{models.OrderInspecting, EventPickUp},
		{models.OrderCompleted, EventDispute},
		{models.OrderCancelled, EventAccept},
	}

	for _, c := range cases {
		_, err := NextStatus(c.from, c.ev)
		require.Error(t, err, "%s + %s should be rejected", c.from, c.ev)
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	}
}

func TestNextStatus_DisputeFromAnyLiveState(t *testing.T) {
	live := []models.OrderStatus{
		models.OrderPending, models.OrderAccepted, models.OrderPreparing,
		models.OrderReady, models.OrderPickedUp, models.OrderInspecting,
		models.OrderApproved,
	}
	for _, from := range live {
		got, err := NextStatus(from, EventDispute)
		require.NoError(t, err, "dispute from %s", from)
		assert.Equal(t, models.OrderDisputed, got)
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, models.OrderCompleted.Terminal())
	assert.True(t, models.OrderCancelled.Terminal())
	assert.True(t, models.OrderDisputed.Terminal())
	assert.False(t, models.OrderPending.Terminal())
	assert.False(t, models.OrderApproved.Terminal())
}
