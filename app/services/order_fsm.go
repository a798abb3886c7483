package services

import (
	"fmt"

	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/pkg/apperr"
)

// OrderEvent is a request to move an order along its lifecycle. Transitions
// are validated against an explicit table — the service never applies a
// caller-supplied target status blindly.
type OrderEvent string

const (
	EventAccept         OrderEvent = "accept"          // vendor takes the order
	EventCancel         OrderEvent = "cancel"          // vendor declines before work starts
	EventStartPreparing OrderEvent = "start_preparing" // vendor begins packing
	EventMarkReady      OrderEvent = "mark_ready"      // vendor finished packing
	EventPickUp         OrderEvent = "pick_up"         // assigned shopper collects
	EventBeginInspect   OrderEvent = "begin_inspect"   // proof photo uploaded
	EventApprove        OrderEvent = "approve"         // consumer accepts the goods
	EventComplete       OrderEvent = "complete"        // confirmed payment closes out
	EventDispute        OrderEvent = "dispute"         // any party with standing
)

// transitions is the full edge set of the order lifecycle. A (status, event)
// pair absent from this table is an invalid transition, full stop — there is
// no way to skip states.
var transitions = map[models.OrderStatus]map[OrderEvent]models.OrderStatus{
	models.OrderPending: {
		EventAccept:  models.OrderAccepted,
		EventCancel:  models.OrderCancelled,
		EventDispute: models.OrderDisputed,
	},
	models.OrderAccepted: {
		EventStartPreparing: models.OrderPreparing,
		EventCancel:         models.OrderCancelled,
		EventDispute:        models.OrderDisputed,
	},
	models.OrderPreparing: {
		EventMarkReady: models.OrderReady,
		EventDispute:   models.OrderDisputed,
	},
	models.OrderReady: {
		EventPickUp:  models.OrderPickedUp,
		EventDispute: models.OrderDisputed,
	},
	models.OrderPickedUp: {
		EventBeginInspect: models.OrderInspecting,
		EventDispute:      models.OrderDisputed,
	},
	models.OrderInspecting: {
		EventApprove: models.OrderApproved,
		EventDispute: models.OrderDisputed,
	},
	models.OrderApproved: {
		EventComplete: models.OrderCompleted,
		EventDispute:  models.OrderDisputed,
	},
}

// NextStatus resolves the target status for an event fired against the
// current status, or ErrInvalidTransition when the edge does not exist.
func NextStatus(current models.OrderStatus, event OrderEvent) (models.OrderStatus, error) {
	if next, ok := transitions[current][event]; ok {
		return next, nil
	}
	return "", fmt.Errorf("%w: %s from %s", apperr.ErrInvalidTransition, event, current)
}
