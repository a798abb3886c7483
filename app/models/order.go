package models

import "gorm.io/gorm"

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderAccepted   OrderStatus = "accepted"
	OrderPreparing  OrderStatus = "preparing"
	OrderReady      OrderStatus = "ready"
	OrderPickedUp   OrderStatus = "picked_up"
	OrderInspecting OrderStatus = "inspecting"
	OrderApproved   OrderStatus = "approved"
	OrderCompleted  OrderStatus = "completed"
	OrderDisputed   OrderStatus = "disputed"
	OrderCancelled  OrderStatus = "cancelled"
)

// Terminal reports whether no further status mutation is permitted.
// Disputed counts: a frozen order only moves again through dispute
// resolution, never through the normal lifecycle.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled || s == OrderDisputed
}

// Order is one consumer purchase against one vendor. Money fields obey
// total = subtotal + shopper_fee; the fee is a fixed 10% shopper commission.
type Order struct {
	gorm.Model
	Number           string      `gorm:"uniqueIndex;size:40;not null" json:"number"`
	ConsumerID       uint        `gorm:"not null;index" json:"consumer_id"`
	VendorID         uint        `gorm:"not null;index" json:"vendor_id"`
	MarketID         uint        `gorm:"not null;index" json:"market_id"`
	ShopperID        *uint       `gorm:"index" json:"shopper_id"`
	Status           OrderStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	Subtotal         float64     `gorm:"not null" json:"subtotal"`
	ShopperFee       float64     `gorm:"not null" json:"shopper_fee"`
	Total            float64     `gorm:"not null" json:"total"`
	Instructions     string      `gorm:"type:text" json:"instructions"`
	InspectionStatus string      `gorm:"size:20" json:"inspection_status"`
	PickupPhotoPath  string      `gorm:"size:512" json:"pickup_photo_path"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// OrderItem is a product-snapshot line. Immutable after creation except
// through an approved substitution request.
type OrderItem struct {
	gorm.Model
	OrderID     uint    `gorm:"not null;index" json:"order_id"`
	ProductRef  string  `gorm:"size:64" json:"product_ref"`
	ProductName string  `gorm:"size:255;not null" json:"product_name"`
	Quantity    int     `gorm:"not null" json:"quantity"`
	UnitPrice   float64 `gorm:"not null" json:"unit_price"`
	LineTotal   float64 `gorm:"not null" json:"line_total"`
}
