package models

import "gorm.io/gorm"

// SubstitutionStatus is the substitution-request workflow state.
type SubstitutionStatus string

const (
	SubstitutionPending  SubstitutionStatus = "pending"
	SubstitutionApproved SubstitutionStatus = "approved"
	SubstitutionRejected SubstitutionStatus = "rejected"
)

// SubstitutionRequest asks to replace one order item with an alternative.
// Only the order's consumer (or an admin) may respond; approval rewrites
// the item snapshot and recomputes the order money fields.
type SubstitutionRequest struct {
	gorm.Model
	OrderID      uint               `gorm:"not null;index" json:"order_id"`
	OrderItemID  uint               `gorm:"not null;index" json:"order_item_id"`
	RequesterID  uint               `gorm:"not null" json:"requester_id"`
	Reason       string             `gorm:"type:text;not null" json:"reason"`
	Suggestion   string             `gorm:"size:255" json:"suggestion"`
	PhotoPath    string             `gorm:"size:512" json:"photo_path"`
	Status       SubstitutionStatus `gorm:"size:20;not null;default:pending" json:"status"`
	ResponderID  *uint              `json:"responder_id"`
	ResponseNote string             `gorm:"type:text" json:"response_note"`
}
