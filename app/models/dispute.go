package models

import "gorm.io/gorm"

// DisputeStatus is the dispute workflow state.
type DisputeStatus string

const (
	DisputeOpen          DisputeStatus = "open"
	DisputeInvestigating DisputeStatus = "investigating"
	DisputeResolved      DisputeStatus = "resolved"
)

// Dispute is a complaint raised against an order. Creating one forces the
// parent order into disputed status in the same transaction.
type Dispute struct {
	gorm.Model
	OrderID         uint          `gorm:"not null;index" json:"order_id"`
	ReporterID      uint          `gorm:"not null;index" json:"reporter_id"`
	ReportedID      *uint         `json:"reported_id"`
	Category        string        `gorm:"size:50;not null" json:"category"`
	Description     string        `gorm:"type:text;not null" json:"description"`
	Status          DisputeStatus `gorm:"size:20;not null;default:open" json:"status"`
	ResolutionNotes string        `gorm:"type:text" json:"resolution_notes"`
}
