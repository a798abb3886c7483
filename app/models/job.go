package models

import "gorm.io/gorm"

// JobStatus is the shopper-job lifecycle state.
type JobStatus string

const (
	JobAvailable JobStatus = "available"
	JobAccepted  JobStatus = "accepted"
	JobCompleted JobStatus = "completed"
)

// ShopperJob is the courier-side unit of work, created 1:1 with an order
// at checkout. A nil ShopperID means the job is still in the open pool.
// Acceptance is exclusive: the first conditional update wins, later
// attempts see zero rows affected.
type ShopperJob struct {
	gorm.Model
	OrderID    uint      `gorm:"not null;uniqueIndex" json:"order_id"`
	ShopperID  *uint     `gorm:"index" json:"shopper_id"`
	Status     JobStatus `gorm:"size:20;not null;default:available;index" json:"status"`
	Commission float64   `gorm:"not null" json:"commission"`
}
