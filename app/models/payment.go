package models

import "gorm.io/gorm"

// PaymentStatus is the payment lifecycle state. Advancing past pending
// requires an authoritative external confirmation — the intake path never
// sets completed itself.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
)

// Open reports whether the payment still counts against the
// one-open-payment-per-order limit.
func (s PaymentStatus) Open() bool {
	return s == PaymentPending || s == PaymentProcessing
}

// MomoNetworks are the accepted mobile-money carriers.
var MomoNetworks = map[string]bool{
	"mtn":        true,
	"vodafone":   true,
	"airteltigo": true,
}

// Payment is a mobile-money payment attempt against an order.
// MomoPhone is stored AES-GCM encrypted; repositories decrypt on read.
type Payment struct {
	gorm.Model
	OrderID     uint          `gorm:"not null;index" json:"order_id"`
	Amount      float64       `gorm:"not null" json:"amount"`
	Method      string        `gorm:"size:20;not null;default:momo" json:"method"`
	MomoPhone   string        `gorm:"size:255" json:"-"`
	MomoNetwork string        `gorm:"size:20" json:"momo_network"`
	Status      PaymentStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	Reference   string        `gorm:"uniqueIndex;size:64;not null" json:"reference"`
	ProviderRef string        `gorm:"size:128" json:"provider_ref"`
}
