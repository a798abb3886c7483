package models

import "gorm.io/gorm"

// Market is a physical marketplace vendors sell from.
type Market struct {
	gorm.Model
	Name string `gorm:"size:255;not null;index" json:"name"`
	City string `gorm:"size:100" json:"city"`
}

// Vendor is a stall owner inside a market, tied to a user account.
type Vendor struct {
	gorm.Model
	UserID    uint   `gorm:"not null;uniqueIndex" json:"user_id"`
	MarketID  uint   `gorm:"not null;index" json:"market_id"`
	StallName string `gorm:"size:255;not null" json:"stall_name"`
}

// Shopper is a gig courier profile tied to a user account.
type Shopper struct {
	gorm.Model
	UserID uint `gorm:"not null;uniqueIndex" json:"user_id"`
	Active bool `gorm:"default:true" json:"active"`
}
