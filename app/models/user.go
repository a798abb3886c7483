package models

import "gorm.io/gorm"

// User is the primary account model. Roles live in user_roles, not here —
// a user may be consumer, vendor, shopper, and admin at the same time.
type User struct {
	gorm.Model
	Name     string `gorm:"size:255;not null" json:"name"`
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password string `gorm:"size:255;not null" json:"-"` // hashed, never serialised
	Phone    string `gorm:"size:20" json:"phone"`
}
