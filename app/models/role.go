package models

import (
	"time"

	"gorm.io/gorm"
)

// Platform roles. A user may hold several at once.
const (
	RoleConsumer = "consumer"
	RoleVendor   = "vendor"
	RoleShopper  = "shopper"
	RoleAdmin    = "admin"
)

// ValidRole reports whether s is a known role string.
func ValidRole(s string) bool {
	switch s {
	case RoleConsumer, RoleVendor, RoleShopper, RoleAdmin:
		return true
	}
	return false
}

// RoleAssignment is one (user, role) pair. The composite unique index makes
// grants naturally idempotent. No soft delete: a revoke removes the row
// outright so a later re-grant cannot trip the unique index, and the audit
// log keeps the history.
type RoleAssignment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_role" json:"user_id"`
	Role      string    `gorm:"size:20;not null;uniqueIndex:idx_user_role" json:"role"`
	GrantedBy uint      `gorm:"not null" json:"granted_by"`
}

// RoleAuditEntry is an append-only record of a grant or revoke. Entries are
// never updated or deleted.
type RoleAuditEntry struct {
	gorm.Model
	Action       string `gorm:"size:10;not null" json:"action"` // grant | revoke
	TargetUserID uint   `gorm:"not null;index" json:"target_user_id"`
	Role         string `gorm:"size:20;not null" json:"role"`
	ActorID      uint   `gorm:"not null;index" json:"actor_id"`
	Reason       string `gorm:"type:text" json:"reason"`
	RequestIP    string `gorm:"size:64" json:"request_ip"`
	TraceID      string `gorm:"size:64;not null" json:"trace_id"`
	MFAVerified  bool   `gorm:"not null" json:"mfa_verified"`
}
