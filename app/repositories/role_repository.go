package repositories

import (
	"errors"

	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/pkg/feed"
	"github.com/kgyan/makola/pkg/orm"
	"gorm.io/gorm"
)

// RoleRepository handles role assignments and the audit trail.
type RoleRepository struct{}

func NewRoleRepository() *RoleRepository {
	return &RoleRepository{}
}

// HasRole checks the backing store — not a token snapshot — for a live
// (user, role) assignment. This is the authorization re-check privileged
// operations depend on.
func (r *RoleRepository) HasRole(userID uint, role string) (bool, error) {
	n, err := orm.DB().
		Model(&models.RoleAssignment{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RolesFor returns all assignments a user holds, oldest grant first.
func (r *RoleRepository) RolesFor(userID uint) ([]models.RoleAssignment, error) {
	var roles []models.RoleAssignment
	err := orm.DB().
		Model(&models.RoleAssignment{}).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Get(&roles)
	return roles, err
}

// grantIn inserts a (user, role) assignment through q. Granting a role the
// user already holds is a no-op success. Returns whether a new row was
// written plus the feed events to publish once the write is durable.
func grantIn(q *orm.Query, userID uint, role string, grantedBy uint) (bool, []feed.Event, error) {
	var existing models.RoleAssignment
	err := q.
		Model(&models.RoleAssignment{}).
		Where("user_id = ? AND role = ?", userID, role).
		First(&existing)
	if err == nil {
		return false, nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, err
	}

	assignment := models.RoleAssignment{UserID: userID, Role: role, GrantedBy: grantedBy}
	if err := q.Create(&assignment); err != nil {
		return false, nil, err
	}
	return true, []feed.Event{{Table: "user_roles", Kind: feed.Inserted, After: assignment}}, nil
}

// revokeIn removes a (user, role) assignment through q if present; reports
// whether a row was actually removed.
func revokeIn(q *orm.Query, userID uint, role string) (bool, []feed.Event, error) {
	var existing models.RoleAssignment
	err := q.
		Model(&models.RoleAssignment{}).
		Where("user_id = ? AND role = ?", userID, role).
		First(&existing)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}

	n, err := q.
		Where("user_id = ? AND role = ?", userID, role).
		Delete(&models.RoleAssignment{})
	if err != nil {
		return false, nil, err
	}
	if n == 0 {
		return false, nil, nil
	}
	return true, []feed.Event{{Table: "user_roles", Kind: feed.Deleted, Before: existing}}, nil
}

// Grant inserts a (user, role) assignment. Granting a role the user already
// holds is a no-op success; returns whether a new row was written.
func (r *RoleRepository) Grant(userID uint, role string, grantedBy uint) (bool, error) {
	changed, events, err := grantIn(orm.DB(), userID, role, grantedBy)
	if err != nil {
		return false, err
	}
	for _, e := range events {
		feed.Publish(e)
	}
	return changed, nil
}

// Revoke removes a (user, role) assignment if present; returns whether a
// row was actually removed.
func (r *RoleRepository) Revoke(userID uint, role string) (bool, error) {
	changed, events, err := revokeIn(orm.DB(), userID, role)
	if err != nil {
		return false, err
	}
	for _, e := range events {
		feed.Publish(e)
	}
	return changed, nil
}

// Apply runs one grant or revoke together with its audit entry in a single
// transaction: the assignment change never lands without its audit row, and
// a failed audit write rolls the change back. Feed events are published
// only after the transaction commits.
func (r *RoleRepository) Apply(action string, userID uint, role string, grantedBy uint, entry *models.RoleAuditEntry) (bool, error) {
	var changed bool
	var events []feed.Event
	err := orm.Transaction(func(tx *orm.Query) error {
		var err error
		switch action {
		case "grant":
			changed, events, err = grantIn(tx, userID, role, grantedBy)
		case "revoke":
			changed, events, err = revokeIn(tx, userID, role)
		}
		if err != nil {
			return err
		}
		if err := tx.Create(entry); err != nil {
			return err
		}
		events = append(events, feed.Event{Table: "role_audit_log", Kind: feed.Inserted, After: *entry})
		return nil
	})
	if err != nil {
		return false, err
	}
	for _, e := range events {
		feed.Publish(e)
	}
	return changed, nil
}

// AuditFor returns up to limit most recent audit entries for a target user,
// newest first.
func (r *RoleRepository) AuditFor(userID uint, limit int) ([]models.RoleAuditEntry, error) {
	var entries []models.RoleAuditEntry
	err := orm.DB().
		Model(&models.RoleAuditEntry{}).
		Where("target_user_id = ?", userID).
		Order("created_at desc, id desc").
		Limit(limit).
		Get(&entries)
	return entries, err
}
