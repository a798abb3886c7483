package services

import (
	"fmt"
	"testing"

	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/pkg/apperr"
	"github.com/kgyan/makola/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChange_NonAdminActorForbidden(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)

	_, err := NewRoleService().Change(f.consumer.ID, RoleChange{
		Action: "grant", TargetUserID: f.consumer.ID, Role: models.RoleVendor,
	})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestChange_GrantAndRevokeIdempotent(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	svc := NewRoleService()

	res, err := svc.Change(f.admin.ID, RoleChange{
		Action: "grant", TargetUserID: f.consumer.ID, Role: models.RoleVendor,
	})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.ElementsMatch(t, []string{models.RoleConsumer, models.RoleVendor}, res.Roles)
	assert.NotEmpty(t, res.TraceID)

	// Granting again changes nothing but is still audited.
	res, err = svc.Change(f.admin.ID, RoleChange{
		Action: "grant", TargetUserID: f.consumer.ID, Role: models.RoleVendor,
	})
	require.NoError(t, err)
	assert.False(t, res.Changed)

	res, err = svc.Change(f.admin.ID, RoleChange{
		Action: "revoke", TargetUserID: f.consumer.ID, Role: models.RoleVendor,
	})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.ElementsMatch(t, []string{models.RoleConsumer}, res.Roles)

	res, err = svc.Change(f.admin.ID, RoleChange{
		Action: "revoke", TargetUserID: f.consumer.ID, Role: models.RoleVendor,
	})
	require.NoError(t, err)
	assert.False(t, res.Changed)

	audit, err := svc.Audit(f.admin.ID, f.consumer.ID)
	require.NoError(t, err)
	assert.Len(t, audit, 4)
}

func TestChange_AdminGrantGating(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	svc := NewRoleService()

	// No MFA: rejected before anything is written.
	_, err := svc.Change(f.admin.ID, RoleChange{
		Action: "grant", TargetUserID: f.consumer.ID, Role: models.RoleAdmin,
		Reason: "new ops hire",
	})
	assert.ErrorIs(t, err, apperr.ErrMfaRequired)

	// MFA but no reason.
	_, err = svc.Change(f.admin.ID, RoleChange{
		Action: "grant", TargetUserID: f.consumer.ID, Role: models.RoleAdmin,
		MFAVerified: true, Reason: "   ",
	})
	assert.ErrorIs(t, err, apperr.ErrReasonRequired)

	// Neither rejection left an audit row or an assignment behind.
	audit, err := svc.Audit(f.admin.ID, f.consumer.ID)
	require.NoError(t, err)
	assert.Empty(t, audit)
	assert.False(t, svc.IsAdmin(f.consumer.ID))

	res, err := svc.Change(f.admin.ID, RoleChange{
		Action: "grant", TargetUserID: f.consumer.ID, Role: models.RoleAdmin,
		MFAVerified: true, Reason: "new ops hire", RequestIP: "10.0.0.7",
	})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.True(t, svc.IsAdmin(f.consumer.ID))

	audit, err = svc.Audit(f.admin.ID, f.consumer.ID)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, "grant", audit[0].Action)
	assert.Equal(t, models.RoleAdmin, audit[0].Role)
	assert.Equal(t, f.admin.ID, audit[0].ActorID)
	assert.Equal(t, "new ops hire", audit[0].Reason)
	assert.Equal(t, "10.0.0.7", audit[0].RequestIP)
	assert.True(t, audit[0].MFAVerified)
	assert.Equal(t, res.TraceID, audit[0].TraceID)
}

func TestChange_MfaNotRequiredForOtherRoles(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)

	res, err := NewRoleService().Change(f.admin.ID, RoleChange{
		Action: "grant", TargetUserID: f.consumer.ID, Role: models.RoleShopper,
	})
	require.NoError(t, err)
	assert.True(t, res.Changed)
}

func TestChange_UnknownRoleAndTarget(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	svc := NewRoleService()

	_, err := svc.Change(f.admin.ID, RoleChange{
		Action: "grant", TargetUserID: f.consumer.ID, Role: "superuser",
	})
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	_, err = svc.Change(f.admin.ID, RoleChange{
		Action: "grant", TargetUserID: 9999, Role: models.RoleVendor,
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRevokedAdminLosesPowerImmediately(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	svc := NewRoleService()

	res, err := svc.Change(f.admin.ID, RoleChange{
		Action: "grant", TargetUserID: f.consumer.ID, Role: models.RoleAdmin,
		MFAVerified: true, Reason: "rotation",
	})
	require.NoError(t, err)
	require.True(t, res.Changed)

	// The new admin works until the revoke lands.
	_, err = svc.Change(f.consumer.ID, RoleChange{
		Action: "grant", TargetUserID: f.shopper1.ID, Role: models.RoleVendor,
	})
	require.NoError(t, err)

	_, err = svc.Change(f.admin.ID, RoleChange{
		Action: "revoke", TargetUserID: f.consumer.ID, Role: models.RoleAdmin,
		Reason: "rotation done",
	})
	require.NoError(t, err)

	// Whatever token the revoked admin holds, the store says no.
	_, err = svc.Change(f.consumer.ID, RoleChange{
		Action: "grant", TargetUserID: f.shopper2.ID, Role: models.RoleVendor,
	})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestAudit_NewestFirstAndCapped(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	svc := NewRoleService()

	// Write past the cap straight through the repository.
	for i := 0; i < RoleAuditLimit+10; i++ {
		require.NoError(t, database.DB.Create(&models.RoleAuditEntry{
			Action: "grant", TargetUserID: f.consumer.ID, Role: models.RoleVendor,
			ActorID: f.admin.ID, TraceID: fmt.Sprintf("trace-%03d", i),
		}).Error)
	}

	entries, err := svc.Audit(f.admin.ID, f.consumer.ID)
	require.NoError(t, err)
	require.Len(t, entries, RoleAuditLimit)
	assert.Equal(t, fmt.Sprintf("trace-%03d", RoleAuditLimit+9), entries[0].TraceID)
	assert.Equal(t, fmt.Sprintf("trace-%03d", 10), entries[len(entries)-1].TraceID)

	// Non-admins cannot read the trail.
	_, err = svc.Audit(f.consumer.ID, f.consumer.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestRolesFor_SelfOrAdminOnly(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	svc := NewRoleService()

	roles, err := svc.RolesFor(f.consumer.ID, f.consumer.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleConsumer}, roles)

	_, err = svc.RolesFor(f.consumer.ID, f.vendorUsr.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	roles, err = svc.RolesFor(f.admin.ID, f.vendorUsr.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleVendor}, roles)
}

func TestChange_AuditWriteFailureRollsBackChange(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	svc := NewRoleService()

	// With the audit table gone the append must fail, and the grant must
	// roll back with it rather than land untracked.
	require.NoError(t, database.DB.Migrator().DropTable(&models.RoleAuditEntry{}))

	_, err := svc.Change(f.admin.ID, RoleChange{
		Action: "grant", TargetUserID: f.consumer.ID, Role: models.RoleShopper,
	})
	assert.ErrorIs(t, err, apperr.ErrUpstream)

	roles, err := svc.RolesFor(f.admin.ID, f.consumer.ID)
	require.NoError(t, err)
	assert.NotContains(t, roles, models.RoleShopper)
}
