package services

import (
	"testing"

	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/pkg/apperr"
	"github.com/kgyan/makola/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_GrantsStartingRole(t *testing.T) {
	setupDB(t)
	svc := NewAuthService()

	user, pair, err := svc.Register(RegisterInput{
		Name: "Akosua", Email: "Akosua@Example.com", Password: "correct horse", Role: "Consumer",
	})
	require.NoError(t, err)
	assert.Equal(t, "akosua@example.com", user.Email)
	assert.NotEqual(t, "correct horse", user.Password)
	assert.Equal(t, []string{models.RoleConsumer}, pair.Roles)

	claims, err := auth.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	// Same email again, any casing.
	_, _, err = svc.Register(RegisterInput{
		Name: "Impostor", Email: "AKOSUA@example.com", Password: "password1", Role: "consumer",
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestRegister_AdminCannotBeSelfAssigned(t *testing.T) {
	setupDB(t)

	_, _, err := NewAuthService().Register(RegisterInput{
		Name: "Sneaky", Email: "sneaky@test", Password: "password1", Role: "admin",
	})
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	_, _, err = NewAuthService().Register(RegisterInput{
		Name: "Sneaky", Email: "sneaky@test", Password: "password1", Role: "root",
	})
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
}

func TestLogin_VerifiesCredentials(t *testing.T) {
	setupDB(t)
	svc := NewAuthService()

	_, _, err := svc.Register(RegisterInput{
		Name: "Ama", Email: "ama@example.com", Password: "correct horse", Role: "consumer",
	})
	require.NoError(t, err)

	_, pair, err := svc.Login(LoginInput{Email: "ama@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	_, _, err = svc.Login(LoginInput{Email: "ama@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, _, err = svc.Login(LoginInput{Email: "nobody@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestRefresh_PicksUpRoleChanges(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	svc := NewAuthService()

	user, pair, err := svc.Register(RegisterInput{
		Name: "Ama", Email: "ama@example.com", Password: "correct horse", Role: "consumer",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleConsumer}, pair.Roles)

	_, err = NewRoleService().Change(f.admin.ID, RoleChange{
		Action: "grant", TargetUserID: user.ID, Role: models.RoleShopper,
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{models.RoleConsumer, models.RoleShopper}, refreshed.Roles)

	_, err = svc.Refresh("not-a-token")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}
