package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/app/repositories"
	"github.com/kgyan/makola/pkg/apperr"
	"github.com/kgyan/makola/pkg/auth"
	"github.com/kgyan/makola/pkg/collection"
	"github.com/kgyan/makola/pkg/logger"
	"gorm.io/gorm"
)

// RegisterInput is one account signup. Role selects the starting profile:
// consumer, vendor, or shopper. Admin cannot be self-assigned.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Phone    string `json:"phone" validate:"max=20"`
	Role     string `json:"role" validate:"required"`
}

// LoginInput is one credential pair.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenPair is what a successful login or registration returns.
type TokenPair struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	Roles        []string `json:"roles"`
}

// AuthService registers users and issues tokens. Roles embedded in tokens
// are a routing hint only; anything sensitive re-checks the store.
type AuthService struct {
	users *repositories.UserRepository
	roles *repositories.RoleRepository
}

func NewAuthService() *AuthService {
	return &AuthService{
		users: repositories.NewUserRepository(),
		roles: repositories.NewRoleRepository(),
	}
}

// Register creates the account and grants its starting role.
func (s *AuthService) Register(in RegisterInput) (models.User, TokenPair, error) {
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if !models.ValidRole(role) || role == models.RoleAdmin {
		return models.User{}, TokenPair{}, apperr.BadRequestf("cannot register as %q", in.Role)
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := s.users.FindByEmail(email); err == nil {
		return models.User{}, TokenPair{}, apperr.Conflictf("email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, TokenPair{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, TokenPair{}, fmt.Errorf("%w: hash password: %v", apperr.ErrUpstream, err)
	}

	user := models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Password: hashed,
		Phone:    strings.TrimSpace(in.Phone),
	}
	if err := s.users.Create(&user); err != nil {
		return models.User{}, TokenPair{}, fmt.Errorf("%w: create user: %v", apperr.ErrUpstream, err)
	}
	if _, err := s.roles.Grant(user.ID, role, user.ID); err != nil {
		return models.User{}, TokenPair{}, fmt.Errorf("%w: grant role: %v", apperr.ErrUpstream, err)
	}

	pair, err := s.issue(user.ID, []string{role})
	if err != nil {
		return models.User{}, TokenPair{}, err
	}

	logger.Info("user registered", "user", user.ID, "role", role)
	return user, pair, nil
}

// Login verifies credentials and issues tokens carrying the user's current
// roles.
func (s *AuthService) Login(in LoginInput) (models.User, TokenPair, error) {
	user, err := s.users.FindByEmail(strings.ToLower(strings.TrimSpace(in.Email)))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, TokenPair{}, fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthenticated)
	}
	if err != nil {
		return models.User{}, TokenPair{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	if !auth.CheckPassword(user.Password, in.Password) {
		return models.User{}, TokenPair{}, fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthenticated)
	}

	assignments, err := s.roles.RolesFor(user.ID)
	if err != nil {
		return models.User{}, TokenPair{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	roles := collection.Map(assignments, func(a models.RoleAssignment) string { return a.Role })

	pair, err := s.issue(user.ID, roles)
	if err != nil {
		return models.User{}, TokenPair{}, err
	}

	logger.Info("user logged in", "user", user.ID)
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a fresh pair, re-reading the
// roles so revokes take effect at the next refresh.
func (s *AuthService) Refresh(refreshToken string) (TokenPair, error) {
	claims, err := auth.ValidateToken(refreshToken)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
	}

	assignments, err := s.roles.RolesFor(claims.UserID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	roles := collection.Map(assignments, func(a models.RoleAssignment) string { return a.Role })

	return s.issue(claims.UserID, roles)
}

func (s *AuthService) issue(userID uint, roles []string) (TokenPair, error) {
	access, err := auth.GenerateToken(userID, roles)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: sign token: %v", apperr.ErrUpstream, err)
	}
	refresh, err := auth.GenerateRefreshToken(userID, roles)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: sign token: %v", apperr.ErrUpstream, err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, Roles: roles}, nil
}
