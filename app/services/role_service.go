package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/app/repositories"
	"github.com/kgyan/makola/pkg/apperr"
	"github.com/kgyan/makola/pkg/collection"
	"github.com/kgyan/makola/pkg/logger"
	"github.com/kgyan/makola/pkg/metrics"
)

// RoleAuditLimit caps how many audit entries a single listing returns.
const RoleAuditLimit = 50

// RoleChange is one admin role mutation request.
type RoleChange struct {
	Action       string `json:"action" validate:"required,oneof=grant revoke"`
	TargetUserID uint   `json:"targetUserId" validate:"required"`
	Role         string `json:"role" validate:"required"`
	Reason       string `json:"reason"`
	MFAVerified  bool   `json:"mfaVerified"`
	RequestIP    string `json:"-"`
}

// RoleChangeResult reports what a grant or revoke actually did.
type RoleChangeResult struct {
	Changed bool     `json:"changed"`
	Roles   []string `json:"roles"`
	TraceID string   `json:"traceId"`
}

// RoleService enforces who may change role assignments and writes the
// audit trail. Authorization is always re-checked against the store, never
// trusted from the caller's token.
type RoleService struct {
	roles *repositories.RoleRepository
	users *repositories.UserRepository
}

func NewRoleService() *RoleService {
	return &RoleService{
		roles: repositories.NewRoleRepository(),
		users: repositories.NewUserRepository(),
	}
}

// requireAdmin re-reads the actor's assignments at call time. A token
// minted before a revoke must not keep its admin powers.
func (s *RoleService) requireAdmin(actorID uint) error {
	ok, err := s.roles.HasRole(actorID, models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	if !ok {
		return fmt.Errorf("%w: admin role required", apperr.ErrForbidden)
	}
	return nil
}

// IsAdmin reports whether the user holds the admin role right now,
// straight from the store.
func (s *RoleService) IsAdmin(userID uint) bool {
	ok, err := s.roles.HasRole(userID, models.RoleAdmin)
	return err == nil && ok
}

// Change applies one grant or revoke. Granting admin demands a non-empty
// reason and a fresh MFA verification; a request failing either check is
// rejected before anything is written, audit included.
func (s *RoleService) Change(actorID uint, req RoleChange) (RoleChangeResult, error) {
	if err := s.requireAdmin(actorID); err != nil {
		return RoleChangeResult{}, err
	}

	role := strings.ToLower(strings.TrimSpace(req.Role))
	if !models.ValidRole(role) {
		return RoleChangeResult{}, apperr.BadRequestf("unknown role %q", req.Role)
	}

	if _, err := s.users.FindByID(req.TargetUserID); err != nil {
		return RoleChangeResult{}, fmt.Errorf("%w: user %d", apperr.ErrNotFound, req.TargetUserID)
	}

	if req.Action == "grant" && role == models.RoleAdmin {
		if !req.MFAVerified {
			return RoleChangeResult{}, fmt.Errorf("%w: granting admin requires mfa", apperr.ErrMfaRequired)
		}
		if strings.TrimSpace(req.Reason) == "" {
			return RoleChangeResult{}, fmt.Errorf("%w: granting admin requires a reason", apperr.ErrReasonRequired)
		}
	}

	if req.Action != "grant" && req.Action != "revoke" {
		return RoleChangeResult{}, apperr.BadRequestf("unknown action %q", req.Action)
	}

	traceID := uuid.NewString()
	entry := models.RoleAuditEntry{
		Action:       req.Action,
		TargetUserID: req.TargetUserID,
		Role:         role,
		ActorID:      actorID,
		Reason:       strings.TrimSpace(req.Reason),
		RequestIP:    req.RequestIP,
		TraceID:      traceID,
		MFAVerified:  req.MFAVerified,
	}

	// The assignment change and its audit row commit together: a change
	// without a trail must never be reported as success.
	changed, err := s.roles.Apply(req.Action, req.TargetUserID, role, actorID, &entry)
	if err != nil {
		logger.Error("role change failed", "trace", traceID, "error", err)
		return RoleChangeResult{}, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}

	metrics.RoleChanges.WithLabelValues(req.Action, role).Inc()
	logger.Info("role change",
		"action", req.Action, "target", req.TargetUserID, "role", role,
		"actor", actorID, "changed", changed, "trace", traceID)

	roles, rerr := s.RolesFor(actorID, req.TargetUserID)
	if rerr != nil {
		return RoleChangeResult{}, rerr
	}
	return RoleChangeResult{Changed: changed, Roles: roles, TraceID: traceID}, nil
}

// RolesFor lists a user's current roles. Admins may inspect anyone; other
// callers only themselves.
func (s *RoleService) RolesFor(actorID, userID uint) ([]string, error) {
	if actorID != userID {
		if err := s.requireAdmin(actorID); err != nil {
			return nil, err
		}
	}
	assignments, err := s.roles.RolesFor(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	return collection.Map(assignments, func(a models.RoleAssignment) string {
		return a.Role
	}), nil
}

// AssignmentsFor lists a user's role assignments with their grant
// timestamps. Same visibility rule as RolesFor.
func (s *RoleService) AssignmentsFor(actorID, userID uint) ([]models.RoleAssignment, error) {
	if actorID != userID {
		if err := s.requireAdmin(actorID); err != nil {
			return nil, err
		}
	}
	assignments, err := s.roles.RolesFor(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	return assignments, nil
}

// Audit returns the newest audit entries for a target user, capped at
// RoleAuditLimit. Admin only.
func (s *RoleService) Audit(actorID, userID uint) ([]models.RoleAuditEntry, error) {
	if err := s.requireAdmin(actorID); err != nil {
		return nil, err
	}
	entries, err := s.roles.AuditFor(userID, RoleAuditLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	return entries, nil
}
