package auth

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/GoUserPanel/GoUserPanel/internal/db/controller/role"
	"github.com/GoUserPanel/GoUserPanel/internal/db/controller/user"
	"github.com/GoUserPanel/GoUserPanel/internal/db/models"
	"github.com/GoUserPanel/GoUserPanel/internal/rbac"
)

// Service provides authentication and authorization functionality.
type Service struct {
	db *gorm.DB
}

// NewService creates a new auth service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CombinedRoleFor resolves the combined role for a set of role names: the
// per-page union of permissions and the highest-authority role among them.
// Names that do not resolve are ignored; a set where nothing resolves yields
// (nil, nil), which every downstream check treats as "deny everything".
func (s *Service) CombinedRoleFor(roleNames []string) (*rbac.CombinedRole, error) {
	roles, err := role.GetByNames(s.db, roleNames)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve roles: %w", err)
	}

	combined, err := rbac.Combine(roleNames, roles)
	if errors.Is(err, rbac.ErrNoRolesResolved) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return combined, nil
}

// CombinedRoleForUser resolves the combined role of the user with the given
// ID from their currently assigned role names.
func (s *Service) CombinedRoleForUser(userID uint64) (*rbac.CombinedRole, error) {
	u, err := user.GetByID(s.db, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return s.CombinedRoleFor(u.Roles)
}

// HasPermission checks if a user has a specific (page, action) permission
// through any of their assigned roles.
func (s *Service) HasPermission(userID uint64, page, action string) (bool, error) {
	combined, err := s.CombinedRoleForUser(userID)
	if err != nil {
		return false, err
	}

	return rbac.IsAllowed(combined, page, action), nil
}

// CheckPermission verifies that the user holds the (page, action) permission,
// returning ErrPermissionDenied when they do not.
func (s *Service) CheckPermission(userID uint64, page, action string) error {
	allowed, err := s.HasPermission(userID, page, action)
	if err != nil {
		return err
	}

	if !allowed {
		return ErrPermissionDenied
	}

	return nil
}

// HighestPrecedenceOf resolves the highest authority rank held by the user
// with the given ID. A user with no resolvable roles holds no authority at
// all; the second return value reports whether a rank was found.
func (s *Service) HighestPrecedenceOf(userID uint64) (int, bool, error) {
	combined, err := s.CombinedRoleForUser(userID)
	if err != nil {
		return 0, false, err
	}

	if combined == nil {
		return 0, false, nil
	}

	return combined.HighestPrecedence, true, nil
}

// GateUserAction applies the precedence gate for an action by actor against
// the target user: the target's highest role must sit strictly below the
// actor's. A target with no resolvable roles holds no authority and is below
// everyone; an actor with no resolvable roles may act on no one. Returns
// ErrPrecedenceDenied when the gate rejects.
func (s *Service) GateUserAction(actorID, targetID uint64) error {
	actorPrecedence, ok, err := s.HighestPrecedenceOf(actorID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPrecedenceDenied
	}

	targetPrecedence, ok, err := s.HighestPrecedenceOf(targetID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if !rbac.CanActOn(actorPrecedence, targetPrecedence) {
		return ErrPrecedenceDenied
	}

	return nil
}

// GateRoleAction applies the precedence gate for an action by actor against
// the target role. Returns ErrPrecedenceDenied when the gate rejects.
func (s *Service) GateRoleAction(actorID uint64, target *models.Role) error {
	actorPrecedence, ok, err := s.HighestPrecedenceOf(actorID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPrecedenceDenied
	}

	if !rbac.CanActOn(actorPrecedence, target.Precedence) {
		return ErrPrecedenceDenied
	}

	return nil
}

// GateLockAction applies the lock/unlock rule: the identity check first (an
// actor may never lock their own account), then the precedence gate.
func (s *Service) GateLockAction(actorID, targetID uint64) error {
	if actorID == targetID {
		return ErrSelfLockDenied
	}

	return s.GateUserAction(actorID, targetID)
}
