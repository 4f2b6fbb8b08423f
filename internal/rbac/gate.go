package rbac

import "github.com/GoUserPanel/GoUserPanel/internal/db/models"

// CanActOn reports whether an actor whose highest precedence is
// actorPrecedence may perform a precedence-sensitive action against a target
// whose relevant role has targetPrecedence. The target must sit strictly
// below the actor in authority: equal or higher authority is always denied,
// regardless of what page/action permissions the actor holds.
func CanActOn(actorPrecedence, targetPrecedence int) bool {
	return targetPrecedence > actorPrecedence
}

// CanLockUser decides whether an actor may lock or unlock a target account.
// An actor may never lock their own account, no matter what their roles
// grant; the identity check runs before the precedence gate.
func CanLockUser(actorID, targetID uint64, actorPrecedence, targetPrecedence int) bool {
	if actorID == targetID {
		return false
	}

	return CanActOn(actorPrecedence, targetPrecedence)
}

// AssignableRoles returns the roles an actor with the given highest
// precedence is allowed to hand out: only roles of strictly lower authority
// (numerically greater precedence) are offered.
func AssignableRoles(actorPrecedence int, allRoles []models.Role) []models.Role {
	out := make([]models.Role, 0, len(allRoles))

	for _, role := range allRoles {
		if role.Precedence > actorPrecedence {
			out = append(out, role)
		}
	}

	return out
}
