package rbac

import "github.com/GoUserPanel/GoUserPanel/internal/db/models"

// CombinedRole is the per-request projection of a user's assigned roles: the
// union of their permissions plus the identity of the most powerful role.
// It is recomputed on demand and never persisted.
type CombinedRole struct {
	// Roles is the set of role names the projection was requested for,
	// including names that did not resolve.
	Roles []string `json:"roles"`
	// HighestRole is the name of the resolved role with the numerically
	// smallest precedence.
	HighestRole string `json:"highestRole"`
	// HighestPrecedence is that role's precedence value.
	HighestPrecedence int `json:"highestPrecedence"`
	// Permissions is the union, per page, of all actions granted by any
	// resolved role.
	Permissions models.PermissionSet `json:"permissions"`
}

// Combine merges the resolved role records into a CombinedRole. roleNames is
// the requested name set (echoed back in the result); roles are the records
// that actually resolved. Names that did not resolve are silently ignored,
// but an empty resolved set fails with ErrNoRolesResolved.
//
// The highest role is the first role seen with the minimum precedence. Under
// the density invariant precedence values are unique, so the tie-break only
// matters for a store that has drifted; it is deliberate that ties resolve to
// whichever role came first rather than crashing or ordering further.
func Combine(roleNames []string, roles []models.Role) (*CombinedRole, error) {
	if len(roles) == 0 {
		return nil, ErrNoRolesResolved
	}

	highest := roles[0]

	// pageIndex maps a page name to its position in merged, so union
	// accumulation stays linear while page order stays first-seen.
	var (
		merged    models.PermissionSet
		pageIndex = make(map[string]int)
	)

	for _, role := range roles {
		if role.Precedence < highest.Precedence {
			highest = role
		}

		for _, perm := range role.Permissions {
			idx, ok := pageIndex[perm.Page]
			if !ok {
				idx = len(merged)
				pageIndex[perm.Page] = idx
				merged = append(merged, models.Permission{Page: perm.Page})
			}

			for _, action := range perm.Actions {
				if !contains(merged[idx].Actions, action) {
					merged[idx].Actions = append(merged[idx].Actions, action)
				}
			}
		}
	}

	return &CombinedRole{
		Roles:             roleNames,
		HighestRole:       highest.Name,
		HighestPrecedence: highest.Precedence,
		Permissions:       merged,
	}, nil
}

// HighestPrecedenceRole filters allRoles to those whose name is in roleNames
// and returns the one with the minimum precedence, or nil when nothing
// matches. Used wherever a single representative role must be shown for a
// user holding multiple roles.
func HighestPrecedenceRole(roleNames []string, allRoles []models.Role) *models.Role {
	var found *models.Role

	for i := range allRoles {
		if !contains(roleNames, allRoles[i].Name) {
			continue
		}

		if found == nil || allRoles[i].Precedence < found.Precedence {
			found = &allRoles[i]
		}
	}

	return found
}
