package models

// Permission grants a set of actions on a single page of the panel.
// The valid page and action names are defined by the rbac catalog and are
// validated at the role create/update boundary, not here.
type Permission struct {
	// Page is the panel page the grant applies to (e.g. "Users", "Settings").
	Page string `json:"page"`
	// Actions are the actions allowed on the page (e.g. "read", "delete-user").
	Actions []string `json:"actions"`
}

// PermissionSet is the permission list of a role. It holds at most one
// Permission entry per distinct page.
type PermissionSet []Permission

// ActionsFor returns the actions granted for the given page, or nil if the
// set carries no entry for it.
func (ps PermissionSet) ActionsFor(page string) []string {
	for _, p := range ps {
		if p.Page == page {
			return p.Actions
		}
	}

	return nil
}

// Allows reports whether the set grants the given action on the given page.
func (ps PermissionSet) Allows(page, action string) bool {
	for _, a := range ps.ActionsFor(page) {
		if a == action {
			return true
		}
	}

	return false
}
