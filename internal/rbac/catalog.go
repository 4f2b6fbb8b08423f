package rbac

import (
	"fmt"

	"github.com/GoUserPanel/GoUserPanel/internal/db/models"
)

// Page constants define the panel pages the permission catalog knows about.
const (
	// PageDashboard is the landing page of the panel.
	PageDashboard = "Dashboard"
	// PageUsers is the user management page.
	PageUsers = "Users"
	// PageTask is the task management page.
	PageTask = "Task"
	// PageReport is the reporting page.
	PageReport = "Report"
	// PageSettings is the role/settings administration page.
	PageSettings = "Settings"
)

// Action constants define the actions the permission catalog knows about.
// Which actions are valid depends on the page; see Catalog.
const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ActionResetPassword = "reset-password"
	ActionCreateUser    = "create-user"
	ActionLockUser      = "lock-user"
	ActionReadDetails   = "read-details"
	ActionUpdateUser    = "update-user"
	ActionDeleteUser    = "delete-user"

	ActionReadUsers = "read-users"

	ActionCreateRole       = "create-role"
	ActionUpdateRole       = "update-role"
	ActionReadRole         = "read-role"
	ActionDeleteRole       = "delete-role"
	ActionChangePrecedence = "change-precedence"
)

// catalog is the static page/action enumeration the panel recognizes.
// It is loaded once and only ever handed out as a copy.
var catalog = models.PermissionSet{ //nolint:gochecknoglobals
	{
		Page:    PageDashboard,
		Actions: []string{ActionRead},
	},
	{
		Page: PageUsers,
		Actions: []string{
			ActionRead,
			ActionResetPassword,
			ActionCreateUser,
			ActionLockUser,
			ActionReadDetails,
			ActionUpdateUser,
			ActionDeleteUser,
		},
	},
	{
		Page:    PageTask,
		Actions: []string{ActionRead, ActionCreate, ActionDelete, ActionUpdate},
	},
	{
		Page:    PageReport,
		Actions: []string{ActionReadUsers},
	},
	{
		Page: PageSettings,
		Actions: []string{
			ActionCreateRole,
			ActionUpdateRole,
			ActionReadRole,
			ActionDeleteRole,
			ActionChangePrecedence,
		},
	},
}

// Catalog returns a copy of the full permission catalog. The copy grants
// every known action on every known page; it doubles as the permission set
// of the seeded Super Admin role.
func Catalog() models.PermissionSet {
	return copySet(catalog)
}

// DefaultPermissions returns the permission set granted to freshly created
// roles when the caller supplies none: read access to the dashboard and full
// task management.
func DefaultPermissions() models.PermissionSet {
	return models.PermissionSet{
		{Page: PageDashboard, Actions: []string{ActionRead}},
		{Page: PageTask, Actions: []string{ActionRead, ActionCreate, ActionDelete, ActionUpdate}},
	}
}

// ValidatePermissions checks a permission set against the catalog: every page
// must be known, every action must be valid for its page, and a page may
// appear at most once. Returns a wrapped sentinel error describing the first
// violation found.
func ValidatePermissions(ps models.PermissionSet) error {
	seen := make(map[string]bool, len(ps))

	for _, perm := range ps {
		valid := catalog.ActionsFor(perm.Page)
		if valid == nil {
			return fmt.Errorf("%w: %q", ErrUnknownPage, perm.Page)
		}

		if seen[perm.Page] {
			return fmt.Errorf("%w: %q", ErrDuplicatePage, perm.Page)
		}

		seen[perm.Page] = true

		for _, action := range perm.Actions {
			if !contains(valid, action) {
				return fmt.Errorf("%w: %q on page %q", ErrUnknownAction, action, perm.Page)
			}
		}
	}

	return nil
}

func copySet(ps models.PermissionSet) models.PermissionSet {
	out := make(models.PermissionSet, len(ps))

	for i, p := range ps {
		actions := make([]string, len(p.Actions))
		copy(actions, p.Actions)
		out[i] = models.Permission{Page: p.Page, Actions: actions}
	}

	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}

	return false
}
