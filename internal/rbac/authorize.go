package rbac

// IsAllowed reports whether the combined role grants the given action on the
// given page. A nil combined role and a page with no entry both answer false:
// authorization fails closed. Cheap enough to call on every request.
func IsAllowed(combined *CombinedRole, page, action string) bool {
	if combined == nil {
		return false
	}

	return combined.Permissions.Allows(page, action)
}
