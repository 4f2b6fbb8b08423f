package rbac

import "errors"

var (
	// ErrNoRolesResolved is returned by Combine when none of the requested
	// role names matched an existing role.
	ErrNoRolesResolved = errors.New("no roles found")

	// ErrUnknownPage is returned when a permission references a page the
	// catalog does not know about.
	ErrUnknownPage = errors.New("unknown permission page")

	// ErrUnknownAction is returned when a permission grants an action that is
	// not valid for its page.
	ErrUnknownAction = errors.New("unknown permission action")

	// ErrDuplicatePage is returned when a permission set carries more than one
	// entry for the same page.
	ErrDuplicatePage = errors.New("duplicate permission page")
)
