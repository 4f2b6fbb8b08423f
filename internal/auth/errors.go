package auth

import "errors"

var (
	// ErrInvalidOldPassword is returned when the provided current password does not match the user's stored password.
	ErrInvalidOldPassword = errors.New("current password is incorrect")

	// ErrUserNameExists is returned when attempting to create a user with a username that already exists.
	ErrUserNameExists = errors.New("username already exists")

	// ErrEmailExists is returned when attempting to create a user with an email that already exists.
	ErrEmailExists = errors.New("email already exists")

	// ErrUserAccountLocked is returned when attempting to authenticate a locked user account.
	ErrUserAccountLocked = errors.New("user account is locked")

	// ErrInvalidPassword is returned when the provided password is incorrect during authentication.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrUserNotFound is returned when a user cannot be found in the database.
	ErrUserNotFound = errors.New("user not found")

	// ErrPrecedenceDenied is returned when the precedence gate rejects an
	// action: the target sits at equal or higher authority than the actor.
	ErrPrecedenceDenied = errors.New("target has equal or higher authority")

	// ErrSelfLockDenied is returned when an actor attempts to lock or unlock
	// their own account.
	ErrSelfLockDenied = errors.New("cannot lock own account")

	// ErrPermissionDenied is returned when a user lacks the page/action
	// permission an operation requires.
	ErrPermissionDenied = errors.New("permission denied")
)
