package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// User represents a user account in the panel.
// Users hold a set of role names; their effective permissions are the union of
// the permissions of those roles, resolved per request by the rbac package.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey" json:"id"`
	// Username is the unique username for login.
	Username string `gorm:"unique;size:100;not null" json:"username"`
	// Password is the Argon2id hashed password. Never serialized.
	Password string `gorm:"size:255" json:"-"`
	// FirstName is the user's first or given name.
	FirstName string `gorm:"size:100;not null" json:"firstName"`
	// LastName is the user's last or family name.
	LastName string `gorm:"size:100;not null" json:"lastName"`
	// Email is the user's email address. Optional, but unique when set.
	Email string `gorm:"size:255;index" json:"email,omitempty"`
	// Phone is the user's phone number.
	Phone string `gorm:"size:50" json:"phone,omitempty"`
	// DOB is the user's date of birth.
	DOB *time.Time `gorm:"column:dob" json:"dob,omitempty"`
	// Roles is the set of role names assigned to the user, stored as JSON.
	Roles RoleNames `gorm:"serializer:json" json:"roles"`
	// IsLocked blocks the account from logging in when true.
	IsLocked bool `gorm:"default:false" json:"isLocked"`
	// Settings carries per-account flags, stored as JSON.
	Settings UserSettings `gorm:"serializer:json" json:"settings"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the database table name for the User model.
// This overrides GORM's default pluralized table naming.
func (User) TableName() string {
	return "users"
}

// UserSettings carries per-account behavioral flags.
type UserSettings struct {
	// IsPassChange forces a password change on next login when true
	// (set after an administrative password reset).
	IsPassChange bool `json:"isPassChange"`
	// IsRegistered records whether the account completed registration.
	IsRegistered bool `json:"isRegistered"`
}

// RoleNames is the list of role names assigned to a user.
type RoleNames []string

// Has reports whether the list contains the given role name.
// Matching is case-sensitive and exact.
func (r RoleNames) Has(name string) bool {
	for _, n := range r {
		if n == name {
			return true
		}
	}

	return false
}

// Remove returns the list without the given role name.
func (r RoleNames) Remove(name string) RoleNames {
	out := make(RoleNames, 0, len(r))

	for _, n := range r {
		if n != name {
			out = append(out, n)
		}
	}

	return out
}

// Rename returns the list with every occurrence of oldName replaced by newName.
func (r RoleNames) Rename(oldName, newName string) RoleNames {
	out := make(RoleNames, len(r))

	for i, n := range r {
		if n == oldName {
			out[i] = newName
		} else {
			out[i] = n
		}
	}

	return out
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
// This function should be used when creating or updating user passwords.
// It uses the default Argon2id parameters for secure password hashing.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the user's stored hashed password.
// It uses constant-time comparison to prevent timing attacks.
// Returns true if the password matches, false otherwise.
func (u *User) VerifyPassword(password string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}
