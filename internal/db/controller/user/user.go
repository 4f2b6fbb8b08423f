// Package user provides shared persistence helpers for user accounts,
// including the role-set cascades the role controller runs when a role is
// renamed or deleted.
package user

import (
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/GoUserPanel/GoUserPanel/internal/db/models"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrUserNotFound is returned when a user id or login does not resolve.
	ErrUserNotFound = errors.New("user not found")
)

// RoleSetContains is the WHERE condition prefiltering users whose stored role
// set contains a given role name. Use together with RoleSetPattern; the
// explicit ESCAPE character works the same on sqlite, mysql and postgres.
const RoleSetContains = "roles LIKE ? ESCAPE '!'"

// likeEscaper neutralizes LIKE metacharacters and the escape character
// itself, so the JSON-encoded name matches literally.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// RoleSetPattern builds the LIKE pattern for RoleSetContains. The name is
// JSON-encoded first, quotes included, so it matches exactly how the
// serializer stores it ("a\"b" for the name a"b, not the raw text).
func RoleSetPattern(name string) string {
	encoded, err := json.Marshal(name)
	if err != nil {
		// json.Marshal cannot fail for a string.
		return "%" + likeEscaper.Replace(`"`+name+`"`) + "%"
	}

	return "%" + likeEscaper.Replace(string(encoded)) + "%"
}

// GetByID retrieves a user by ID.
func GetByID(db *gorm.DB, id uint64) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var user models.User
	result := db.First(&user, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}

	return &user, nil
}

// GetByLoginID retrieves a user by login identifier, which may be either the
// username or the email address.
func GetByLoginID(db *gorm.DB, loginID string) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var user models.User
	result := db.Where("username = ? OR email = ?", loginID, loginID).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}

	return &user, nil
}

// WithRole retrieves all users holding the given role name.
//
// The role set is stored as a JSON array, so candidates are pre-filtered with
// a LIKE on the JSON-encoded name and then confirmed against the decoded
// list. The pattern matches the stored encoding exactly, so the prefilter can
// only over-match, never miss; the decoded check drops the over-matches.
func WithRole(db *gorm.DB, name string) ([]models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	candidates, err := candidatesWithRole(db, name)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(candidates))

	for _, u := range candidates {
		if u.Roles.Has(name) {
			users = append(users, u)
		}
	}

	return users, nil
}

// PullRole removes the given role name from the role set of every user
// holding it. Called by the role controller inside the delete-role
// transaction.
func PullRole(tx *gorm.DB, name string) error {
	if tx == nil {
		return ErrDBNil
	}

	candidates, err := candidatesWithRole(tx, name)
	if err != nil {
		return err
	}

	for i := range candidates {
		if !candidates[i].Roles.Has(name) {
			continue
		}

		stripped := candidates[i].Roles.Remove(name)

		err = tx.Model(&candidates[i]).UpdateColumn("roles", stripped).Error
		if err != nil {
			return err
		}
	}

	return nil
}

// RenameRole replaces oldName with newName in the role set of every user
// holding it. Called by the role controller inside the rename transaction.
func RenameRole(tx *gorm.DB, oldName, newName string) error {
	if tx == nil {
		return ErrDBNil
	}

	candidates, err := candidatesWithRole(tx, oldName)
	if err != nil {
		return err
	}

	for i := range candidates {
		if !candidates[i].Roles.Has(oldName) {
			continue
		}

		renamed := candidates[i].Roles.Rename(oldName, newName)

		err = tx.Model(&candidates[i]).UpdateColumn("roles", renamed).Error
		if err != nil {
			return err
		}
	}

	return nil
}

func candidatesWithRole(db *gorm.DB, name string) ([]models.User, error) {
	var users []models.User

	result := db.Where(RoleSetContains, RoleSetPattern(name)).Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}

	return users, nil
}
