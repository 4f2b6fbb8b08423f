// Package role provides persistence and precedence maintenance for roles.
//
// Every mutation that can disturb the density invariant (precedence values
// form the exact sequence 1..N over the role count) runs inside a single
// transaction, so no reader observes a gapped sequence mid-update. Mutations
// are only atomic within themselves; concurrent writers are not serialized
// against each other.
package role

import (
	"errors"

	"gorm.io/gorm"

	"github.com/GoUserPanel/GoUserPanel/internal/db/controller/user"
	"github.com/GoUserPanel/GoUserPanel/internal/db/models"
)

const (
	nameQueryPattern = "name = ?"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrRoleNotFound is returned when a role id or name does not resolve.
	ErrRoleNotFound = errors.New("role not found")
	// ErrRoleNameEmpty is returned when creating or renaming a role with an empty name.
	ErrRoleNameEmpty = errors.New("role name cannot be empty")
	// ErrRoleNameExists is returned when a role with the requested name already exists.
	ErrRoleNameExists = errors.New("role with this name already exists")
	// ErrEmptyBatch is returned when a bulk precedence update carries no entries.
	ErrEmptyBatch = errors.New("expected non-empty list of precedence updates")
	// ErrNegativePrecedence is returned when a bulk update carries a negative precedence value.
	ErrNegativePrecedence = errors.New("precedence value cannot be negative")
	// ErrDuplicatePrecedence is returned when a bulk update carries the same
	// precedence value more than once within the batch.
	ErrDuplicatePrecedence = errors.New("precedence values must be unique")
)

// PrecedenceUpdate is one entry of a bulk precedence reassignment.
type PrecedenceUpdate struct {
	ID         uint
	Precedence int
}

// GetByID retrieves a role by its ID.
func GetByID(db *gorm.DB, id uint) (*models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var role models.Role
	result := db.First(&role, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, result.Error
	}

	return &role, nil
}

// GetByName retrieves a role by its exact, case-sensitive name.
func GetByName(db *gorm.DB, name string) (*models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if name == "" {
		return nil, ErrRoleNameEmpty
	}

	var role models.Role
	result := db.Where(nameQueryPattern, name).First(&role)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, result.Error
	}

	return &role, nil
}

// GetByNames retrieves all roles whose name is in the given set. Names that
// do not resolve are silently dropped; the result may be empty.
func GetByNames(db *gorm.DB, names []string) ([]models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if len(names) == 0 {
		return nil, nil
	}

	var roles []models.Role
	result := db.Where("name IN ?", names).Find(&roles)
	if result.Error != nil {
		return nil, result.Error
	}

	return roles, nil
}

// GetAll retrieves all roles sorted by ascending precedence, so the most
// powerful role comes first.
func GetAll(db *gorm.DB) ([]models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var roles []models.Role
	result := db.Order("precedence ASC").Find(&roles)
	if result.Error != nil {
		return nil, result.Error
	}

	return roles, nil
}

// Create creates a new role at the lowest authority: its precedence is the
// current maximum plus one, or 1 for the first role. The collision check and
// the max-precedence read run in the same transaction as the insert.
func Create(db *gorm.DB, name string, permissions models.PermissionSet, createdBy uint64) (*models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if name == "" {
		return nil, ErrRoleNameEmpty
	}

	newRole := &models.Role{
		Name:        name,
		Permissions: permissions,
		CreatedBy:   createdBy,
		UpdatedBy:   createdBy,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var existing models.Role

		err := tx.Where(nameQueryPattern, name).First(&existing).Error
		if err == nil {
			return ErrRoleNameExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var last models.Role

		err = tx.Order("precedence DESC").First(&last).Error
		switch {
		case err == nil:
			newRole.Precedence = last.Precedence + 1
		case errors.Is(err, gorm.ErrRecordNotFound):
			newRole.Precedence = 1
		default:
			return err
		}

		return tx.Create(newRole).Error
	})
	if err != nil {
		return nil, err
	}

	return newRole, nil
}

// Update changes a role's name and/or permissions. A nil field is left
// untouched. Renaming checks the new name for collisions against every other
// role and cascades the rename into each user's role set so no user keeps a
// dangling old name.
func Update(db *gorm.DB, id uint, name *string, permissions *models.PermissionSet, updatedBy uint64) (*models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var updated models.Role

	err := db.Transaction(func(tx *gorm.DB) error {
		var current models.Role

		err := tx.First(&current, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoleNotFound
		}
		if err != nil {
			return err
		}

		updated = current

		if name != nil && *name != current.Name {
			if *name == "" {
				return ErrRoleNameEmpty
			}

			var existing models.Role

			err = tx.Where(nameQueryPattern, *name).First(&existing).Error
			if err == nil {
				return ErrRoleNameExists
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			if err = user.RenameRole(tx, current.Name, *name); err != nil {
				return err
			}

			updated.Name = *name
		}

		if permissions != nil {
			updated.Permissions = *permissions
		}

		updated.UpdatedBy = updatedBy

		return tx.Save(&updated).Error
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

// Delete removes a role and repairs everything that depended on it: the role
// name is stripped from every user holding it and every role of lower
// authority moves up one precedence step, closing the gap. The three steps
// run in one transaction; a failure aborts the whole delete. Returns the
// deleted role.
func Delete(db *gorm.DB, id uint) (*models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var deleted models.Role

	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.First(&deleted, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoleNotFound
		}
		if err != nil {
			return err
		}

		if err = user.PullRole(tx, deleted.Name); err != nil {
			return err
		}

		err = tx.Model(&models.Role{}).
			Where("precedence > ?", deleted.Precedence).
			UpdateColumn("precedence", gorm.Expr("precedence - 1")).Error
		if err != nil {
			return err
		}

		return tx.Delete(&models.Role{}, id).Error
	})
	if err != nil {
		return nil, err
	}

	return &deleted, nil
}

// UpdatePrecedences applies a bulk precedence reassignment, the persistence
// side of drag-and-drop reordering. The batch is validated up front: it must
// be non-empty, every precedence non-negative and unique within the batch.
// Every id must resolve to an existing role; the first miss rolls the whole
// batch back, so a rejected batch changes nothing.
//
// The batch is not re-checked against roles outside it, matching the original
// behavior; Compact is the repair path if a batch introduces drift.
func UpdatePrecedences(db *gorm.DB, updates []PrecedenceUpdate) ([]models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if len(updates) == 0 {
		return nil, ErrEmptyBatch
	}

	seen := make(map[int]bool, len(updates))

	for _, u := range updates {
		if u.Precedence < 0 {
			return nil, ErrNegativePrecedence
		}
		if seen[u.Precedence] {
			return nil, ErrDuplicatePrecedence
		}
		seen[u.Precedence] = true
	}

	updated := make([]models.Role, 0, len(updates))

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			result := tx.Model(&models.Role{}).
				Where("id = ?", u.ID).
				Update("precedence", u.Precedence)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrRoleNotFound
			}
		}

		ids := make([]uint, len(updates))
		for i, u := range updates {
			ids[i] = u.ID
		}

		return tx.Where("id IN ?", ids).Order("precedence ASC").Find(&updated).Error
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Compact renumbers all roles 1..N strictly by their current ascending
// precedence, repairing any gaps or drift a bulk update may have introduced.
func Compact(db *gorm.DB) error {
	if db == nil {
		return ErrDBNil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var roles []models.Role

		if err := tx.Order("precedence ASC, id ASC").Find(&roles).Error; err != nil {
			return err
		}

		for i := range roles {
			target := i + 1
			if roles[i].Precedence == target {
				continue
			}

			err := tx.Model(&models.Role{}).
				Where("id = ?", roles[i].ID).
				UpdateColumn("precedence", target).Error
			if err != nil {
				return err
			}
		}

		return nil
	})
}
