package models

import "time"

// Role represents a role in the precedence-ranked access control model.
// Roles are ordered by precedence, where a lower value means higher authority:
// precedence 1 is the most powerful role in the system. Precedence values are
// kept unique and dense (1..N over the role count) by the role controller.
type Role struct {
	// ID is the unique identifier for the role.
	ID uint `gorm:"primaryKey" json:"id"`
	// Name is the unique role name. Matching is case-sensitive and exact.
	Name string `gorm:"unique;size:100;not null" json:"name"`
	// Precedence is the authority rank of the role. Lower value = higher authority.
	Precedence int `gorm:"not null;index" json:"precedence"`
	// Permissions is the set of page/action grants, stored as JSON.
	Permissions PermissionSet `gorm:"serializer:json" json:"permissions"`
	// CreatedBy is the ID of the user who created the role.
	CreatedBy uint64 `gorm:"column:created_by" json:"createdBy"`
	// UpdatedBy is the ID of the user who last updated the role.
	UpdatedBy uint64 `gorm:"column:updated_by" json:"updatedBy"`
	// CreatedAt is the timestamp when the role was created (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the timestamp when the role was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the database table name for the Role model.
// This overrides GORM's default pluralized table naming.
func (Role) TableName() string {
	return "roles"
}
