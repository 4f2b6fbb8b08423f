package daemon

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoUserPanel/GoUserPanel/internal/config"
	"github.com/GoUserPanel/GoUserPanel/internal/db/models"
	"github.com/GoUserPanel/GoUserPanel/internal/rbac"
)

// SuperAdminRoleName is the seeded role holding every permission at the
// highest authority.
const SuperAdminRoleName = "Super Admin"

// seed creates the Super Admin role and the bootstrap admin account when the
// respective tables are empty. The seeded account must change its password on
// first login.
func seed(cfg *config.Config, db *gorm.DB) error {
	var roleCount int64
	if err := db.Model(&models.Role{}).Count(&roleCount).Error; err != nil {
		return err
	}

	if roleCount == 0 {
		superAdmin := models.Role{
			Name:        SuperAdminRoleName,
			Precedence:  1,
			Permissions: rbac.Catalog(),
		}

		if err := db.Create(&superAdmin).Error; err != nil {
			return err
		}

		log.Info().Str("role", SuperAdminRoleName).Msg("seeded role")
	}

	var userCount int64
	if err := db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		return err
	}

	if userCount == 0 {
		username := cfg.Seed.AdminUsername
		if username == "" {
			username = "superadmin"
		}

		password := cfg.Seed.AdminPassword
		if password == "" {
			password = "changeme"
		}

		admin := models.User{
			Username:  username,
			Password:  models.HashPassword(password),
			FirstName: "Super",
			LastName:  "Admin",
			Email:     cfg.Seed.AdminEmail,
			Roles:     models.RoleNames{SuperAdminRoleName},
			Settings:  models.UserSettings{IsPassChange: true, IsRegistered: true},
		}

		if err := db.Create(&admin).Error; err != nil {
			return err
		}

		log.Info().Str("username", username).Msg("seeded admin user, password change required on first login")
	}

	return nil
}
