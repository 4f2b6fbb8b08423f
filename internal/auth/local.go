package auth

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/GoUserPanel/GoUserPanel/internal/db/controller/user"
	"github.com/GoUserPanel/GoUserPanel/internal/db/models"
	"github.com/GoUserPanel/GoUserPanel/internal/uniuri"
)

// LocalProvider handles local database authentication and the password
// lifecycle of user accounts.
type LocalProvider struct {
	db *gorm.DB
}

const (
	whereID = "id = ?"

	// generatedPasswordLen is the length of administratively generated
	// passwords (reset flow).
	generatedPasswordLen = 12
)

// NewLocalProvider creates a new local authentication provider.
func NewLocalProvider(db *gorm.DB) *LocalProvider {
	return &LocalProvider{
		db: db,
	}
}

// Authenticate authenticates a user against the local database. The login
// identifier may be a username or an email address. Locked accounts are
// rejected after the password check, so a probe cannot distinguish a locked
// account from a wrong password without knowing the credentials.
func (p *LocalProvider) Authenticate(loginID, password string) (*models.User, error) {
	account, err := user.GetByLoginID(p.db, loginID)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if !account.VerifyPassword(password) {
		return nil, ErrInvalidPassword
	}

	if account.IsLocked {
		return nil, ErrUserAccountLocked
	}

	return account, nil
}

// CreateUser creates a new user account. Username and email (when given)
// must be unique across all accounts.
func (p *LocalProvider) CreateUser(newUser *models.User, password string) (*models.User, error) {
	var existing models.User

	err := p.db.Where("username = ?", newUser.Username).First(&existing).Error
	if err == nil {
		return nil, ErrUserNameExists
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	if newUser.Email != "" {
		err = p.db.Where("email = ?", newUser.Email).First(&existing).Error
		if err == nil {
			return nil, ErrEmailExists
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check existing email: %w", err)
		}
	}

	newUser.Password = models.HashPassword(password)
	newUser.IsLocked = false

	if err := p.db.Create(newUser).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return newUser, nil
}

// ChangePassword changes a user's password after verifying the current one.
// Clears the forced-change flag set by an administrative reset.
func (p *LocalProvider) ChangePassword(userID uint64, currentPassword, newPassword string) error {
	account, err := user.GetByID(p.db, userID)
	if errors.Is(err, user.ErrUserNotFound) {
		return ErrUserNotFound
	}

	if err != nil {
		return fmt.Errorf("failed to query user: %w", err)
	}

	if !account.VerifyPassword(currentPassword) {
		return ErrInvalidOldPassword
	}

	account.Password = models.HashPassword(newPassword)
	account.Settings.IsPassChange = false

	// Struct-based update so the settings serializer applies.
	return p.db.Model(&models.User{}).
		Where(whereID, userID).
		Select("password", "settings").
		Updates(models.User{Password: account.Password, Settings: account.Settings}).Error
}

// ResetPassword sets a freshly generated random password on the target
// account and flags it for a forced change on next login. The plaintext is
// returned exactly once, for display to the resetting administrator.
func (p *LocalProvider) ResetPassword(userID uint64) (*models.User, string, error) {
	account, err := user.GetByID(p.db, userID)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil, "", ErrUserNotFound
	}

	if err != nil {
		return nil, "", fmt.Errorf("failed to query user: %w", err)
	}

	newPassword := uniuri.NewLen(generatedPasswordLen)

	account.Settings.IsPassChange = true

	err = p.db.Model(&models.User{}).
		Where(whereID, userID).
		Select("password", "settings").
		Updates(models.User{Password: models.HashPassword(newPassword), Settings: account.Settings}).Error
	if err != nil {
		return nil, "", fmt.Errorf("failed to reset password: %w", err)
	}

	return account, newPassword, nil
}
