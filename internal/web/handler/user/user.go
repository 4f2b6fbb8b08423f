// Package user provides the JSON API for user account management: CRUD,
// locking, and the password lifecycle.
package user

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoUserPanel/GoUserPanel/internal/auth"
	"github.com/GoUserPanel/GoUserPanel/internal/config"
	"github.com/GoUserPanel/GoUserPanel/internal/db/controller/role"
	usercontroller "github.com/GoUserPanel/GoUserPanel/internal/db/controller/user"
	"github.com/GoUserPanel/GoUserPanel/internal/db/models"
	"github.com/GoUserPanel/GoUserPanel/internal/rbac"
	"github.com/GoUserPanel/GoUserPanel/internal/web/handler"
)

const (
	// Path is the base path for user management.
	Path = "/user"

	// DefaultPageSize for pagination.
	DefaultPageSize = 10
	// MaxPageSize caps the page size a client may request.
	MaxPageSize = 100
)

// Service provides the user management endpoints.
type Service struct {
	cfg           *config.Config
	db            *gorm.DB
	authService   *auth.Service
	localProvider *auth.LocalProvider
	validator     *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

var _ handler.Service = (*Service)(nil)

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.authService = authService
	s.localProvider = auth.NewLocalProvider(db)
	s.validator = validator.New()

	// Registration stays open; every other route is protected.
	app.Post(Path, s.Create)

	app.Post(Path+"/reset-password",
		auth.RequirePermission(authService, rbac.PageUsers, rbac.ActionResetPassword),
		s.ResetPassword,
	)
	app.Get(Path,
		auth.RequirePermission(authService, rbac.PageUsers, rbac.ActionRead),
		s.List,
	)
	app.Get(Path+"/:id",
		auth.RequirePermission(authService, rbac.PageUsers, rbac.ActionReadDetails),
		s.Get,
	)
	app.Patch(Path+"/:id/password",
		auth.RequireAuthenticated(),
		s.ChangePassword,
	)
	app.Patch(Path+"/:id",
		auth.RequirePermission(authService, rbac.PageUsers, rbac.ActionUpdateUser),
		s.Update,
	)
	app.Delete(Path+"/:id",
		auth.RequirePermission(authService, rbac.PageUsers, rbac.ActionDeleteUser),
		s.Delete,
	)
}

type errorResponse struct {
	Error string `json:"error"`
}

type createUserRequest struct {
	Username  string               `json:"username" validate:"required,min=3,max=100"`
	Password  string               `json:"password" validate:"required,min=6"`
	FirstName string               `json:"firstName" validate:"required,max=100"`
	LastName  string               `json:"lastName" validate:"required,max=100"`
	Roles     []string             `json:"roles"`
	Email     string               `json:"email" validate:"omitempty,email"`
	Phone     string               `json:"phone" validate:"omitempty,max=50"`
	DOB       *time.Time           `json:"dob"`
	Settings  *models.UserSettings `json:"settings"`
}

type updateUserRequest struct {
	Username  string     `json:"username" validate:"omitempty,min=3,max=100"`
	FirstName string     `json:"firstName" validate:"omitempty,max=100"`
	LastName  string     `json:"lastName" validate:"omitempty,max=100"`
	Email     string     `json:"email" validate:"omitempty,email"`
	Phone     string     `json:"phone" validate:"omitempty,max=50"`
	DOB       *time.Time `json:"dob"`
	Roles     *[]string  `json:"roles"`
	IsLocked  *bool      `json:"isLocked"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

type resetPasswordRequest struct {
	UserID uint64 `json:"userId" validate:"required"`
}

// listEntry is one row of the user list: the account plus the name of its
// highest-authority role.
type listEntry struct {
	models.User
	HighestRole string `json:"highestRole,omitempty"`
}

// Create creates a new user account.
func (s *Service) Create(c *fiber.Ctx) error {
	var req createUserRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Invalid request body"})
	}

	if err := s.validator.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Invalid user data: " + err.Error()})
	}

	newUser := &models.User{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		DOB:       req.DOB,
		Roles:     req.Roles,
	}

	if req.Settings != nil {
		newUser.Settings = *req.Settings
	}

	created, err := s.localProvider.CreateUser(newUser, req.Password)

	switch {
	case errors.Is(err, auth.ErrUserNameExists):
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Username already exists"})
	case errors.Is(err, auth.ErrEmailExists):
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Email already exists"})
	case err != nil:
		log.Error().Err(err).Str("username", req.Username).Msg("failed to create user")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error creating user"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully",
		"userId":  created.ID,
	})
}

// List returns users with pagination, multi-term search and optional role
// filtering. Each whitespace-separated search term must match at least one of
// username, first name, last name or email.
func (s *Service) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	limit := c.QueryInt("limit", DefaultPageSize)
	if limit < 1 || limit > MaxPageSize {
		limit = DefaultPageSize
	}

	tx := s.db.Model(&models.User{})

	if roleFilter := c.Query("role", ""); roleFilter != "" {
		// Role sets are stored as JSON arrays; the pattern matches the
		// stored encoding of the name.
		tx = tx.Where(usercontroller.RoleSetContains, usercontroller.RoleSetPattern(roleFilter))
	}

	if search := strings.TrimSpace(c.Query("search", "")); search != "" {
		for _, term := range strings.Fields(search) {
			like := "%" + term + "%"
			tx = tx.Where(
				"username LIKE ? OR first_name LIKE ? OR last_name LIKE ? OR email LIKE ?",
				like, like, like, like,
			)
		}
	}

	var totalCount int64
	if err := tx.Count(&totalCount).Error; err != nil {
		log.Error().Err(err).Msg("count users failed")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error fetching users"})
	}

	var users []models.User

	offset := (page - 1) * limit
	if err := tx.Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		log.Error().Err(err).Msg("query users failed")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error fetching users"})
	}

	allRoles, err := role.GetAll(s.db)
	if err != nil {
		log.Error().Err(err).Msg("failed to list roles")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error fetching users"})
	}

	// Each user is listed with their representative role, the one with the
	// most authority among their assignments.
	entries := make([]listEntry, len(users))
	for i, u := range users {
		entries[i] = listEntry{User: u}

		if r := rbac.HighestPrecedenceRole(u.Roles, allRoles); r != nil {
			entries[i].HighestRole = r.Name
		}
	}

	totalPages := (totalCount + int64(limit) - 1) / int64(limit)

	return c.JSON(fiber.Map{
		"users":       entries,
		"currentPage": page,
		"limitNumber": limit,
		"totalPages":  totalPages,
		"totalUsers":  totalCount,
	})
}

// Get returns a single user by ID.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Invalid user id"})
	}

	found, err := usercontroller.GetByID(s.db, uint64(id))
	if errors.Is(err, usercontroller.ErrUserNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "User not found"})
	}

	if err != nil {
		log.Error().Err(err).Int("id", id).Msg("failed to fetch user")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error fetching user"})
	}

	return c.JSON(found)
}

// Update changes a user's profile fields, role set and lock state. Role and
// lock changes are precedence-sensitive: the actor must outrank the target,
// may only hand out roles of strictly lower authority than their own, and
// may never lock their own account.
func (s *Service) Update(c *fiber.Ctx) error { //nolint:funlen
	actorID, _ := auth.CurrentUserID(c)

	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Invalid user id"})
	}

	targetID := uint64(id)

	var req updateUserRequest

	if err = c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Invalid request body"})
	}

	if err = s.validator.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Invalid user data: " + err.Error()})
	}

	target, err := usercontroller.GetByID(s.db, targetID)
	if errors.Is(err, usercontroller.ErrUserNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "User not found"})
	}

	if err != nil {
		log.Error().Err(err).Int("id", id).Msg("failed to fetch user")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error updating user"})
	}

	if req.Username != "" && req.Username != target.Username {
		var existing models.User

		err = s.db.Where("username = ? AND id <> ?", req.Username, targetID).First(&existing).Error
		if err == nil {
			return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Username already exists"})
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error().Err(err).Msg("failed to check username")
			return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error updating user"})
		}

		target.Username = req.Username
	}

	if req.Email != "" && req.Email != target.Email {
		var existing models.User

		err = s.db.Where("email = ? AND id <> ?", req.Email, targetID).First(&existing).Error
		if err == nil {
			return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Email already exists"})
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error().Err(err).Msg("failed to check email")
			return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error updating user"})
		}

		target.Email = req.Email
	}

	if req.FirstName != "" {
		target.FirstName = req.FirstName
	}

	if req.LastName != "" {
		target.LastName = req.LastName
	}

	if req.Phone != "" {
		target.Phone = req.Phone
	}

	if req.DOB != nil {
		target.DOB = req.DOB
	}

	if req.Roles != nil {
		if status, msg := s.gateRolesChange(actorID, targetID, *req.Roles); status != 0 {
			return c.Status(status).JSON(errorResponse{Error: msg})
		}

		target.Roles = *req.Roles
	}

	if req.IsLocked != nil && *req.IsLocked != target.IsLocked {
		err = s.authService.GateLockAction(actorID, targetID)

		switch {
		case errors.Is(err, auth.ErrSelfLockDenied):
			return c.Status(fiber.StatusForbidden).JSON(errorResponse{Error: "You cannot lock your own account"})
		case errors.Is(err, auth.ErrPrecedenceDenied):
			return c.Status(fiber.StatusForbidden).JSON(errorResponse{Error: "Cannot lock a user of equal or higher authority"})
		case err != nil:
			log.Error().Err(err).Int("id", id).Msg("failed to gate lock change")
			return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error updating user"})
		}

		target.IsLocked = *req.IsLocked
	}

	if err = s.db.Save(target).Error; err != nil {
		log.Error().Err(err).Int("id", id).Msg("failed to update user")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error updating user"})
	}

	return c.JSON(fiber.Map{
		"message": "User updated successfully",
		"user":    target,
	})
}

// gateRolesChange enforces the precedence rules for a role-set change:
// the actor must outrank the target user and every role being handed out.
// Returns a non-zero status plus message when the change must be rejected.
func (s *Service) gateRolesChange(actorID, targetID uint64, newRoles []string) (int, string) {
	err := s.authService.GateUserAction(actorID, targetID)
	if errors.Is(err, auth.ErrPrecedenceDenied) {
		return fiber.StatusForbidden, "Cannot change roles of a user with equal or higher authority"
	}

	if err != nil {
		log.Error().Err(err).Uint64("target_id", targetID).Msg("failed to gate roles change")
		return fiber.StatusInternalServerError, "Error updating user"
	}

	actorPrecedence, ok, err := s.authService.HighestPrecedenceOf(actorID)
	if err != nil {
		log.Error().Err(err).Uint64("actor_id", actorID).Msg("failed to resolve actor precedence")
		return fiber.StatusInternalServerError, "Error updating user"
	}

	if !ok {
		return fiber.StatusForbidden, "You have no role that permits assigning roles"
	}

	assigned, err := role.GetByNames(s.db, newRoles)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve assigned roles")
		return fiber.StatusInternalServerError, "Error updating user"
	}

	for _, r := range assigned {
		if !rbac.CanActOn(actorPrecedence, r.Precedence) {
			return fiber.StatusForbidden, "Cannot assign role " + r.Name + " of equal or higher authority"
		}
	}

	return 0, ""
}

// ChangePassword changes a user's password after verifying the current one.
func (s *Service) ChangePassword(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Invalid user id"})
	}

	var req changePasswordRequest

	if err = c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Invalid request body"})
	}

	if err = s.validator.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Current and new password are required"})
	}

	err = s.localProvider.ChangePassword(uint64(id), req.CurrentPassword, req.NewPassword)

	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "User not found"})
	case errors.Is(err, auth.ErrInvalidOldPassword):
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Current password is incorrect"})
	case err != nil:
		log.Error().Err(err).Int("id", id).Msg("failed to change password")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error changing password"})
	}

	return c.JSON(fiber.Map{"message": "Password changed successfully"})
}

// ResetPassword generates a fresh random password for the target account and
// returns it once, for display to the resetting administrator. The target is
// flagged for a forced password change on next login. The actor must outrank
// the target.
func (s *Service) ResetPassword(c *fiber.Ctx) error {
	actorID, _ := auth.CurrentUserID(c)

	var req resetPasswordRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Invalid request body"})
	}

	if err := s.validator.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "userId is required"})
	}

	err := s.authService.GateUserAction(actorID, req.UserID)
	if errors.Is(err, auth.ErrPrecedenceDenied) {
		return c.Status(fiber.StatusForbidden).JSON(errorResponse{Error: "Cannot reset password of a user with equal or higher authority"})
	}

	if err != nil {
		log.Error().Err(err).Uint64("target_id", req.UserID).Msg("failed to gate password reset")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error resetting password"})
	}

	target, newPassword, err := s.localProvider.ResetPassword(req.UserID)

	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "User not found"})
	case err != nil:
		log.Error().Err(err).Uint64("target_id", req.UserID).Msg("failed to reset password")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error resetting password"})
	}

	return c.JSON(fiber.Map{
		"username": target.Username,
		"password": newPassword,
	})
}

// Delete removes a user account. The actor must outrank the target, which
// also rules out self-deletion.
func (s *Service) Delete(c *fiber.Ctx) error {
	actorID, _ := auth.CurrentUserID(c)

	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Invalid user id"})
	}

	targetID := uint64(id)

	if _, err = usercontroller.GetByID(s.db, targetID); err != nil {
		if errors.Is(err, usercontroller.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "User not found"})
		}

		log.Error().Err(err).Int("id", id).Msg("failed to fetch user")

		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error deleting user"})
	}

	err = s.authService.GateUserAction(actorID, targetID)
	if errors.Is(err, auth.ErrPrecedenceDenied) {
		return c.Status(fiber.StatusForbidden).JSON(errorResponse{Error: "Cannot delete a user with equal or higher authority"})
	}

	if err != nil {
		log.Error().Err(err).Int("id", id).Msg("failed to gate user delete")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error deleting user"})
	}

	if err = s.db.Delete(&models.User{}, targetID).Error; err != nil {
		log.Error().Err(err).Int("id", id).Msg("failed to delete user")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error deleting user"})
	}

	return c.JSON(fiber.Map{
		"message": "User deleted successfully",
		"userId":  targetID,
	})
}
