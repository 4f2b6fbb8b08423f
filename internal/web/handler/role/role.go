// Package role provides the JSON API for role management: CRUD, the combined
// role projection, and precedence reordering.
package role

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoUserPanel/GoUserPanel/internal/auth"
	"github.com/GoUserPanel/GoUserPanel/internal/config"
	"github.com/GoUserPanel/GoUserPanel/internal/db/controller/role"
	"github.com/GoUserPanel/GoUserPanel/internal/db/models"
	"github.com/GoUserPanel/GoUserPanel/internal/rbac"
	"github.com/GoUserPanel/GoUserPanel/internal/web/handler"
)

const (
	// Path is the base path for role management.
	Path = "/role"
)

// Service provides the role management endpoints.
type Service struct {
	cfg         *config.Config
	db          *gorm.DB
	authService *auth.Service
	validator   *validator.Validate
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
	s.validator = validator.New()

	// Static segments must be registered before the :id routes so
	// "combinedRole", "rolesArray", "precedence" and "reorder" don't get
	// swallowed as role IDs.
	app.Post(Path+"/combinedRole",
		auth.RequireAuthenticated(),
		s.CombinedRole,
	)
	app.Get(Path+"/rolesArray",
		auth.RequireAuthenticated(),
		s.ListArray,
	)
	app.Get(Path+"/assignable",
		auth.RequireAuthenticated(),
		s.Assignable,
	)
	app.Patch(Path+"/precedence",
		auth.RequirePermission(authService, rbac.PageSettings, rbac.ActionChangePrecedence),
		s.UpdatePrecedences,
	)
	app.Post(Path+"/reorder",
		auth.RequirePermission(authService, rbac.PageSettings, rbac.ActionChangePrecedence),
		s.Reorder,
	)
	app.Post(Path,
		auth.RequirePermission(authService, rbac.PageSettings, rbac.ActionCreateRole),
		s.Create,
	)
	app.Get(Path,
		auth.RequirePermission(authService, rbac.PageSettings, rbac.ActionReadRole),
		s.List,
	)
	app.Get(Path+"/:id",
		auth.RequirePermission(authService, rbac.PageSettings, rbac.ActionReadRole),
		s.Get,
	)
	app.Patch(Path+"/:id",
		auth.RequirePermission(authService, rbac.PageSettings, rbac.ActionUpdateRole),
		s.Update,
	)
	app.Delete(Path+"/:id",
		auth.RequirePermission(authService, rbac.PageSettings, rbac.ActionDeleteRole),
		s.Delete,
	)
}

type errorResponse struct {
	Error string `json:"error"`
}

type createRoleRequest struct {
	Name        string               `json:"name" validate:"required,max=100"`
	Permissions models.PermissionSet `json:"permissions"`
}

type updateRoleRequest struct {
	Name        *string               `json:"name" validate:"omitempty,min=1,max=100"`
	Permissions *models.PermissionSet `json:"permissions"`
}

type combinedRoleRequest struct {
	Roles []string `json:"roles" validate:"required,min=1,dive,required"`
}

type precedenceUpdateEntry struct {
	ID         uint `json:"_id" validate:"required"`
	Precedence int  `json:"precedence"`
}

type precedenceBatchRequest struct {
	Updates []precedenceUpdateEntry `json:"updates" validate:"required,min=1,dive"`
}

// CombinedRole resolves the requested role names into a combined role: the
// per-page union of permissions plus the highest-authority role among them.
func (s *Service) CombinedRole(c *fiber.Ctx) error {
	var req combinedRoleRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Invalid request body"})
	}

	if err := s.validator.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Please provide an array of role names"})
	}

	combined, err := s.authService.CombinedRoleFor(req.Roles)
	if err != nil {
		log.Error().Err(err).Strs("roles", req.Roles).Msg("failed to combine roles")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error combining roles"})
	}

	if combined == nil {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "No roles found"})
	}

	return c.JSON(combined)
}

// Create creates a new role at the lowest authority rank. The permission set
// is validated against the catalog before anything is written.
func (s *Service) Create(c *fiber.Ctx) error {
	actorID, _ := auth.CurrentUserID(c)

	var req createRoleRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Invalid request body"})
	}

	if err := s.validator.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Role name is required"})
	}

	// A role created without permissions gets the starter set.
	if len(req.Permissions) == 0 {
		req.Permissions = rbac.DefaultPermissions()
	}

	if err := rbac.ValidatePermissions(req.Permissions); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}

	created, err := role.Create(s.db, req.Name, req.Permissions, actorID)
	if errors.Is(err, role.ErrRoleNameExists) {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Role with this name already exists"})
	}

	if err != nil {
		log.Error().Err(err).Str("name", req.Name).Msg("failed to create role")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error creating role"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Role created successfully",
		"role":    created,
	})
}

// List returns all roles sorted by ascending precedence.
func (s *Service) List(c *fiber.Ctx) error {
	roles, err := role.GetAll(s.db)
	if err != nil {
		log.Error().Err(err).Msg("failed to list roles")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error fetching roles"})
	}

	return c.JSON(fiber.Map{"roles": roles})
}

// roleArrayEntry is the trimmed projection served to dropdowns and pickers.
type roleArrayEntry struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Precedence int    `json:"precedence"`
}

// ListArray returns a trimmed id/name/precedence projection of all roles,
// sorted by ascending precedence.
func (s *Service) ListArray(c *fiber.Ctx) error {
	roles, err := role.GetAll(s.db)
	if err != nil {
		log.Error().Err(err).Msg("failed to list roles")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error fetching roles array"})
	}

	entries := make([]roleArrayEntry, len(roles))
	for i, r := range roles {
		entries[i] = roleArrayEntry{ID: r.ID, Name: r.Name, Precedence: r.Precedence}
	}

	return c.JSON(fiber.Map{"roles": entries})
}

// Assignable returns the roles the calling user may hand out: only roles of
// strictly lower authority than the caller's highest role are offered.
func (s *Service) Assignable(c *fiber.Ctx) error {
	actorID, _ := auth.CurrentUserID(c)

	actorPrecedence, ok, err := s.authService.HighestPrecedenceOf(actorID)
	if err != nil {
		log.Error().Err(err).Uint64("actor_id", actorID).Msg("failed to resolve actor precedence")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error fetching assignable roles"})
	}

	if !ok {
		// No resolvable role means no authority to hand anything out.
		return c.JSON(fiber.Map{"roles": []roleArrayEntry{}})
	}

	roles, err := role.GetAll(s.db)
	if err != nil {
		log.Error().Err(err).Msg("failed to list roles")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error fetching assignable roles"})
	}

	assignable := rbac.AssignableRoles(actorPrecedence, roles)

	entries := make([]roleArrayEntry, len(assignable))
	for i, r := range assignable {
		entries[i] = roleArrayEntry{ID: r.ID, Name: r.Name, Precedence: r.Precedence}
	}

	return c.JSON(fiber.Map{"roles": entries})
}

// Get returns a single role by ID.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Invalid role id"})
	}

	found, err := role.GetByID(s.db, uint(id))
	if errors.Is(err, role.ErrRoleNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "Role not found"})
	}

	if err != nil {
		log.Error().Err(err).Int("id", id).Msg("failed to fetch role")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error fetching role"})
	}

	return c.JSON(fiber.Map{"role": found})
}

// Update changes a role's name and/or permissions. The actor must outrank
// the role being touched; renames cascade into every user's role set.
func (s *Service) Update(c *fiber.Ctx) error {
	actorID, _ := auth.CurrentUserID(c)

	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Invalid role id"})
	}

	var req updateRoleRequest

	if err = c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Invalid request body"})
	}

	if err = s.validator.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Role name cannot be empty"})
	}

	if req.Permissions != nil {
		if err = rbac.ValidatePermissions(*req.Permissions); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
		}
	}

	target, err := role.GetByID(s.db, uint(id))
	if errors.Is(err, role.ErrRoleNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "Role not found"})
	}

	if err != nil {
		log.Error().Err(err).Int("id", id).Msg("failed to fetch role")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error updating role"})
	}

	if err = s.authService.GateRoleAction(actorID, target); err != nil {
		if errors.Is(err, auth.ErrPrecedenceDenied) {
			return c.Status(fiber.StatusForbidden).JSON(errorResponse{Error: "Cannot modify a role of equal or higher authority"})
		}

		log.Error().Err(err).Int("id", id).Msg("failed to gate role update")

		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error updating role"})
	}

	updated, err := role.Update(s.db, uint(id), req.Name, req.Permissions, actorID)
	if errors.Is(err, role.ErrRoleNameExists) {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Role with this name already exists"})
	}

	if errors.Is(err, role.ErrRoleNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "Role not found"})
	}

	if err != nil {
		log.Error().Err(err).Int("id", id).Msg("failed to update role")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error updating role"})
	}

	return c.JSON(fiber.Map{
		"message": "Role updated successfully",
		"role":    updated,
	})
}

// Delete removes a role, strips it from every user holding it and closes the
// precedence gap it leaves. The actor must outrank the role being deleted.
func (s *Service) Delete(c *fiber.Ctx) error {
	actorID, _ := auth.CurrentUserID(c)

	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Invalid role id"})
	}

	target, err := role.GetByID(s.db, uint(id))
	if errors.Is(err, role.ErrRoleNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "Role not found"})
	}

	if err != nil {
		log.Error().Err(err).Int("id", id).Msg("failed to fetch role")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error deleting role"})
	}

	if err = s.authService.GateRoleAction(actorID, target); err != nil {
		if errors.Is(err, auth.ErrPrecedenceDenied) {
			return c.Status(fiber.StatusForbidden).JSON(errorResponse{Error: "Cannot delete a role of equal or higher authority"})
		}

		log.Error().Err(err).Int("id", id).Msg("failed to gate role delete")

		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error deleting role"})
	}

	deleted, err := role.Delete(s.db, uint(id))
	if errors.Is(err, role.ErrRoleNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "Role not found"})
	}

	if err != nil {
		log.Error().Err(err).Int("id", id).Msg("failed to delete role")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error deleting role"})
	}

	return c.JSON(fiber.Map{
		"message": "Role " + deleted.Name + " deleted and removed from all users. Precedences updated.",
	})
}

// UpdatePrecedences applies a bulk precedence reassignment (drag-and-drop
// reordering). The batch is validated as a whole and applied atomically; the
// actor must outrank every role in the batch.
func (s *Service) UpdatePrecedences(c *fiber.Ctx) error {
	actorID, _ := auth.CurrentUserID(c)

	var req precedenceBatchRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Invalid request body"})
	}

	if err := s.validator.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Invalid input: Expected non-empty array of updates"})
	}

	updates := make([]role.PrecedenceUpdate, len(req.Updates))
	for i, u := range req.Updates {
		updates[i] = role.PrecedenceUpdate{ID: u.ID, Precedence: u.Precedence}

		target, err := role.GetByID(s.db, u.ID)
		if errors.Is(err, role.ErrRoleNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "One or more roles not found"})
		}

		if err != nil {
			log.Error().Err(err).Uint("id", u.ID).Msg("failed to fetch role for reorder")
			return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error updating role precedences"})
		}

		if err = s.authService.GateRoleAction(actorID, target); err != nil {
			if errors.Is(err, auth.ErrPrecedenceDenied) {
				return c.Status(fiber.StatusForbidden).JSON(errorResponse{Error: "Cannot reorder a role of equal or higher authority"})
			}

			log.Error().Err(err).Uint("id", u.ID).Msg("failed to gate reorder")

			return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error updating role precedences"})
		}
	}

	updated, err := role.UpdatePrecedences(s.db, updates)

	switch {
	case errors.Is(err, role.ErrEmptyBatch),
		errors.Is(err, role.ErrNegativePrecedence),
		errors.Is(err, role.ErrDuplicatePrecedence):
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	case errors.Is(err, role.ErrRoleNotFound):
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "One or more roles not found"})
	case err != nil:
		log.Error().Err(err).Msg("failed to update role precedences")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error updating role precedences"})
	}

	return c.JSON(fiber.Map{
		"message": "Role precedences updated successfully",
		"roles":   updated,
	})
}

// Reorder compacts all role precedences into the dense sequence 1..N,
// repairing any drift a bulk update may have introduced.
func (s *Service) Reorder(c *fiber.Ctx) error {
	if err := role.Compact(s.db); err != nil {
		log.Error().Err(err).Msg("failed to compact role precedences")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error reordering precedences"})
	}

	return c.JSON(fiber.Map{
		"message": "Role precedences reordered successfully",
	})
}
