// Package auth provides the JSON authentication endpoints: login, logout and
// the current-user lookup.
package auth

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	authservice "github.com/GoUserPanel/GoUserPanel/internal/auth"
	"github.com/GoUserPanel/GoUserPanel/internal/config"
	"github.com/GoUserPanel/GoUserPanel/internal/db/controller/user"
	"github.com/GoUserPanel/GoUserPanel/internal/web/handler"
	"github.com/GoUserPanel/GoUserPanel/internal/web/session"
)

// Path is the base path for authentication.
const Path = "/auth"

// Service provides the authentication endpoints.
type Service struct {
	cfg           *config.Config
	db            *gorm.DB
	authService   *authservice.Service
	localProvider *authservice.LocalProvider
	validator     *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

var _ handler.Service = (*Service)(nil)

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *authservice.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.authService = authService
	s.localProvider = authservice.NewLocalProvider(db)
	s.validator = validator.New()

	app.Post(Path+"/login", s.Login)
	app.Post(Path+"/logout", s.Logout)
	app.Get(Path+"/current-user",
		authservice.RequireAuthenticated(),
		s.CurrentUser,
	)
}

type errorResponse struct {
	Error string `json:"error"`
}

type loginRequest struct {
	// LoginID is either the username or the email address.
	LoginID  string `json:"loginId" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates by username or email plus password and establishes a
// session cookie.
func (s *Service) Login(c *fiber.Ctx) error {
	var req loginRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Invalid request body"})
	}

	if err := s.validator.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "loginId and password are required"})
	}

	account, err := s.localProvider.Authenticate(req.LoginID, req.Password)

	switch {
	case errors.Is(err, authservice.ErrUserNotFound), errors.Is(err, authservice.ErrInvalidPassword):
		return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{Error: "Invalid credentials"})
	case errors.Is(err, authservice.ErrUserAccountLocked):
		return c.Status(fiber.StatusForbidden).JSON(errorResponse{Error: "Account is locked"})
	case err != nil:
		log.Error().Err(err).Str("login_id", req.LoginID).Msg("login failed")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error logging in"})
	}

	sessionID := session.GenerateSessionID()

	userSession := &session.Data{
		UserID:   account.ID,
		Username: account.Username,
	}

	if err = userSession.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error logging in"})
	}

	cookieSettings := &fiber.Cookie{
		Name:     session.CookieName,
		Value:    sessionID,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax", // TODO: make this configurable
	}

	if s.cfg.DevMode {
		cookieSettings.Secure = false
	}

	c.Cookie(cookieSettings)

	return c.JSON(fiber.Map{
		"message":      "Login successful",
		"user":         account,
		"isPassChange": account.Settings.IsPassChange,
	})
}

// Logout clears the session.
func (s *Service) Logout(c *fiber.Ctx) error {
	if sessionID := c.Cookies(session.CookieName); sessionID != "" {
		if err := session.Delete(sessionID); err != nil {
			log.Error().Err(err).Msg("failed to delete session")
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    "",
		MaxAge:   -1,
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.JSON(fiber.Map{"message": "Logged out"})
}

// CurrentUser returns the authenticated user together with their combined
// role, resolved fresh so role edits apply without a re-login.
func (s *Service) CurrentUser(c *fiber.Ctx) error {
	userID, ok := authservice.CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{Error: "Not authenticated"})
	}

	account, err := user.GetByID(s.db, userID)
	if errors.Is(err, user.ErrUserNotFound) {
		return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{Error: "Not authenticated"})
	}

	if err != nil {
		log.Error().Err(err).Uint64("user_id", userID).Msg("failed to fetch current user")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error fetching current user"})
	}

	combined, err := s.authService.CombinedRoleFor(account.Roles)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", userID).Msg("failed to resolve combined role")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Error fetching current user"})
	}

	return c.JSON(fiber.Map{
		"user":         account,
		"combinedRole": combined,
	})
}
