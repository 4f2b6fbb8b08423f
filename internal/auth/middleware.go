package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoUserPanel/GoUserPanel/internal/web/session"
)

// statusMessage is the JSON error envelope returned by auth middleware.
type statusMessage struct {
	Error string `json:"error"`
}

// RequirePermission creates Fiber middleware that requires a specific
// (page, action) permission. The permission is checked against the user's
// current role assignments in the database, not against whatever was true at
// login, so a role change takes effect on the next request.
func RequirePermission(authService *Service, page, action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := sessionUserID(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(statusMessage{Error: "Unauthorized"})
		}

		err := authService.CheckPermission(userID, page, action)

		switch {
		case errors.Is(err, ErrPermissionDenied):
			log.Warn().Uint64("user_id", userID).
				Str("page", page).Str("action", action).
				Msg("User lacks required permission")

			return c.Status(fiber.StatusForbidden).JSON(statusMessage{Error: "Forbidden: You don't have permission to perform this action"})
		case err != nil:
			log.Error().Err(err).Uint64("user_id", userID).
				Str("page", page).Str("action", action).
				Msg("Failed to check permission")

			return c.Status(fiber.StatusInternalServerError).JSON(statusMessage{Error: "Internal Server Error"})
		}

		return c.Next()
	}
}

// RequireAuthenticated creates Fiber middleware that only requires a valid
// session, without any permission check. Used by read paths every logged-in
// user may call (e.g. resolving their own combined role).
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := sessionUserID(c); !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(statusMessage{Error: "Unauthorized"})
		}

		return c.Next()
	}
}

// CurrentUserID extracts the authenticated user's ID from the request
// session. The second return value is false when no valid session exists.
func CurrentUserID(c *fiber.Ctx) (uint64, bool) {
	return sessionUserID(c)
}

func sessionUserID(c *fiber.Ctx) (uint64, bool) {
	sessionID := c.Cookies(session.CookieName)
	if sessionID == "" {
		return 0, false
	}

	sessionData := new(session.Data)
	if err := sessionData.Read(sessionID); err != nil {
		return 0, false
	}

	if sessionData.UserID == 0 {
		return 0, false
	}

	return sessionData.UserID, true
}
