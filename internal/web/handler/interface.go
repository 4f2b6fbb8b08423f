package handler

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/GoUserPanel/GoUserPanel/internal/auth"
	"github.com/GoUserPanel/GoUserPanel/internal/config"
)

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service)
}
