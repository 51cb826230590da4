package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/edusync/edusync-api/internal/config"
	"github.com/edusync/edusync-api/internal/handler"
	"github.com/edusync/edusync-api/internal/middleware"
	"github.com/edusync/edusync-api/internal/models"
	"github.com/edusync/edusync-api/internal/observability"
	"github.com/edusync/edusync-api/internal/service"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler    *handler.AuthHandler
	InviteHandler  *handler.InviteHandler
	TeacherHandler *handler.TeacherHandler
	Sessions       service.SessionService
	LoginLimiter   fiber.Handler
	DB             *gorm.DB
	Cache          *redis.Client
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.DB, deps.Cache))

	app.Get("/metrics", observability.MetricsHandler())

	// Public auth surface: login and invite-backed registration need no
	// session, the invite preview backs the registration page.
	if deps.AuthHandler != nil {
		auth := app.Group("/api/auth")
		deps.AuthHandler.Register(auth, deps.LoginLimiter)

		if deps.InviteHandler != nil {
			deps.InviteHandler.RegisterPublic(auth.Group("/student-invites"))
		}
	}

	// Invite management requires an active session with a staff role; the
	// handlers re-check teacher scoping on top of the role gate.
	if deps.InviteHandler != nil && deps.Sessions != nil {
		management := app.Group("/api/teacher/student-invites",
			middleware.SessionProtected(deps.Sessions),
			middleware.RequireRole(string(models.RoleTeacher), string(models.RoleAdmin)),
		)
		deps.InviteHandler.RegisterManagement(management)
	}

	// Teacher provisioning is admin-only; the handler re-checks the role and
	// the forced-password-change gate through the access service.
	if deps.TeacherHandler != nil && deps.Sessions != nil {
		provisioning := app.Group("/api/teacher/invites",
			middleware.SessionProtected(deps.Sessions),
			middleware.RequireRole(string(models.RoleAdmin)),
		)
		deps.TeacherHandler.Register(provisioning)
	}
}
