package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/edusync/edusync-api/internal/service"
	"github.com/edusync/edusync-api/internal/utils"
)

// Locals keys populated by SessionProtected.
const (
	LocalUserID   = "user_id"
	LocalUserRole = "user_role"
)

// SessionProtected returns a middleware that resolves the opaque bearer token
// against the session store and rejects the request when no active session
// matches. The resolved user's id and role are placed in request locals.
func SessionProtected(sessions service.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := sessions.RequireAuthenticatedUser(c.Context(), c.Get(fiber.HeaderAuthorization))
		if err != nil {
			if domainErr, ok := service.AsDomainError(err); ok {
				return utils.SendErrorCode(c, domainErr.Status, domainErr.Code, domainErr.Message, nil)
			}
			return utils.SendError(c, fiber.StatusUnauthorized, "Unauthenticated.")
		}

		c.Locals(LocalUserID, user.ID)
		c.Locals(LocalUserRole, string(user.Role))

		return c.Next()
	}
}
