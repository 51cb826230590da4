package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edusync/edusync-api/internal/middleware"
	"github.com/edusync/edusync-api/internal/service"
	"github.com/edusync/edusync-api/internal/utils"
)

// sendServiceError maps a service failure onto the response envelope. Domain
// errors keep their stable code and status; anything else is an internal error
// that must not leak details to the client.
func sendServiceError(c *fiber.Ctx, logger zerolog.Logger, err error, fallbackMessage string) error {
	if domainErr, ok := service.AsDomainError(err); ok {
		return utils.SendErrorCode(c, domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details)
	}

	logger.Error().Err(err).Str("correlation_id", middleware.GetCorrelationID(c)).Msg(fallbackMessage)
	return utils.SendError(c, fiber.StatusInternalServerError, fallbackMessage)
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) zerolog.Logger {
	if c == nil {
		return base
	}
	if correlation := middleware.GetCorrelationID(c); correlation != "" {
		return base.With().Str("correlation_id", correlation).Logger()
	}
	return base
}
