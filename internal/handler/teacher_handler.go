package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edusync/edusync-api/internal/dto"
	"github.com/edusync/edusync-api/internal/service"
	"github.com/edusync/edusync-api/internal/utils"
)

// TeacherHandler serves admin-only teacher account provisioning.
type TeacherHandler struct {
	provisions service.ProvisionService
	access     service.AccessService
	logger     zerolog.Logger
}

// NewTeacherHandler constructs the teacher provisioning handler.
func NewTeacherHandler(provisions service.ProvisionService, access service.AccessService, logger zerolog.Logger) *TeacherHandler {
	return &TeacherHandler{
		provisions: provisions,
		access:     access,
		logger:     logger.With().Str("component", "teacher_handler").Logger(),
	}
}

// Register wires the admin-only provisioning route.
func (h *TeacherHandler) Register(router fiber.Router) {
	router.Post("", h.provision)
}

func (h *TeacherHandler) provision(c *fiber.Ctx) error {
	operator, err := h.access.RequireAdminAccess(c.Context(), c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "access check failed")
	}

	var payload dto.ProvisionTeacherRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.provisions.ProvisionTeacher(c.Context(), operator, payload)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to provision teacher")
	}

	return utils.SendSuccess(c, "teacher provisioned", response)
}
