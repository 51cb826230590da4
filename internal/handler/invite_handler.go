package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edusync/edusync-api/internal/dto"
	"github.com/edusync/edusync-api/internal/service"
	"github.com/edusync/edusync-api/internal/utils"
)

// InviteHandler serves invite creation, preview and revocation.
type InviteHandler struct {
	invites service.InviteService
	access  service.AccessService
	logger  zerolog.Logger
}

// NewInviteHandler constructs the invite handler.
func NewInviteHandler(invites service.InviteService, access service.AccessService, logger zerolog.Logger) *InviteHandler {
	return &InviteHandler{
		invites: invites,
		access:  access,
		logger:  logger.With().Str("component", "invite_handler").Logger(),
	}
}

// RegisterManagement wires the teacher/admin invite routes.
func (h *InviteHandler) RegisterManagement(router fiber.Router) {
	router.Post("", h.create)
	router.Delete("/:id", h.revoke)
}

// RegisterPublic wires the unauthenticated preview route used by the
// registration page before an account exists.
func (h *InviteHandler) RegisterPublic(router fiber.Router) {
	router.Get("/:inviteToken", h.preview)
}

func (h *InviteHandler) create(c *fiber.Ctx) error {
	operator, err := h.access.RequireStudentManagementAccess(c.Context(), c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "access check failed")
	}

	// An empty body is allowed; every field has a default.
	var payload dto.CreateInviteRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	response, err := h.invites.Create(c.Context(), operator, payload.TeacherID, payload.ExpiresInHours)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to create invite")
	}

	return utils.SendSuccess(c, "invite created", response)
}

func (h *InviteHandler) preview(c *fiber.Ctx) error {
	response, err := h.invites.Preview(c.Context(), c.Params("inviteToken"))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to preview invite")
	}

	return utils.SendSuccess(c, "invite preview", response)
}

func (h *InviteHandler) revoke(c *fiber.Ctx) error {
	operator, err := h.access.RequireStudentManagementAccess(c.Context(), c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "access check failed")
	}

	inviteID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid invite id")
	}

	if err := h.invites.Revoke(c.Context(), operator, uint(inviteID)); err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to revoke invite")
	}

	return utils.SendSuccess(c, "invite revoked", nil)
}
