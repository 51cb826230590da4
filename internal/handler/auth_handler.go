package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edusync/edusync-api/internal/dto"
	"github.com/edusync/edusync-api/internal/service"
	"github.com/edusync/edusync-api/internal/utils"
)

// AuthHandler serves login, registration and session lifecycle endpoints.
type AuthHandler struct {
	auth     service.AuthService
	sessions service.SessionService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewAuthHandler constructs the auth handler.
func NewAuthHandler(auth service.AuthService, sessions service.SessionService, validate *validator.Validate, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		sessions: sessions,
		validate: validate,
		logger:   logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register wires auth routes. The loginLimiter guards the credential-guessing
// surface; pass nil to disable rate limiting (tests).
func (h *AuthHandler) Register(router fiber.Router, loginLimiter fiber.Handler) {
	if loginLimiter != nil {
		router.Post("/login", loginLimiter, h.login)
	} else {
		router.Post("/login", h.login)
	}
	router.Post("/register", h.register)
	router.Post("/logout", h.logout)
	router.Post("/set-password", h.setPassword)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validate.Struct(payload); err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, service.CodeValidationFailed, "username and password are required", nil)
	}

	response, err := h.auth.Login(c.Context(), payload.Username, payload.Password)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "login failed")
	}

	return utils.SendSuccess(c, "login successful", response)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.auth.Register(c.Context(), payload)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "registration failed")
	}

	return utils.SendSuccess(c, "account registered", response)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	if err := h.sessions.RevokeCurrent(c.Context(), c.Get(fiber.HeaderAuthorization)); err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "logout failed")
	}

	return utils.SendSuccess(c, "logged out", nil)
}

// setPassword is only available while the account is flagged for a forced
// password change; it is the completion step of that flow.
func (h *AuthHandler) setPassword(c *fiber.Ctx) error {
	currentUser, err := h.sessions.RequireAuthenticatedUser(c.Context(), c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "authentication failed")
	}

	var payload dto.SetPasswordRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if payload.UserID != nil && *payload.UserID != currentUser.ID {
		return utils.SendErrorCode(c, fiber.StatusForbidden, service.CodeForbidden, "Cannot set password for another user.", nil)
	}
	if !currentUser.MustChangePassword {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, service.CodeValidationFailed,
			"set-password is only available when password change is required", nil)
	}

	if err := h.auth.SetPassword(c.Context(), currentUser.ID, payload.NewPassword); err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to set password")
	}

	return utils.SendSuccess(c, "password set successfully", nil)
}
