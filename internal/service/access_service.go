package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/edusync/edusync-api/internal/models"
)

// AccessService gates management endpoints: it resolves the operator from the
// bearer credential and enforces the role and password-change preconditions.
type AccessService interface {
	RequireStudentManagementAccess(ctx context.Context, authorizationHeader string) (models.User, error)
	RequireAdminAccess(ctx context.Context, authorizationHeader string) (models.User, error)
}

type accessService struct {
	sessions SessionService
	logger   zerolog.Logger
}

// NewAccessService constructs the management access gate.
func NewAccessService(sessions SessionService, logger zerolog.Logger) AccessService {
	return &accessService{
		sessions: sessions,
		logger:   logger.With().Str("component", "access_service").Logger(),
	}
}

// RequireStudentManagementAccess admits TEACHER and ADMIN operators that have
// completed any forced password change.
func (s *accessService) RequireStudentManagementAccess(ctx context.Context, authorizationHeader string) (models.User, error) {
	operator, err := s.authenticate(ctx, authorizationHeader)
	if err != nil {
		return models.User{}, err
	}

	if operator.Role != models.RoleTeacher && operator.Role != models.RoleAdmin {
		return models.User{}, ErrForbidden
	}

	return operator, nil
}

// RequireAdminAccess admits ADMIN operators only.
func (s *accessService) RequireAdminAccess(ctx context.Context, authorizationHeader string) (models.User, error) {
	operator, err := s.authenticate(ctx, authorizationHeader)
	if err != nil {
		return models.User{}, err
	}

	if operator.Role != models.RoleAdmin {
		return models.User{}, ErrForbidden
	}

	return operator, nil
}

func (s *accessService) authenticate(ctx context.Context, authorizationHeader string) (models.User, error) {
	operator, err := s.sessions.RequireAuthenticatedUser(ctx, authorizationHeader)
	if err != nil {
		return models.User{}, err
	}

	if operator.MustChangePassword {
		return models.User{}, ErrMustChangePassword
	}

	return operator, nil
}
