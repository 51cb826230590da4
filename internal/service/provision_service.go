package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/edusync/edusync-api/internal/dto"
	"github.com/edusync/edusync-api/internal/models"
	"github.com/edusync/edusync-api/internal/repository"
)

// ProvisionService creates teacher accounts on behalf of an admin. The new
// account receives a generated temporary password and must change it on first
// login before it can do anything else.
type ProvisionService interface {
	ProvisionTeacher(ctx context.Context, operator models.User, req dto.ProvisionTeacherRequest) (dto.ProvisionTeacherResponse, error)
}

type provisionService struct {
	db       *gorm.DB
	users    repository.UserRepository
	teachers repository.TeacherRepository
	audits   repository.TeacherProvisionAuditRepository
	policy   PasswordPolicy
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewProvisionService constructs the teacher provisioning service.
func NewProvisionService(
	db *gorm.DB,
	users repository.UserRepository,
	teachers repository.TeacherRepository,
	audits repository.TeacherProvisionAuditRepository,
	policy PasswordPolicy,
	logger zerolog.Logger,
) ProvisionService {
	return &provisionService{
		db:       db,
		users:    users,
		teachers: teachers,
		audits:   audits,
		policy:   policy,
		logger:   logger.With().Str("component", "provision_service").Logger(),
		tracer:   otel.Tracer("github.com/edusync/edusync-api/internal/service/provision"),
	}
}

// ProvisionTeacher creates the user, teacher profile and audit entry in one
// transaction. The temporary password is returned exactly once; only its
// bcrypt hash is stored.
func (s *provisionService) ProvisionTeacher(ctx context.Context, operator models.User, req dto.ProvisionTeacherRequest) (dto.ProvisionTeacherResponse, error) {
	ctx, span := s.tracer.Start(ctx, "provision.teacher")
	defer span.End()

	username := strings.TrimSpace(req.Username)
	displayName := strings.TrimSpace(req.DisplayName)

	switch {
	case username == "":
		return dto.ProvisionTeacherResponse{}, NewValidationError("Username is required.")
	case len(username) > 80:
		return dto.ProvisionTeacherResponse{}, NewValidationError("Username too long (max 80).")
	case displayName == "":
		return dto.ProvisionTeacherResponse{}, NewValidationError("Teacher name is required.")
	case len(displayName) > 120:
		return dto.ProvisionTeacherResponse{}, NewValidationError("Teacher name too long (max 120).")
	}

	tempPassword, err := s.policy.GenerateTemporaryPassword(username)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "temporary password generation failed")
		return dto.ProvisionTeacherResponse{}, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		return dto.ProvisionTeacherResponse{}, fmt.Errorf("failed to hash temporary password: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txUsers := s.users.WithTx(tx)

		taken, err := txUsers.ExistsByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("failed to check username: %w", err)
		}
		if taken {
			return ErrUsernameTaken
		}

		user := models.User{
			Username:           username,
			PasswordHash:       string(passwordHash),
			Role:               models.RoleTeacher,
			Status:             models.UserStatusActive,
			MustChangePassword: true,
		}
		if err := txUsers.Create(ctx, &user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		teacher := models.Teacher{UserID: user.ID, Name: displayName}
		if err := s.teachers.WithTx(tx).Create(ctx, &teacher); err != nil {
			return fmt.Errorf("failed to create teacher profile: %w", err)
		}

		audit := models.TeacherProvisionAudit{
			TeacherID:        teacher.ID,
			TargetUserID:     user.ID,
			TargetUsername:   user.Username,
			OperatorUserID:   operator.ID,
			OperatorUsername: operator.Username,
			ProvisionedAt:    time.Now(),
		}
		if err := s.audits.WithTx(tx).Create(ctx, &audit); err != nil {
			return fmt.Errorf("failed to record provisioning audit: %w", err)
		}

		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, "provisioning failed")
		return dto.ProvisionTeacherResponse{}, err
	}

	s.logger.Info().
		Str("username", username).
		Uint("operator_id", operator.ID).
		Msg("teacher account provisioned")

	return dto.ProvisionTeacherResponse{Username: username, TemporaryPassword: tempPassword}, nil
}
