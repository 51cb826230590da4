package service

import (
	"context"
	"errors"
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
	"github.com/edusync/edusync-api/internal/observability"
	"github.com/edusync/edusync-api/internal/repository"
)

// AuthService orchestrates registration (including locked invite consumption),
// login and forced password changes.
type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (dto.RegisterResponse, error)
	Login(ctx context.Context, username, password string) (dto.LoginResponse, error)
	SetPassword(ctx context.Context, userID uint, newPassword string) error
}

type authService struct {
	db             *gorm.DB
	users          repository.UserRepository
	students       repository.StudentRepository
	teachers       repository.TeacherRepository
	teacherStudent repository.TeacherStudentRepository
	policy         PasswordPolicy
	sessions       SessionService
	invites        InviteService
	logger         zerolog.Logger
	tracer         trace.Tracer
}

// NewAuthService constructs the authentication service.
func NewAuthService(
	db *gorm.DB,
	users repository.UserRepository,
	students repository.StudentRepository,
	teachers repository.TeacherRepository,
	teacherStudent repository.TeacherStudentRepository,
	policy PasswordPolicy,
	sessions SessionService,
	invites InviteService,
	logger zerolog.Logger,
) AuthService {
	return &authService{
		db:             db,
		users:          users,
		students:       students,
		teachers:       teachers,
		teacherStudent: teacherStudent,
		policy:         policy,
		sessions:       sessions,
		invites:        invites,
		logger:         logger.With().Str("component", "auth_service").Logger(),
		tracer:         otel.Tracer("github.com/edusync/edusync-api/internal/service/auth"),
	}
}

// Register creates a new account. When an invite token is present the whole
// flow runs in one transaction: lock the invite, create the user and student
// profile, bind the teacher relationship, mark the invite used. Any failure
// rolls everything back, leaving the invite PENDING for a legitimate retry.
func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (dto.RegisterResponse, error) {
	ctx, span := s.tracer.Start(ctx, "auth.register")
	defer span.End()

	username := strings.TrimSpace(req.Username)
	if username == "" || strings.TrimSpace(req.Password) == "" {
		return dto.RegisterResponse{}, NewValidationError("Username and password are required.")
	}
	if err := s.policy.ValidateOrError(username, req.Password); err != nil {
		return dto.RegisterResponse{}, err
	}

	role := req.Role
	if role != models.RoleStudent && role != models.RoleTeacher {
		return dto.RegisterResponse{}, NewValidationError("Role is required (STUDENT or TEACHER).")
	}

	inviteToken := strings.TrimSpace(req.InviteToken)
	if inviteToken != "" && role != models.RoleStudent {
		return dto.RegisterResponse{}, ErrInviteRoleMismatch
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		return dto.RegisterResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	var response dto.RegisterResponse

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txUsers := s.users.WithTx(tx)

		taken, err := txUsers.ExistsByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("failed to check username: %w", err)
		}
		if taken {
			return ErrUsernameTaken
		}

		var invite *models.StudentInvite
		if inviteToken != "" {
			locked, err := s.invites.LockPendingForRegistration(ctx, tx, inviteToken)
			if err != nil {
				return err
			}
			invite = &locked
		}

		user := models.User{
			Username:     username,
			PasswordHash: string(passwordHash),
			Role:         role,
			Status:       models.UserStatusActive,
		}
		if err := txUsers.Create(ctx, &user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		response = dto.RegisterResponse{UserID: user.ID, Role: role}

		switch role {
		case models.RoleStudent:
			studentID, err := s.createStudent(ctx, tx, user, req, invite)
			if err != nil {
				return err
			}
			response.StudentID = &studentID

			if invite != nil {
				if err := s.invites.MarkUsed(ctx, tx, invite, user.ID); err != nil {
					return err
				}
			}
		case models.RoleTeacher:
			displayName := strings.TrimSpace(req.DisplayName)
			if displayName == "" {
				displayName = username
			}

			teacher := models.Teacher{UserID: user.ID, Name: displayName}
			if err := s.teachers.WithTx(tx).Create(ctx, &teacher); err != nil {
				return fmt.Errorf("failed to create teacher profile: %w", err)
			}
			response.TeacherID = &teacher.ID
		}

		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, "registration failed")
		return dto.RegisterResponse{}, err
	}

	s.logger.Info().
		Uint("user_id", response.UserID).
		Str("role", string(role)).
		Bool("via_invite", inviteToken != "").
		Msg("account registered")

	return response, nil
}

func (s *authService) createStudent(ctx context.Context, tx *gorm.DB, user models.User, req dto.RegisterRequest, invite *models.StudentInvite) (uint, error) {
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if firstName == "" || lastName == "" {
		return 0, NewValidationError("First name and last name are required for students.")
	}

	student := models.Student{
		UserID:        user.ID,
		FirstName:     firstName,
		LastName:      lastName,
		PreferredName: strings.TrimSpace(req.PreferredName),
	}
	if invite != nil {
		student.InvitedTeacherID = &invite.TeacherID
	}

	if err := s.students.WithTx(tx).Create(ctx, &student); err != nil {
		return 0, fmt.Errorf("failed to create student profile: %w", err)
	}

	if invite != nil {
		txRelations := s.teacherStudent.WithTx(tx)
		active, err := txRelations.ExistsActive(ctx, invite.TeacherID, student.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to check teacher-student relation: %w", err)
		}
		if !active {
			relation := models.TeacherStudent{
				TeacherID:  invite.TeacherID,
				StudentID:  student.ID,
				Status:     models.TeacherStudentActive,
				Note:       "Created by student invite registration",
				AssignedAt: time.Now(),
			}
			if err := txRelations.Create(ctx, &relation); err != nil {
				return 0, fmt.Errorf("failed to create teacher-student relation: %w", err)
			}
		}
	}

	return student.ID, nil
}

// Login verifies credentials and issues a fresh session. Unknown usernames and
// wrong passwords are reported identically so the response does not leak which
// accounts exist.
func (s *authService) Login(ctx context.Context, username, password string) (dto.LoginResponse, error) {
	ctx, span := s.tracer.Start(ctx, "auth.login")
	defer span.End()

	trimmed := strings.TrimSpace(username)
	if trimmed == "" || password == "" {
		observability.Logins().WithLabelValues("invalid").Inc()
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, trimmed)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.Logins().WithLabelValues("invalid").Inc()
			return dto.LoginResponse{}, ErrInvalidCredentials
		}
		span.RecordError(err)
		return dto.LoginResponse{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		observability.Logins().WithLabelValues("invalid").Inc()
		return dto.LoginResponse{}, ErrInvalidCredentials
	}
	if user.IsArchived() {
		observability.Logins().WithLabelValues("archived").Inc()
		return dto.LoginResponse{}, ErrAccountArchived
	}

	var studentID, teacherID *uint
	switch user.Role {
	case models.RoleStudent:
		student, err := s.students.FindByUserID(ctx, user.ID)
		if err != nil {
			span.RecordError(err)
			return dto.LoginResponse{}, fmt.Errorf("student profile missing for user %d: %w", user.ID, err)
		}
		studentID = &student.ID
	case models.RoleTeacher, models.RoleAdmin:
		teacher, err := s.teachers.FindByUserID(ctx, user.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.LoginResponse{}, ErrTeacherBindingRequired
			}
			span.RecordError(err)
			return dto.LoginResponse{}, fmt.Errorf("failed to resolve teacher profile: %w", err)
		}
		teacherID = &teacher.ID
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.users.Save(ctx, &user); err != nil {
		span.RecordError(err)
		return dto.LoginResponse{}, fmt.Errorf("failed to record login time: %w", err)
	}

	issued, err := s.sessions.Issue(ctx, user)
	if err != nil {
		span.RecordError(err)
		return dto.LoginResponse{}, err
	}

	observability.Logins().WithLabelValues("success").Inc()

	return dto.LoginResponse{
		UserID:             user.ID,
		Role:               user.Role,
		StudentID:          studentID,
		TeacherID:          teacherID,
		MustChangePassword: user.MustChangePassword,
		AccessToken:        issued.AccessToken,
		TokenType:          issued.TokenType,
		TokenExpiresAt:     issued.ExpiresAt.Format(time.RFC3339),
	}, nil
}

// SetPassword replaces the user's password and clears the must-change flag.
func (s *authService) SetPassword(ctx context.Context, userID uint, newPassword string) error {
	ctx, span := s.tracer.Start(ctx, "auth.set_password")
	defer span.End()

	if strings.TrimSpace(newPassword) == "" {
		return NewValidationError("New password is required.")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewValidationError("User not found.")
		}
		span.RecordError(err)
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.policy.ValidateOrError(user.Username, newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = string(hash)
	user.MustChangePassword = false
	if err := s.users.Save(ctx, &user); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save password: %w", err)
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("password updated")

	return nil
}
