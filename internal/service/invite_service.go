package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/edusync/edusync-api/internal/dto"
	"github.com/edusync/edusync-api/internal/models"
	"github.com/edusync/edusync-api/internal/observability"
	"github.com/edusync/edusync-api/internal/repository"
	"github.com/edusync/edusync-api/pkg/token"
)

// tokenGenerationAttempts bounds the unique-token retry loop. Collisions in a
// 256-bit token space are cryptographically negligible, so hitting the bound
// indicates a broken random source and is treated as fatal.
const tokenGenerationAttempts = 20

// InviteConfig carries the invite lifecycle tuning values.
type InviteConfig struct {
	DefaultTTLHours int64
	MaxTTLHours     int64
	PathPrefix      string
}

// InviteService manages the student invite lifecycle: creation, preview and
// the exactly-once locked consumption used during registration.
type InviteService interface {
	Create(ctx context.Context, operator models.User, requestedTeacherID *uint, requestedTTLHours *int64) (dto.CreateInviteResponse, error)
	Preview(ctx context.Context, tokenRaw string) (dto.InvitePreviewResponse, error)
	LockPendingForRegistration(ctx context.Context, tx *gorm.DB, tokenRaw string) (models.StudentInvite, error)
	MarkUsed(ctx context.Context, tx *gorm.DB, invite *models.StudentInvite, usedUserID uint) error
	Revoke(ctx context.Context, operator models.User, inviteID uint) error
}

type inviteService struct {
	invites  repository.InviteRepository
	teachers repository.TeacherRepository
	cfg      InviteConfig
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewInviteService constructs an invite lifecycle service.
func NewInviteService(invites repository.InviteRepository, teachers repository.TeacherRepository, cfg InviteConfig, logger zerolog.Logger) InviteService {
	if cfg.DefaultTTLHours <= 0 {
		cfg.DefaultTTLHours = 72
	}
	if cfg.MaxTTLHours <= 0 {
		cfg.MaxTTLHours = 720
	}
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = "/register?inviteToken="
	}

	return &inviteService{
		invites:  invites,
		teachers: teachers,
		cfg:      cfg,
		logger:   logger.With().Str("component", "invite_service").Logger(),
		tracer:   otel.Tracer("github.com/edusync/edusync-api/internal/service/invite"),
	}
}

func (s *inviteService) Create(ctx context.Context, operator models.User, requestedTeacherID *uint, requestedTTLHours *int64) (dto.CreateInviteResponse, error) {
	ctx, span := s.tracer.Start(ctx, "invite.create")
	defer span.End()

	teacher, err := s.resolveTeacher(ctx, operator, requestedTeacherID)
	if err != nil {
		span.SetStatus(codes.Error, "teacher resolution failed")
		return dto.CreateInviteResponse{}, err
	}

	ttlHours := s.cfg.DefaultTTLHours
	if requestedTTLHours != nil {
		ttlHours = *requestedTTLHours
	}
	if ttlHours <= 0 || ttlHours > s.cfg.MaxTTLHours {
		return dto.CreateInviteResponse{}, NewValidationError(
			fmt.Sprintf("expiresInHours must be between 1 and %d", s.cfg.MaxTTLHours))
	}

	raw, err := s.generateUniqueToken(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token generation failed")
		return dto.CreateInviteResponse{}, err
	}

	expiresAt := time.Now().Add(time.Duration(ttlHours) * time.Hour)
	invite := models.StudentInvite{
		TeacherID: teacher.ID,
		Token:     raw,
		Status:    models.InviteStatusPending,
		ExpiresAt: expiresAt,
	}

	if err := s.invites.Create(ctx, &invite); err != nil {
		span.RecordError(err)
		return dto.CreateInviteResponse{}, fmt.Errorf("failed to persist invite: %w", err)
	}

	observability.InvitesCreated().Inc()
	span.SetAttributes(attribute.Int64("invite.ttl_hours", ttlHours))
	s.logger.Info().
		Uint("teacher_id", teacher.ID).
		Uint("operator_id", operator.ID).
		Time("expires_at", expiresAt).
		Msg("student invite created")

	return dto.CreateInviteResponse{
		InviteToken: raw,
		InviteURL:   s.cfg.PathPrefix + raw,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

// Preview reports invite validity without consuming it. This is a
// side-effecting read: a PENDING invite whose TTL has elapsed is transitioned
// to EXPIRED before reporting, so "valid" is never true past the wall clock.
func (s *inviteService) Preview(ctx context.Context, tokenRaw string) (dto.InvitePreviewResponse, error) {
	ctx, span := s.tracer.Start(ctx, "invite.preview")
	defer span.End()

	normalized := strings.TrimSpace(tokenRaw)
	if normalized == "" {
		return invalidPreview(), nil
	}

	invite, err := s.invites.FindByToken(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalidPreview(), nil
		}
		span.RecordError(err)
		return dto.InvitePreviewResponse{}, fmt.Errorf("failed to look up invite: %w", err)
	}

	if err := s.expireIfNeeded(ctx, s.invites, &invite); err != nil {
		span.RecordError(err)
		return dto.InvitePreviewResponse{}, err
	}

	teacherName := invite.Teacher.Name
	expiresAt := invite.ExpiresAt.Format(time.RFC3339)

	return dto.InvitePreviewResponse{
		Valid:       invite.Status == models.InviteStatusPending,
		Status:      string(invite.Status),
		TeacherName: &teacherName,
		ExpiresAt:   &expiresAt,
	}, nil
}

// LockPendingForRegistration acquires an exclusive row lock on the invite for
// the duration of the supplied transaction. It is the only entry point that
// may lead to consumption and must share its transaction with MarkUsed so a
// rollback of registration also releases the invite untouched.
func (s *inviteService) LockPendingForRegistration(ctx context.Context, tx *gorm.DB, tokenRaw string) (models.StudentInvite, error) {
	ctx, span := s.tracer.Start(ctx, "invite.lock_for_registration")
	defer span.End()

	normalized := strings.TrimSpace(tokenRaw)
	if normalized == "" {
		observability.InviteConsumptions().WithLabelValues("invalid").Inc()
		return models.StudentInvite{}, ErrInviteInvalid
	}

	txInvites := s.invites.WithTx(tx)
	invite, err := txInvites.FindByTokenForUpdate(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.InviteConsumptions().WithLabelValues("not_found").Inc()
			return models.StudentInvite{}, ErrInviteNotFound
		}
		span.RecordError(err)
		return models.StudentInvite{}, fmt.Errorf("failed to lock invite: %w", err)
	}

	if err := s.expireIfNeeded(ctx, txInvites, &invite); err != nil {
		span.RecordError(err)
		return models.StudentInvite{}, err
	}

	switch invite.Status {
	case models.InviteStatusPending:
		return invite, nil
	case models.InviteStatusExpired:
		observability.InviteConsumptions().WithLabelValues("expired").Inc()
		return models.StudentInvite{}, ErrInviteExpired
	case models.InviteStatusUsed:
		observability.InviteConsumptions().WithLabelValues("used").Inc()
		return models.StudentInvite{}, ErrInviteUsed
	default:
		observability.InviteConsumptions().WithLabelValues("invalid").Inc()
		return models.StudentInvite{}, ErrInviteInvalid
	}
}

// MarkUsed commits the PENDING -> USED transition. It must run in the same
// transaction that acquired the lock and created the registered user.
func (s *inviteService) MarkUsed(ctx context.Context, tx *gorm.DB, invite *models.StudentInvite, usedUserID uint) error {
	now := time.Now()
	invite.Status = models.InviteStatusUsed
	invite.UsedAt = &now
	invite.UsedUserID = &usedUserID

	if err := s.invites.WithTx(tx).Save(ctx, invite); err != nil {
		return fmt.Errorf("failed to mark invite used: %w", err)
	}

	observability.InviteConsumptions().WithLabelValues("consumed").Inc()
	s.logger.Info().Uint("invite_id", invite.ID).Uint("used_user_id", usedUserID).Msg("invite consumed")

	return nil
}

// Revoke transitions a PENDING invite to REVOKED. Teachers may only revoke
// their own invites; admins may revoke any.
func (s *inviteService) Revoke(ctx context.Context, operator models.User, inviteID uint) error {
	ctx, span := s.tracer.Start(ctx, "invite.revoke")
	defer span.End()

	invite, err := s.invites.FindByID(ctx, inviteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInviteNotFound
		}
		span.RecordError(err)
		return fmt.Errorf("failed to look up invite: %w", err)
	}

	if operator.Role != models.RoleAdmin {
		teacher, err := s.teachers.FindByUserID(ctx, operator.ID)
		if err != nil || teacher.ID != invite.TeacherID {
			return ErrForbidden
		}
	}

	if err := s.expireIfNeeded(ctx, s.invites, &invite); err != nil {
		span.RecordError(err)
		return err
	}
	if invite.Status != models.InviteStatusPending {
		return ErrInviteInvalid
	}

	invite.Status = models.InviteStatusRevoked
	if err := s.invites.Save(ctx, &invite); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to revoke invite: %w", err)
	}

	s.logger.Info().Uint("invite_id", invite.ID).Uint("operator_id", operator.ID).Msg("invite revoked")

	return nil
}

// resolveTeacher determines which teacher owns a new invite. Teachers always
// mint against their own profile; any requested teacher id is ignored so a
// teacher cannot create invites on a colleague's behalf. Admins may target any
// teacher, defaulting to their own binding.
func (s *inviteService) resolveTeacher(ctx context.Context, operator models.User, requestedTeacherID *uint) (models.Teacher, error) {
	switch operator.Role {
	case models.RoleTeacher:
		teacher, err := s.teachers.FindByUserID(ctx, operator.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.Teacher{}, ErrTeacherBindingRequired
			}
			return models.Teacher{}, fmt.Errorf("failed to resolve teacher: %w", err)
		}
		return teacher, nil
	case models.RoleAdmin:
		if requestedTeacherID == nil {
			teacher, err := s.teachers.FindByUserID(ctx, operator.ID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return models.Teacher{}, ErrTeacherBindingRequired
				}
				return models.Teacher{}, fmt.Errorf("failed to resolve teacher: %w", err)
			}
			return teacher, nil
		}
		teacher, err := s.teachers.FindByID(ctx, *requestedTeacherID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.Teacher{}, NewValidationError(fmt.Sprintf("Teacher not found: %d", *requestedTeacherID))
			}
			return models.Teacher{}, fmt.Errorf("failed to resolve teacher: %w", err)
		}
		return teacher, nil
	default:
		return models.Teacher{}, ErrForbidden
	}
}

// expireIfNeeded lazily transitions a PENDING invite past its TTL to EXPIRED.
// When called under the registration lock the write shares the caller's
// transaction through the supplied repository.
func (s *inviteService) expireIfNeeded(ctx context.Context, invites repository.InviteRepository, invite *models.StudentInvite) error {
	if invite.Status != models.InviteStatusPending || !invite.ExpiredAt(time.Now()) {
		return nil
	}

	invite.Status = models.InviteStatusExpired
	if err := invites.Save(ctx, invite); err != nil {
		return fmt.Errorf("failed to expire invite: %w", err)
	}

	return nil
}

func (s *inviteService) generateUniqueToken(ctx context.Context) (string, error) {
	for attempt := 0; attempt < tokenGenerationAttempts; attempt++ {
		raw, err := token.Generate()
		if err != nil {
			return "", err
		}

		exists, err := s.invites.ExistsByToken(ctx, raw)
		if err != nil {
			return "", fmt.Errorf("failed to check token uniqueness: %w", err)
		}
		if !exists {
			return raw, nil
		}
	}

	return "", fmt.Errorf("unable to generate unique invite token after %d attempts", tokenGenerationAttempts)
}

func invalidPreview() dto.InvitePreviewResponse {
	return dto.InvitePreviewResponse{Valid: false, Status: "INVALID"}
}
