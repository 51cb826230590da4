package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/edusync/edusync-api/internal/models"
	"github.com/edusync/edusync-api/internal/repository"
)

// BackfillResult summarises one teacher-binding backfill run.
type BackfillResult struct {
	BeforeMissing int `json:"beforeMissing"`
	Inserted      int `json:"inserted"`
	AfterMissing  int `json:"afterMissing"`
}

// BackfillService repairs management accounts that predate the teacher
// profile requirement by inserting the missing Teacher rows.
type BackfillService interface {
	BackfillTeacherBindings(ctx context.Context) (BackfillResult, error)
}

type backfillService struct {
	users    repository.UserRepository
	teachers repository.TeacherRepository
	logger   zerolog.Logger
}

// NewBackfillService constructs the teacher-binding backfill service.
func NewBackfillService(users repository.UserRepository, teachers repository.TeacherRepository, logger zerolog.Logger) BackfillService {
	return &backfillService{
		users:    users,
		teachers: teachers,
		logger:   logger.With().Str("component", "backfill_service").Logger(),
	}
}

// BackfillTeacherBindings inserts a Teacher row, named after the username, for
// every ADMIN or TEACHER user without one.
func (s *backfillService) BackfillTeacherBindings(ctx context.Context) (BackfillResult, error) {
	managementRoles := []models.UserRole{models.RoleAdmin, models.RoleTeacher}

	users, err := s.users.ListByRoles(ctx, managementRoles)
	if err != nil {
		return BackfillResult{}, fmt.Errorf("failed to list management users: %w", err)
	}

	var result BackfillResult
	for _, user := range users {
		_, err := s.teachers.FindByUserID(ctx, user.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return BackfillResult{}, fmt.Errorf("failed to check teacher binding: %w", err)
		}

		result.BeforeMissing++
		teacher := models.Teacher{UserID: user.ID, Name: user.Username}
		if err := s.teachers.Create(ctx, &teacher); err != nil {
			return BackfillResult{}, fmt.Errorf("failed to create teacher binding: %w", err)
		}
		result.Inserted++
	}

	for _, user := range users {
		if _, err := s.teachers.FindByUserID(ctx, user.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result.AfterMissing++
				continue
			}
			return BackfillResult{}, fmt.Errorf("failed to verify teacher binding: %w", err)
		}
	}

	s.logger.Info().
		Int("before_missing", result.BeforeMissing).
		Int("inserted", result.Inserted).
		Int("after_missing", result.AfterMissing).
		Msg("teacher binding backfill completed")

	return result, nil
}
