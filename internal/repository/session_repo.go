package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/edusync/edusync-api/internal/models"
)

// SessionRepository provides access to issued bearer sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.UserSession) error
	FindByTokenHash(ctx context.Context, tokenHash string) (models.UserSession, error)
	Save(ctx context.Context, session *models.UserSession) error
	ListActiveByUser(ctx context.Context, userID uint, now time.Time) ([]models.UserSession, error)
	RevokeAllActive(ctx context.Context, userID uint, revokedAt time.Time) (int64, error)
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository constructs a session repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.UserSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) FindByTokenHash(ctx context.Context, tokenHash string) (models.UserSession, error) {
	var session models.UserSession
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("token_hash = ?", tokenHash).
		First(&session).Error
	if err != nil {
		return models.UserSession{}, err
	}

	return session, nil
}

func (r *sessionRepository) Save(ctx context.Context, session *models.UserSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

func (r *sessionRepository) ListActiveByUser(ctx context.Context, userID uint, now time.Time) ([]models.UserSession, error) {
	var sessions []models.UserSession
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, now).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

// RevokeAllActive bulk-revokes every still-active session of a user. It only
// targets rows active when the update runs; a login racing with it may produce
// a session that survives, which is an accepted relaxation.
func (r *sessionRepository) RevokeAllActive(ctx context.Context, userID uint, revokedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.UserSession{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", revokedAt)

	return result.RowsAffected, result.Error
}
