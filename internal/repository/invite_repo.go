package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/edusync/edusync-api/internal/models"
)

// InviteRepository provides access to student invites.
type InviteRepository interface {
	WithTx(tx *gorm.DB) InviteRepository
	ExistsByToken(ctx context.Context, token string) (bool, error)
	FindByID(ctx context.Context, id uint) (models.StudentInvite, error)
	FindByToken(ctx context.Context, token string) (models.StudentInvite, error)
	FindByTokenForUpdate(ctx context.Context, token string) (models.StudentInvite, error)
	Create(ctx context.Context, invite *models.StudentInvite) error
	Save(ctx context.Context, invite *models.StudentInvite) error
}

type inviteRepository struct {
	db *gorm.DB
}

// NewInviteRepository constructs an invite repository.
func NewInviteRepository(db *gorm.DB) InviteRepository {
	return &inviteRepository{db: db}
}

func (r *inviteRepository) WithTx(tx *gorm.DB) InviteRepository {
	return &inviteRepository{db: tx}
}

func (r *inviteRepository) ExistsByToken(ctx context.Context, token string) (bool, error) {
	var invite models.StudentInvite
	err := r.db.WithContext(ctx).Select("id").Where("token = ?", token).First(&invite).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (r *inviteRepository) FindByID(ctx context.Context, id uint) (models.StudentInvite, error) {
	var invite models.StudentInvite
	if err := r.db.WithContext(ctx).Preload("Teacher").First(&invite, id).Error; err != nil {
		return models.StudentInvite{}, err
	}

	return invite, nil
}

func (r *inviteRepository) FindByToken(ctx context.Context, token string) (models.StudentInvite, error) {
	var invite models.StudentInvite
	err := r.db.WithContext(ctx).
		Preload("Teacher").
		Where("token = ?", token).
		First(&invite).Error
	if err != nil {
		return models.StudentInvite{}, err
	}

	return invite, nil
}

// FindByTokenForUpdate loads the invite under an exclusive row lock held until
// the enclosing transaction commits or rolls back. It must only be called on a
// repository bound to a transaction via WithTx. SQLite serializes writing
// transactions on its own, so the locking clause is applied on postgres only.
func (r *inviteRepository) FindByTokenForUpdate(ctx context.Context, token string) (models.StudentInvite, error) {
	query := r.db.WithContext(ctx).Where("token = ?", token)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var invite models.StudentInvite
	if err := query.First(&invite).Error; err != nil {
		return models.StudentInvite{}, err
	}

	// The teacher row is read after the lock is held; FOR UPDATE on a join
	// would lock the teacher row as well, which registration does not need.
	if err := r.db.WithContext(ctx).First(&invite.Teacher, invite.TeacherID).Error; err != nil {
		return models.StudentInvite{}, err
	}

	return invite, nil
}

func (r *inviteRepository) Create(ctx context.Context, invite *models.StudentInvite) error {
	return r.db.WithContext(ctx).Create(invite).Error
}

func (r *inviteRepository) Save(ctx context.Context, invite *models.StudentInvite) error {
	return r.db.WithContext(ctx).Save(invite).Error
}
