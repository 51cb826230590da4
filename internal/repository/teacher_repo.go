package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/edusync/edusync-api/internal/models"
)

// TeacherRepository provides access to teacher profiles.
type TeacherRepository interface {
	WithTx(tx *gorm.DB) TeacherRepository
	FindByID(ctx context.Context, id uint) (models.Teacher, error)
	FindByUserID(ctx context.Context, userID uint) (models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
}

type teacherRepository struct {
	db *gorm.DB
}

// NewTeacherRepository constructs a teacher repository.
func NewTeacherRepository(db *gorm.DB) TeacherRepository {
	return &teacherRepository{db: db}
}

func (r *teacherRepository) WithTx(tx *gorm.DB) TeacherRepository {
	return &teacherRepository{db: tx}
}

func (r *teacherRepository) FindByID(ctx context.Context, id uint) (models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.WithContext(ctx).First(&teacher, id).Error; err != nil {
		return models.Teacher{}, err
	}

	return teacher, nil
}

func (r *teacherRepository) FindByUserID(ctx context.Context, userID uint) (models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&teacher).Error; err != nil {
		return models.Teacher{}, err
	}

	return teacher, nil
}

func (r *teacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	return r.db.WithContext(ctx).Create(teacher).Error
}

// TeacherProvisionAuditRepository provides access to the teacher provisioning
// audit trail.
type TeacherProvisionAuditRepository interface {
	WithTx(tx *gorm.DB) TeacherProvisionAuditRepository
	Create(ctx context.Context, entry *models.TeacherProvisionAudit) error
	ListByTeacher(ctx context.Context, teacherID uint) ([]models.TeacherProvisionAudit, error)
}

type teacherProvisionAuditRepository struct {
	db *gorm.DB
}

// NewTeacherProvisionAuditRepository constructs a provisioning audit repository.
func NewTeacherProvisionAuditRepository(db *gorm.DB) TeacherProvisionAuditRepository {
	return &teacherProvisionAuditRepository{db: db}
}

func (r *teacherProvisionAuditRepository) WithTx(tx *gorm.DB) TeacherProvisionAuditRepository {
	return &teacherProvisionAuditRepository{db: tx}
}

func (r *teacherProvisionAuditRepository) Create(ctx context.Context, entry *models.TeacherProvisionAudit) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *teacherProvisionAuditRepository) ListByTeacher(ctx context.Context, teacherID uint) ([]models.TeacherProvisionAudit, error) {
	var entries []models.TeacherProvisionAudit
	err := r.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("id").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// TeacherStudentRepository provides access to teacher-student relationships.
type TeacherStudentRepository interface {
	WithTx(tx *gorm.DB) TeacherStudentRepository
	ExistsActive(ctx context.Context, teacherID, studentID uint) (bool, error)
	Create(ctx context.Context, relation *models.TeacherStudent) error
}

type teacherStudentRepository struct {
	db *gorm.DB
}

// NewTeacherStudentRepository constructs a teacher-student relationship repository.
func NewTeacherStudentRepository(db *gorm.DB) TeacherStudentRepository {
	return &teacherStudentRepository{db: db}
}

func (r *teacherStudentRepository) WithTx(tx *gorm.DB) TeacherStudentRepository {
	return &teacherStudentRepository{db: tx}
}

func (r *teacherStudentRepository) ExistsActive(ctx context.Context, teacherID, studentID uint) (bool, error) {
	var relation models.TeacherStudent
	err := r.db.WithContext(ctx).
		Select("id").
		Where("teacher_id = ? AND student_id = ? AND status = ?", teacherID, studentID, models.TeacherStudentActive).
		First(&relation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (r *teacherStudentRepository) Create(ctx context.Context, relation *models.TeacherStudent) error {
	return r.db.WithContext(ctx).Create(relation).Error
}
