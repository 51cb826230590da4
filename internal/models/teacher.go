package models

import "time"

// Teacher is the management profile bound one-to-one to a TEACHER or ADMIN user.
type Teacher struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User      User      `json:"-"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TeacherProvisionAudit records an admin provisioning a teacher account with a
// temporary password. Operator and target identity are denormalised so the
// trail stays readable even if accounts are renamed later.
type TeacherProvisionAudit struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	TeacherID        uint      `gorm:"index;not null" json:"teacher_id"`
	TargetUserID     uint      `gorm:"not null" json:"target_user_id"`
	TargetUsername   string    `gorm:"size:80;not null" json:"target_username"`
	OperatorUserID   uint      `gorm:"index;not null" json:"operator_user_id"`
	OperatorUsername string    `gorm:"size:80;not null" json:"operator_username"`
	ProvisionedAt    time.Time `gorm:"not null" json:"provisioned_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TeacherStudentStatus enumerates the lifecycle of a teacher-student relationship.
type TeacherStudentStatus string

// Supported relationship statuses.
const (
	TeacherStudentActive   TeacherStudentStatus = "ACTIVE"
	TeacherStudentInactive TeacherStudentStatus = "INACTIVE"
)

// TeacherStudent links a teacher to one of their students. Created as a side
// effect of invite-based registration or by administrative assignment.
type TeacherStudent struct {
	ID         uint                 `gorm:"primaryKey" json:"id"`
	TeacherID  uint                 `gorm:"index;not null" json:"teacher_id"`
	Teacher    Teacher              `json:"-"`
	StudentID  uint                 `gorm:"index;not null" json:"student_id"`
	Student    Student              `json:"-"`
	Status     TeacherStudentStatus `gorm:"size:20;index;not null;default:ACTIVE" json:"status"`
	Note       string               `gorm:"size:500" json:"note"`
	AssignedAt time.Time            `gorm:"not null" json:"assigned_at"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}
