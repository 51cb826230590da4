package models

import "time"

// Student is the learner profile bound one-to-one to a STUDENT user.
type Student struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User             User      `json:"-"`
	FirstName        string    `gorm:"size:80;not null" json:"first_name"`
	LastName         string    `gorm:"size:80;not null" json:"last_name"`
	PreferredName    string    `gorm:"size:80" json:"preferred_name"`
	InvitedTeacherID *uint     `gorm:"index" json:"invited_teacher_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
