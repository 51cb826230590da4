package models

import "time"

// UserRole enumerates the account roles recognised by the platform.
type UserRole string

// Supported user roles.
const (
	RoleStudent UserRole = "STUDENT"
	RoleTeacher UserRole = "TEACHER"
	RoleAdmin   UserRole = "ADMIN"
)

// UserStatus enumerates account lifecycle states. Accounts are archived, never deleted.
type UserStatus string

// Supported account statuses.
const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusArchived UserStatus = "ARCHIVED"
)

// User is the identity root for every account in the system.
type User struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Username           string     `gorm:"size:80;uniqueIndex;not null" json:"username"`
	PasswordHash       string     `gorm:"size:200;not null" json:"-"`
	Role               UserRole   `gorm:"size:20;not null" json:"role"`
	Status             UserStatus `gorm:"size:20;not null;default:ACTIVE" json:"status"`
	StatusUpdatedAt    *time.Time `json:"status_updated_at,omitempty"`
	StatusUpdatedBy    *uint      `json:"status_updated_by,omitempty"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`
	MustChangePassword bool       `gorm:"not null;default:false" json:"must_change_password"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// IsArchived reports whether the account has been archived and may no longer authenticate.
func (u User) IsArchived() bool {
	return u.Status == UserStatusArchived
}

// UserSession backs one issued bearer token. The raw token is never stored;
// lookup happens through its fingerprint.
type UserSession struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	User      User       `json:"-"`
	TokenHash string     `gorm:"size:64;uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time  `gorm:"index;not null" json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ActiveAt reports whether the session may still authenticate requests at the
// given instant. A session exactly at its expiry is treated as expired.
func (s UserSession) ActiveAt(at time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(at)
}
