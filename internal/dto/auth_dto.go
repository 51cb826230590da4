package dto

import "github.com/edusync/edusync-api/internal/models"

// LoginRequest carries credentials for the login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned after a successful login. TokenExpiresAt is an
// RFC 3339 timestamp.
type LoginResponse struct {
	UserID             uint            `json:"userId"`
	Role               models.UserRole `json:"role"`
	StudentID          *uint           `json:"studentId,omitempty"`
	TeacherID          *uint           `json:"teacherId,omitempty"`
	MustChangePassword bool            `json:"mustChangePassword"`
	AccessToken        string          `json:"accessToken"`
	TokenType          string          `json:"tokenType"`
	TokenExpiresAt     string          `json:"tokenExpiresAt"`
}

// RegisterRequest carries a self-registration payload. The invite token is
// optional and only valid for STUDENT registrations.
type RegisterRequest struct {
	Username string          `json:"username" validate:"required"`
	Password string          `json:"password" validate:"required"`
	Role     models.UserRole `json:"role" validate:"required"`

	// Student profile fields.
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	PreferredName string `json:"preferredName"`

	// Teacher profile fields.
	DisplayName string `json:"displayName"`

	InviteToken string `json:"inviteToken"`
}

// RegisterResponse reports the identifiers created during registration.
type RegisterResponse struct {
	UserID    uint            `json:"userId"`
	Role      models.UserRole `json:"role"`
	StudentID *uint           `json:"studentId,omitempty"`
	TeacherID *uint           `json:"teacherId,omitempty"`
}

// SetPasswordRequest carries the forced password-change payload.
type SetPasswordRequest struct {
	UserID      *uint  `json:"userId"`
	NewPassword string `json:"newPassword" validate:"required"`
}
