package dto

// CreateInviteRequest carries the invite-creation payload. TeacherID is only
// honoured for ADMIN operators; teachers always mint invites against their own
// profile. ExpiresInHours must be within 1..720 when provided.
type CreateInviteRequest struct {
	TeacherID      *uint  `json:"teacherId"`
	ExpiresInHours *int64 `json:"expiresInHours"`
}

// CreateInviteResponse returns the raw invite token exactly once, together
// with a shareable URL for out-of-band distribution.
type CreateInviteResponse struct {
	InviteToken string `json:"inviteToken"`
	InviteURL   string `json:"inviteUrl"`
	ExpiresAt   string `json:"expiresAt"`
}

// InvitePreviewResponse reports invite validity without consuming it. Unknown
// tokens produce a synthetic invalid result rather than an error.
type InvitePreviewResponse struct {
	Valid       bool    `json:"valid"`
	Status      string  `json:"status"`
	TeacherName *string `json:"teacherName,omitempty"`
	ExpiresAt   *string `json:"expiresAt,omitempty"`
}
