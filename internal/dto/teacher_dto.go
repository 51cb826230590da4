package dto

// ProvisionTeacherRequest carries the admin payload for creating a teacher
// account with a generated temporary password.
type ProvisionTeacherRequest struct {
	Username    string `json:"username" validate:"required"`
	DisplayName string `json:"displayName" validate:"required"`
}

// ProvisionTeacherResponse returns the temporary password exactly once; it is
// never persisted in plaintext and cannot be recovered afterwards.
type ProvisionTeacherResponse struct {
	Username          string `json:"username"`
	TemporaryPassword string `json:"tempPassword"`
}
