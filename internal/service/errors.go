package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// DomainError is a recoverable failure surfaced to API clients with a stable
// machine-readable code. Handlers branch on the code, never on the message.
type DomainError struct {
	Code    string
	Status  int
	Message string
	Details []string
}

func (e *DomainError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Details, "; "))
}

// Is makes domain errors comparable by code so callers can use errors.Is
// against the package-level sentinels below.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// Stable error codes shared with API clients.
const (
	CodeUnauthenticated       = "UNAUTHENTICATED"
	CodeForbidden             = "FORBIDDEN"
	CodeAccountArchived       = "ACCOUNT_ARCHIVED"
	CodeMustChangePassword    = "MUST_CHANGE_PASSWORD_REQUIRED"
	CodeInviteNotFound        = "INVITE_NOT_FOUND"
	CodeInviteExpired         = "INVITE_EXPIRED"
	CodeInviteUsed            = "INVITE_USED"
	CodeInviteInvalid         = "INVITE_INVALID"
	CodeInviteRoleMismatch    = "INVITE_ROLE_MISMATCH"
	CodeTeacherBindingMissing = "TEACHER_BINDING_REQUIRED"
	CodePasswordPolicy        = "PASSWORD_POLICY_VIOLATION"
	CodeUsernameTaken         = "USERNAME_TAKEN"
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeInvalidCredentials    = "INVALID_CREDENTIALS"
)

// Sentinel domain errors. Match with errors.Is; wrap with fmt.Errorf only for
// infrastructure failures, never for these.
var (
	ErrUnauthenticated = &DomainError{Code: CodeUnauthenticated, Status: fiber.StatusUnauthorized, Message: "Unauthenticated."}
	ErrForbidden       = &DomainError{Code: CodeForbidden, Status: fiber.StatusForbidden, Message: "Forbidden."}
	ErrAccountArchived = &DomainError{Code: CodeAccountArchived, Status: fiber.StatusForbidden, Message: "Account has been archived."}
	ErrMustChangePassword = &DomainError{
		Code:    CodeMustChangePassword,
		Status:  fiber.StatusForbidden,
		Message: "Password change required before this action.",
	}
	ErrInviteNotFound = &DomainError{Code: CodeInviteNotFound, Status: fiber.StatusBadRequest, Message: "Invite token not found."}
	ErrInviteExpired  = &DomainError{Code: CodeInviteExpired, Status: fiber.StatusBadRequest, Message: "Invite token has expired."}
	ErrInviteUsed     = &DomainError{Code: CodeInviteUsed, Status: fiber.StatusBadRequest, Message: "Invite token has already been used."}
	ErrInviteInvalid  = &DomainError{Code: CodeInviteInvalid, Status: fiber.StatusBadRequest, Message: "Invite token is invalid."}
	ErrInviteRoleMismatch = &DomainError{
		Code:    CodeInviteRoleMismatch,
		Status:  fiber.StatusBadRequest,
		Message: "Invite token can only be used for STUDENT registration.",
	}
	ErrTeacherBindingRequired = &DomainError{
		Code:    CodeTeacherBindingMissing,
		Status:  fiber.StatusBadRequest,
		Message: "Operator has no teacher profile to own the invite.",
	}
	ErrUsernameTaken      = &DomainError{Code: CodeUsernameTaken, Status: fiber.StatusBadRequest, Message: "Username already exists."}
	ErrInvalidCredentials = &DomainError{Code: CodeInvalidCredentials, Status: fiber.StatusBadRequest, Message: "Invalid username or password."}
)

// NewPasswordPolicyError carries the individual rule failures back to the caller.
func NewPasswordPolicyError(failures []string) *DomainError {
	return &DomainError{
		Code:    CodePasswordPolicy,
		Status:  fiber.StatusBadRequest,
		Message: "Password does not satisfy the password policy.",
		Details: failures,
	}
}

// NewValidationError reports a malformed or incomplete request payload.
func NewValidationError(message string) *DomainError {
	return &DomainError{Code: CodeValidationFailed, Status: fiber.StatusBadRequest, Message: message}
}

// AsDomainError unwraps err into a DomainError when it carries one.
func AsDomainError(err error) (*DomainError, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}
