package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

// PasswordPolicy validates candidate passwords against the platform rules and
// generates policy-compliant temporary passwords for administrative resets.
type PasswordPolicy struct{}

// NewPasswordPolicy constructs the password policy collaborator.
func NewPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{}
}

// Validate returns the list of rule failures for the candidate password. An
// empty slice means the password is acceptable.
func (PasswordPolicy) Validate(username, password string) []string {
	var failures []string
	normalizedUsername := strings.TrimSpace(username)

	if len(password) < 8 {
		failures = append(failures, "Password must be at least 8 characters.")
	}

	var hasLower, hasUpper, hasDigit, hasSpecial, hasSpace bool
	for _, r := range password {
		switch {
		case unicode.IsSpace(r):
			hasSpace = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	if !hasLower {
		failures = append(failures, "Password must include at least one lowercase letter.")
	}
	if !hasUpper {
		failures = append(failures, "Password must include at least one uppercase letter.")
	}
	if !hasDigit {
		failures = append(failures, "Password must include at least one digit.")
	}
	if !hasSpecial {
		failures = append(failures, "Password must include at least one special character.")
	}
	if hasSpace {
		failures = append(failures, "Password must not contain whitespace.")
	}

	if len(normalizedUsername) >= 3 && password != "" &&
		strings.Contains(strings.ToLower(password), strings.ToLower(normalizedUsername)) {
		failures = append(failures, "Password must not contain the username.")
	}

	return failures
}

// ValidateOrError wraps any rule failures into a PASSWORD_POLICY_VIOLATION error.
func (p PasswordPolicy) ValidateOrError(username, password string) error {
	if failures := p.Validate(username, password); len(failures) > 0 {
		return NewPasswordPolicyError(failures)
	}
	return nil
}

// Character sets for temporary password generation. Visually ambiguous
// characters (I, l, 0, 1, O) are excluded.
const (
	tempUppercase = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	tempLowercase = "abcdefghijkmnpqrstuvwxyz"
	tempDigits    = "23456789"
	tempSpecial   = "!@#$%^&*()-_=+[]{}:;,.?"
	tempLength    = 8
)

// GenerateTemporaryPassword produces a random password guaranteed to satisfy
// the policy for the given username.
func (p PasswordPolicy) GenerateTemporaryPassword(username string) (string, error) {
	for attempt := 0; attempt < 100; attempt++ {
		candidate, err := buildRandomPassword()
		if err != nil {
			return "", err
		}
		if len(p.Validate(username, candidate)) == 0 {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("failed to generate a policy-compliant temporary password")
}

func buildRandomPassword() (string, error) {
	all := tempUppercase + tempLowercase + tempDigits + tempSpecial

	chars := make([]byte, 0, tempLength)
	for _, source := range []string{tempUppercase, tempLowercase, tempDigits, tempSpecial} {
		c, err := randomChar(source)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}
	for len(chars) < tempLength {
		c, err := randomChar(all)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}

	// Fisher-Yates with crypto/rand so class positions are unpredictable.
	for i := len(chars) - 1; i > 0; i-- {
		j, err := randomIndex(i + 1)
		if err != nil {
			return "", err
		}
		chars[i], chars[j] = chars[j], chars[i]
	}

	return string(chars), nil
}

func randomChar(source string) (byte, error) {
	idx, err := randomIndex(len(source))
	if err != nil {
		return 0, err
	}
	return source[idx], nil
}

func randomIndex(n int) (int, error) {
	value, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to read random source: %w", err)
	}
	return int(value.Int64()), nil
}
