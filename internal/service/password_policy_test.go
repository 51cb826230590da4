package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordPolicyValidate(t *testing.T) {
	policy := NewPasswordPolicy()

	cases := []struct {
		name     string
		username string
		password string
		failures int
	}{
		{name: "compliant", username: "alice", password: "Str0ng!pass", failures: 0},
		{name: "too short", username: "alice", password: "S1!a", failures: 1},
		{name: "missing uppercase", username: "alice", password: "str0ng!pass", failures: 1},
		{name: "missing lowercase", username: "alice", password: "STR0NG!PASS", failures: 1},
		{name: "missing digit", username: "alice", password: "Strong!pass", failures: 1},
		{name: "missing special", username: "alice", password: "Str0ngpass", failures: 1},
		{name: "contains whitespace", username: "alice", password: "Str0ng! pass", failures: 1},
		{name: "contains username", username: "alice", password: "Str0ng!alice", failures: 1},
		{name: "username check is case-insensitive", username: "Alice", password: "Str0ng!aLiCe", failures: 1},
		{name: "everything wrong", username: "alice", password: "alice", failures: 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Len(t, policy.Validate(tc.username, tc.password), tc.failures)
		})
	}
}

func TestPasswordPolicyShortUsernameNotChecked(t *testing.T) {
	policy := NewPasswordPolicy()

	// Two-character usernames would match almost any password; the
	// containment rule only applies from three characters up.
	require.Empty(t, policy.Validate("ab", "Str0ng!ab"))
}

func TestPasswordPolicyValidateOrError(t *testing.T) {
	policy := NewPasswordPolicy()

	require.NoError(t, policy.ValidateOrError("alice", "Str0ng!pass"))

	err := policy.ValidateOrError("alice", "weak")
	require.Error(t, err)

	var domainErr *DomainError
	require.True(t, errors.As(err, &domainErr))
	require.Equal(t, CodePasswordPolicy, domainErr.Code)
	require.NotEmpty(t, domainErr.Details)
}

func TestGenerateTemporaryPasswordSatisfiesPolicy(t *testing.T) {
	policy := NewPasswordPolicy()

	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		password, err := policy.GenerateTemporaryPassword("teacher_jones")
		require.NoError(t, err)
		require.Empty(t, policy.Validate("teacher_jones", password))
		seen[password] = struct{}{}
	}

	require.Greater(t, len(seen), 1, "expected generated passwords to vary")
}
