package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/edusync/edusync-api/internal/dto"
	"github.com/edusync/edusync-api/internal/models"
	"github.com/edusync/edusync-api/internal/repository"
)

type authFixture struct {
	db       *gorm.DB
	auth     AuthService
	sessions SessionService
	invites  InviteService
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()

	db := setupServiceDB(t)
	sessions := newSessionService(db, nil)
	invites := newInviteService(db)
	auth := NewAuthService(
		db,
		repository.NewUserRepository(db),
		repository.NewStudentRepository(db),
		repository.NewTeacherRepository(db),
		repository.NewTeacherStudentRepository(db),
		NewPasswordPolicy(),
		sessions,
		invites,
		zerolog.Nop(),
	)

	return authFixture{db: db, auth: auth, sessions: sessions, invites: invites}
}

func (f authFixture) createInvite(t *testing.T, teacherUsername string) (string, models.Teacher) {
	t.Helper()

	operator, teacher := createTestTeacher(t, f.db, teacherUsername, models.RoleTeacher)
	created, err := f.invites.Create(context.Background(), operator, nil, nil)
	require.NoError(t, err)

	return created.InviteToken, teacher
}

func studentRegistration(username, inviteToken string) dto.RegisterRequest {
	return dto.RegisterRequest{
		Username:    username,
		Password:    "Str0ng!pass",
		Role:        models.RoleStudent,
		FirstName:   "Jamie",
		LastName:    "Park",
		InviteToken: inviteToken,
	}
}

func TestRegisterStudentWithInvite(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	inviteToken, teacher := f.createInvite(t, "teacher_amy")

	response, err := f.auth.Register(ctx, studentRegistration("student_bob", inviteToken))
	require.NoError(t, err)
	require.Equal(t, models.RoleStudent, response.Role)
	require.NotNil(t, response.StudentID)
	require.Nil(t, response.TeacherID)

	var student models.Student
	require.NoError(t, f.db.First(&student, *response.StudentID).Error)
	require.Equal(t, "Jamie", student.FirstName)
	require.NotNil(t, student.InvitedTeacherID)
	require.Equal(t, teacher.ID, *student.InvitedTeacherID)

	var invite models.StudentInvite
	require.NoError(t, f.db.Where("token = ?", inviteToken).First(&invite).Error)
	require.Equal(t, models.InviteStatusUsed, invite.Status)
	require.NotNil(t, invite.UsedUserID)
	require.Equal(t, response.UserID, *invite.UsedUserID)

	var relation models.TeacherStudent
	require.NoError(t, f.db.
		Where("teacher_id = ? AND student_id = ?", teacher.ID, student.ID).
		First(&relation).Error)
	require.Equal(t, models.TeacherStudentActive, relation.Status)
}

func TestRegisterInviteSecondUseFails(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	inviteToken, _ := f.createInvite(t, "teacher_amy")

	_, err := f.auth.Register(ctx, studentRegistration("student_bob", inviteToken))
	require.NoError(t, err)

	_, err = f.auth.Register(ctx, studentRegistration("student_carl", inviteToken))
	require.ErrorIs(t, err, ErrInviteUsed)

	// The failed attempt must not leave a half-created account behind.
	var count int64
	require.NoError(t, f.db.Model(&models.User{}).Where("username = ?", "student_carl").Count(&count).Error)
	require.Zero(t, count)
}

func TestRegisterInviteRoleMismatch(t *testing.T) {
	f := newAuthFixture(t)
	inviteToken, _ := f.createInvite(t, "teacher_amy")

	req := studentRegistration("wannabe_teacher", inviteToken)
	req.Role = models.RoleTeacher
	_, err := f.auth.Register(context.Background(), req)
	require.ErrorIs(t, err, ErrInviteRoleMismatch)

	var invite models.StudentInvite
	require.NoError(t, f.db.Where("token = ?", inviteToken).First(&invite).Error)
	require.Equal(t, models.InviteStatusPending, invite.Status, "rejected attempt must not consume the invite")
}

func TestRegisterRollbackKeepsInvitePending(t *testing.T) {
	f := newAuthFixture(t)
	inviteToken, _ := f.createInvite(t, "teacher_amy")

	// Missing profile fields fail after the invite lock was acquired; the
	// rollback must release the invite untouched.
	req := studentRegistration("student_bob", inviteToken)
	req.LastName = ""
	_, err := f.auth.Register(context.Background(), req)
	require.ErrorIs(t, err, NewValidationError(""))

	var invite models.StudentInvite
	require.NoError(t, f.db.Where("token = ?", inviteToken).First(&invite).Error)
	require.Equal(t, models.InviteStatusPending, invite.Status)
	require.Nil(t, invite.UsedUserID)

	var count int64
	require.NoError(t, f.db.Model(&models.User{}).Where("username = ?", "student_bob").Count(&count).Error)
	require.Zero(t, count)

	// The invite is still consumable by a corrected retry.
	_, err = f.auth.Register(context.Background(), studentRegistration("student_bob", inviteToken))
	require.NoError(t, err)
}

func TestRegisterValidation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, dto.RegisterRequest{Username: " ", Password: "Str0ng!pass", Role: models.RoleStudent})
	require.ErrorIs(t, err, NewValidationError(""))

	req := studentRegistration("student_bob", "")
	req.Password = "weak"
	_, err = f.auth.Register(ctx, req)
	require.ErrorIs(t, err, NewPasswordPolicyError(nil))

	req = studentRegistration("student_bob", "")
	req.Role = models.RoleAdmin
	_, err = f.auth.Register(ctx, req)
	require.ErrorIs(t, err, NewValidationError(""), "admins cannot self-register")
}

func TestRegisterUsernameTaken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, studentRegistration("student_bob", ""))
	require.NoError(t, err)

	_, err = f.auth.Register(ctx, studentRegistration("student_bob", ""))
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegisterTeacher(t *testing.T) {
	f := newAuthFixture(t)

	response, err := f.auth.Register(context.Background(), dto.RegisterRequest{
		Username:    "teacher_amy",
		Password:    "Str0ng!pass",
		Role:        models.RoleTeacher,
		DisplayName: "Amy Winter",
	})
	require.NoError(t, err)
	require.NotNil(t, response.TeacherID)
	require.Nil(t, response.StudentID)

	var teacher models.Teacher
	require.NoError(t, f.db.First(&teacher, *response.TeacherID).Error)
	require.Equal(t, "Amy Winter", teacher.Name)
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	registered, err := f.auth.Register(ctx, studentRegistration("student_bob", ""))
	require.NoError(t, err)

	response, err := f.auth.Login(ctx, "student_bob", "Str0ng!pass")
	require.NoError(t, err)
	require.Equal(t, registered.UserID, response.UserID)
	require.Equal(t, models.RoleStudent, response.Role)
	require.NotNil(t, response.StudentID)
	require.Nil(t, response.TeacherID)
	require.Equal(t, "Bearer", response.TokenType)
	require.False(t, response.MustChangePassword)

	// The issued token authenticates follow-up requests.
	resolved, err := f.sessions.RequireAuthenticatedUser(ctx, "Bearer "+response.AccessToken)
	require.NoError(t, err)
	require.Equal(t, registered.UserID, resolved.ID)

	var user models.User
	require.NoError(t, f.db.First(&user, registered.UserID).Error)
	require.NotNil(t, user.LastLoginAt)

	// Unknown usernames and wrong passwords are indistinguishable.
	_, err = f.auth.Login(ctx, "student_bob", "Wr0ng!pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, "nobody", "Str0ng!pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginArchivedAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	registered, err := f.auth.Register(ctx, studentRegistration("student_bob", ""))
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.User{}).
		Where("id = ?", registered.UserID).
		Update("status", models.UserStatusArchived).Error)

	_, err = f.auth.Login(ctx, "student_bob", "Str0ng!pass")
	require.ErrorIs(t, err, ErrAccountArchived)
}

func TestLoginTeacherWithoutBinding(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("Str0ng!pass"), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{
		Username:     "teacher_orphan",
		PasswordHash: string(hash),
		Role:         models.RoleTeacher,
		Status:       models.UserStatusActive,
	}
	require.NoError(t, f.db.Create(&user).Error)

	_, err = f.auth.Login(ctx, "teacher_orphan", "Str0ng!pass")
	require.ErrorIs(t, err, ErrTeacherBindingRequired)
}

func TestSetPasswordClearsMustChangeFlag(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	registered, err := f.auth.Register(ctx, studentRegistration("student_bob", ""))
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.User{}).
		Where("id = ?", registered.UserID).
		Update("must_change_password", true).Error)

	require.ErrorIs(t, f.auth.SetPassword(ctx, registered.UserID, "weak"), NewPasswordPolicyError(nil))

	require.NoError(t, f.auth.SetPassword(ctx, registered.UserID, "N3w!secret"))

	var user models.User
	require.NoError(t, f.db.First(&user, registered.UserID).Error)
	require.False(t, user.MustChangePassword)

	_, err = f.auth.Login(ctx, "student_bob", "Str0ng!pass")
	require.ErrorIs(t, err, ErrInvalidCredentials, "old password must stop working")
	_, err = f.auth.Login(ctx, "student_bob", "N3w!secret")
	require.NoError(t, err)
}

// TestConcurrentRegistrationSingleConsumption races several registrations for
// the same invite and verifies exactly-once consumption: one winner, every
// loser reported as used, one teacher-student relation.
func TestConcurrentRegistrationSingleConsumption(t *testing.T) {
	f := newAuthFixture(t)
	inviteToken, teacher := f.createInvite(t, "teacher_amy")

	const attempts = 8
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			username := fmt.Sprintf("student_%02d", i)
			_, errs[i] = f.auth.Register(context.Background(), studentRegistration(username, inviteToken))
		}(i)
	}
	wg.Wait()

	var succeeded, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		default:
			require.ErrorIs(t, err, ErrInviteUsed)
			lost++
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, attempts-1, lost)

	var invite models.StudentInvite
	require.NoError(t, f.db.Where("token = ?", inviteToken).First(&invite).Error)
	require.Equal(t, models.InviteStatusUsed, invite.Status)

	var relations int64
	require.NoError(t, f.db.Model(&models.TeacherStudent{}).
		Where("teacher_id = ?", teacher.ID).
		Count(&relations).Error)
	require.Equal(t, int64(1), relations)

	var users int64
	require.NoError(t, f.db.Model(&models.User{}).
		Where("username LIKE ?", "student_%").
		Count(&users).Error)
	require.Equal(t, int64(1), users, "losing transactions must be rolled back")
}
