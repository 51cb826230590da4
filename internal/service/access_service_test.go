package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/edusync/edusync-api/internal/models"
)

func issueHeader(t *testing.T, db *gorm.DB, sessions SessionService, user models.User) string {
	t.Helper()

	issued, err := sessions.Issue(context.Background(), user)
	require.NoError(t, err)

	return "Bearer " + issued.AccessToken
}

func TestRequireStudentManagementAccess(t *testing.T) {
	db := setupServiceDB(t)
	sessions := newSessionService(db, nil)
	svc := NewAccessService(sessions, zerolog.Nop())
	ctx := context.Background()

	teacher := createTestUser(t, db, "teacher_amy", models.RoleTeacher)
	admin := createTestUser(t, db, "admin_root", models.RoleAdmin)
	student := createTestUser(t, db, "student_bob", models.RoleStudent)

	operator, err := svc.RequireStudentManagementAccess(ctx, issueHeader(t, db, sessions, teacher))
	require.NoError(t, err)
	require.Equal(t, teacher.ID, operator.ID)

	_, err = svc.RequireStudentManagementAccess(ctx, issueHeader(t, db, sessions, admin))
	require.NoError(t, err)

	_, err = svc.RequireStudentManagementAccess(ctx, issueHeader(t, db, sessions, student))
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.RequireStudentManagementAccess(ctx, "Bearer bogus")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRequireStudentManagementAccessBlocksForcedPasswordChange(t *testing.T) {
	db := setupServiceDB(t)
	sessions := newSessionService(db, nil)
	svc := NewAccessService(sessions, zerolog.Nop())

	teacher := createTestUser(t, db, "teacher_amy", models.RoleTeacher)
	header := issueHeader(t, db, sessions, teacher)
	require.NoError(t, db.Model(&models.User{}).
		Where("id = ?", teacher.ID).
		Update("must_change_password", true).Error)

	_, err := svc.RequireStudentManagementAccess(context.Background(), header)
	require.ErrorIs(t, err, ErrMustChangePassword)
}

func TestRequireAdminAccess(t *testing.T) {
	db := setupServiceDB(t)
	sessions := newSessionService(db, nil)
	svc := NewAccessService(sessions, zerolog.Nop())
	ctx := context.Background()

	teacher := createTestUser(t, db, "teacher_amy", models.RoleTeacher)
	admin := createTestUser(t, db, "admin_root", models.RoleAdmin)

	_, err := svc.RequireAdminAccess(ctx, issueHeader(t, db, sessions, admin))
	require.NoError(t, err)

	_, err = svc.RequireAdminAccess(ctx, issueHeader(t, db, sessions, teacher))
	require.ErrorIs(t, err, ErrForbidden)
}
