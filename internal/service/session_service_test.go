package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/edusync/edusync-api/internal/models"
	"github.com/edusync/edusync-api/internal/repository"
	"github.com/edusync/edusync-api/pkg/token"
)

// setupServiceDB opens a per-test in-memory database. A single connection
// keeps every goroutine on the same database and serializes transactions.
func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Teacher{},
		&models.Student{},
		&models.TeacherStudent{},
		&models.StudentInvite{},
		&models.UserSession{},
		&models.TeacherProvisionAudit{},
	))

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string, role models.UserRole) models.User {
	t.Helper()

	user := models.User{
		Username:     username,
		PasswordHash: "unused",
		Role:         role,
		Status:       models.UserStatusActive,
	}
	require.NoError(t, db.Create(&user).Error)

	return user
}

func newSessionService(db *gorm.DB, cache *redis.Client) SessionService {
	return NewSessionService(repository.NewSessionRepository(db), cache, 12*time.Hour, time.Minute, zerolog.Nop())
}

func TestSessionIssueAndResolve(t *testing.T) {
	db := setupServiceDB(t)
	svc := newSessionService(db, nil)
	user := createTestUser(t, db, "teacher_amy", models.RoleTeacher)

	ctx := context.Background()
	issued, err := svc.Issue(ctx, user)
	require.NoError(t, err)
	require.Equal(t, "Bearer", issued.TokenType)
	require.NotEmpty(t, issued.AccessToken)
	require.WithinDuration(t, time.Now().Add(12*time.Hour), issued.ExpiresAt, time.Minute)

	// Only the fingerprint is persisted.
	var session models.UserSession
	require.NoError(t, db.First(&session).Error)
	require.NotEqual(t, issued.AccessToken, session.TokenHash)
	require.Equal(t, token.Fingerprint(issued.AccessToken), session.TokenHash)

	resolved, err := svc.RequireAuthenticatedUser(ctx, "Bearer "+issued.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, resolved.ID)
	require.Equal(t, models.RoleTeacher, resolved.Role)

	// Scheme comparison is case-insensitive.
	resolved, err = svc.RequireAuthenticatedUser(ctx, "bearer "+issued.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, resolved.ID)
}

func TestSessionResolveRejectsBadCredentials(t *testing.T) {
	db := setupServiceDB(t)
	svc := newSessionService(db, nil)
	user := createTestUser(t, db, "teacher_amy", models.RoleTeacher)

	ctx := context.Background()
	issued, err := svc.Issue(ctx, user)
	require.NoError(t, err)

	for _, header := range []string{
		"",
		"   ",
		"Bearer ",
		"Bearer",
		"Token " + issued.AccessToken,
		issued.AccessToken,
		"Bearer not-a-real-token",
		" Bearer " + issued.AccessToken,
		"\tBearer " + issued.AccessToken,
	} {
		_, err := svc.RequireAuthenticatedUser(ctx, header)
		require.ErrorIs(t, err, ErrUnauthenticated, "header %q", header)
	}
}

func TestSessionExpiryBoundary(t *testing.T) {
	db := setupServiceDB(t)
	svc := newSessionService(db, nil)
	user := createTestUser(t, db, "student_bob", models.RoleStudent)

	raw, err := token.Generate()
	require.NoError(t, err)

	expired := models.UserSession{
		UserID:    user.ID,
		TokenHash: token.Fingerprint(raw),
		ExpiresAt: time.Now().Add(-time.Second),
	}
	require.NoError(t, db.Create(&expired).Error)

	_, err = svc.RequireAuthenticatedUser(context.Background(), "Bearer "+raw)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSessionRevokeCurrent(t *testing.T) {
	db := setupServiceDB(t)
	svc := newSessionService(db, nil)
	user := createTestUser(t, db, "teacher_amy", models.RoleTeacher)

	ctx := context.Background()
	issued, err := svc.Issue(ctx, user)
	require.NoError(t, err)
	header := "Bearer " + issued.AccessToken

	require.NoError(t, svc.RevokeCurrent(ctx, header))

	_, err = svc.RequireAuthenticatedUser(ctx, header)
	require.ErrorIs(t, err, ErrUnauthenticated)

	// A second logout with the same token finds no active session.
	require.ErrorIs(t, svc.RevokeCurrent(ctx, header), ErrUnauthenticated)
}

func TestSessionRevokeAllActive(t *testing.T) {
	db := setupServiceDB(t)
	svc := newSessionService(db, nil)
	user := createTestUser(t, db, "teacher_amy", models.RoleTeacher)
	other := createTestUser(t, db, "teacher_ben", models.RoleTeacher)

	ctx := context.Background()
	first, err := svc.Issue(ctx, user)
	require.NoError(t, err)
	second, err := svc.Issue(ctx, user)
	require.NoError(t, err)
	foreign, err := svc.Issue(ctx, other)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeCurrent(ctx, "Bearer "+first.AccessToken))

	revoked, err := svc.RevokeAllActive(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), revoked, "only the remaining active session is affected")

	_, err = svc.RequireAuthenticatedUser(ctx, "Bearer "+second.AccessToken)
	require.ErrorIs(t, err, ErrUnauthenticated)

	// Sessions of other users survive the bulk revoke.
	resolved, err := svc.RequireAuthenticatedUser(ctx, "Bearer "+foreign.AccessToken)
	require.NoError(t, err)
	require.Equal(t, other.ID, resolved.ID)
}

func TestSessionCacheHitAndInvalidation(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	db := setupServiceDB(t)
	cache := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	svc := newSessionService(db, cache)
	user := createTestUser(t, db, "teacher_amy", models.RoleTeacher)

	ctx := context.Background()
	issued, err := svc.Issue(ctx, user)
	require.NoError(t, err)
	header := "Bearer " + issued.AccessToken
	cacheKey := sessionCacheKey(token.Fingerprint(issued.AccessToken))

	_, err = svc.RequireAuthenticatedUser(ctx, header)
	require.NoError(t, err)
	require.True(t, mini.Exists(cacheKey), "resolve should populate the cache")

	// The cached entry answers the next resolve without touching the database.
	require.NoError(t, db.Where("user_id = ?", user.ID).Delete(&models.UserSession{}).Error)
	resolved, err := svc.RequireAuthenticatedUser(ctx, header)
	require.NoError(t, err)
	require.Equal(t, user.ID, resolved.ID)

	mini.FlushAll()
	_, err = svc.RequireAuthenticatedUser(ctx, header)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSessionRevokeInvalidatesCache(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	db := setupServiceDB(t)
	cache := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	svc := newSessionService(db, cache)
	user := createTestUser(t, db, "teacher_amy", models.RoleTeacher)

	ctx := context.Background()
	issued, err := svc.Issue(ctx, user)
	require.NoError(t, err)
	header := "Bearer " + issued.AccessToken
	cacheKey := sessionCacheKey(token.Fingerprint(issued.AccessToken))

	_, err = svc.RequireAuthenticatedUser(ctx, header)
	require.NoError(t, err)
	require.True(t, mini.Exists(cacheKey))

	require.NoError(t, svc.RevokeCurrent(ctx, header))
	require.False(t, mini.Exists(cacheKey), "revocation must drop the cached session")

	_, err = svc.RequireAuthenticatedUser(ctx, header)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSessionBulkRevokeInvalidatesCache(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	db := setupServiceDB(t)
	cache := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	svc := newSessionService(db, cache)
	user := createTestUser(t, db, "teacher_amy", models.RoleTeacher)

	ctx := context.Background()
	issued, err := svc.Issue(ctx, user)
	require.NoError(t, err)
	header := "Bearer " + issued.AccessToken

	_, err = svc.RequireAuthenticatedUser(ctx, header)
	require.NoError(t, err)

	revoked, err := svc.RevokeAllActive(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), revoked)

	_, err = svc.RequireAuthenticatedUser(ctx, header)
	require.ErrorIs(t, err, ErrUnauthenticated)
}
