package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/edusync/edusync-api/internal/models"
	"github.com/edusync/edusync-api/internal/observability"
	"github.com/edusync/edusync-api/internal/repository"
	"github.com/edusync/edusync-api/pkg/token"
)

const bearerPrefix = "Bearer "

// IssuedSession is returned once at login; the raw access token is never
// persisted and cannot be recovered afterwards.
type IssuedSession struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// SessionService issues and resolves opaque bearer sessions.
type SessionService interface {
	Issue(ctx context.Context, user models.User) (IssuedSession, error)
	RequireAuthenticatedUser(ctx context.Context, authorizationHeader string) (models.User, error)
	RevokeCurrent(ctx context.Context, authorizationHeader string) error
	RevokeAllActive(ctx context.Context, userID uint) (int64, error)
}

type sessionService struct {
	sessions repository.SessionRepository
	cache    *redis.Client
	ttl      time.Duration
	cacheTTL time.Duration
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewSessionService constructs a session service. The redis cache is optional;
// when nil every resolve hits the database.
func NewSessionService(sessions repository.SessionRepository, cache *redis.Client, ttl, cacheTTL time.Duration, logger zerolog.Logger) SessionService {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	return &sessionService{
		sessions: sessions,
		cache:    cache,
		ttl:      ttl,
		cacheTTL: cacheTTL,
		logger:   logger.With().Str("component", "session_service").Logger(),
		tracer:   otel.Tracer("github.com/edusync/edusync-api/internal/service/session"),
	}
}

// cachedSession mirrors the fields needed to authenticate a request without a
// database round trip. Revocation deletes the entry, so a cached hit is
// trusted until the shorter of the cache TTL and the session expiry.
type cachedSession struct {
	UserID    uint        `json:"user_id"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

func sessionCacheKey(fingerprint string) string {
	return fmt.Sprintf("session:fp:%s", fingerprint)
}

func (s *sessionService) Issue(ctx context.Context, user models.User) (IssuedSession, error) {
	ctx, span := s.tracer.Start(ctx, "session.issue")
	defer span.End()

	raw, err := token.Generate()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token generation failed")
		return IssuedSession{}, err
	}

	expiresAt := time.Now().Add(s.ttl)
	session := models.UserSession{
		UserID:    user.ID,
		TokenHash: token.Fingerprint(raw),
		ExpiresAt: expiresAt,
	}

	if err := s.sessions.Create(ctx, &session); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session persistence failed")
		return IssuedSession{}, fmt.Errorf("failed to persist session: %w", err)
	}

	observability.SessionsIssued().Inc()
	s.logger.Info().Uint("user_id", user.ID).Time("expires_at", expiresAt).Msg("session issued")

	return IssuedSession{AccessToken: raw, TokenType: "Bearer", ExpiresAt: expiresAt}, nil
}

func (s *sessionService) RequireAuthenticatedUser(ctx context.Context, authorizationHeader string) (models.User, error) {
	raw, err := resolveBearerToken(authorizationHeader)
	if err != nil {
		return models.User{}, err
	}

	fingerprint := token.Fingerprint(raw)

	if s.cache != nil {
		if user, ok := s.cachedUser(ctx, fingerprint); ok {
			return user, nil
		}
	}

	session, err := s.activeSession(ctx, fingerprint)
	if err != nil {
		return models.User{}, err
	}

	if s.cache != nil {
		s.storeCached(ctx, fingerprint, session)
	}

	return session.User, nil
}

func (s *sessionService) RevokeCurrent(ctx context.Context, authorizationHeader string) error {
	ctx, span := s.tracer.Start(ctx, "session.revoke_current")
	defer span.End()

	raw, err := resolveBearerToken(authorizationHeader)
	if err != nil {
		return err
	}

	fingerprint := token.Fingerprint(raw)
	session, err := s.activeSession(ctx, fingerprint)
	if err != nil {
		span.SetStatus(codes.Error, "no active session")
		return err
	}

	now := time.Now()
	session.RevokedAt = &now
	if err := s.sessions.Save(ctx, &session); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	s.invalidate(ctx, fingerprint)
	observability.SessionsRevoked().WithLabelValues("logout").Inc()
	s.logger.Info().Uint("user_id", session.UserID).Msg("session revoked")

	return nil
}

// RevokeAllActive bulk-revokes every active session of a user. A login racing
// with the bulk update may produce a session that survives; callers accept
// that relaxation.
func (s *sessionService) RevokeAllActive(ctx context.Context, userID uint) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "session.revoke_all")
	defer span.End()

	now := time.Now()

	var fingerprints []string
	if s.cache != nil {
		active, err := s.sessions.ListActiveByUser(ctx, userID, now)
		if err != nil {
			span.RecordError(err)
			return 0, fmt.Errorf("failed to list active sessions: %w", err)
		}
		for _, session := range active {
			fingerprints = append(fingerprints, session.TokenHash)
		}
	}

	revoked, err := s.sessions.RevokeAllActive(ctx, userID, now)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}

	for _, fingerprint := range fingerprints {
		s.invalidate(ctx, fingerprint)
	}

	observability.SessionsRevoked().WithLabelValues("bulk").Add(float64(revoked))
	s.logger.Info().Uint("user_id", userID).Int64("revoked", revoked).Msg("all active sessions revoked")

	return revoked, nil
}

func (s *sessionService) activeSession(ctx context.Context, fingerprint string) (models.UserSession, error) {
	session, err := s.sessions.FindByTokenHash(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.UserSession{}, ErrUnauthenticated
		}
		return models.UserSession{}, fmt.Errorf("failed to look up session: %w", err)
	}

	if !session.ActiveAt(time.Now()) {
		return models.UserSession{}, ErrUnauthenticated
	}

	return session, nil
}

func (s *sessionService) cachedUser(ctx context.Context, fingerprint string) (models.User, bool) {
	payload, err := s.cache.Get(ctx, sessionCacheKey(fingerprint)).Result()
	if err != nil {
		return models.User{}, false
	}

	var cached cachedSession
	if err := json.Unmarshal([]byte(payload), &cached); err != nil {
		return models.User{}, false
	}
	if !cached.ExpiresAt.After(time.Now()) {
		s.invalidate(ctx, fingerprint)
		return models.User{}, false
	}

	return cached.User, true
}

func (s *sessionService) storeCached(ctx context.Context, fingerprint string, session models.UserSession) {
	ttl := s.cacheTTL
	if remaining := time.Until(session.ExpiresAt); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return
	}

	payload, err := json.Marshal(cachedSession{
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
		User:      session.User,
	})
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, sessionCacheKey(fingerprint), payload, ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache session")
	}
}

func (s *sessionService) invalidate(ctx context.Context, fingerprint string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, sessionCacheKey(fingerprint)).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate cached session")
	}
}

// resolveBearerToken extracts the opaque token from an Authorization header.
// The scheme must start at the first byte; headers with leading whitespace are
// rejected. Missing headers, non-Bearer schemes and empty values are all
// reported as the same unauthenticated failure.
func resolveBearerToken(header string) (string, error) {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", ErrUnauthenticated
	}

	raw := strings.TrimSpace(header[len(bearerPrefix):])
	if raw == "" {
		return "", ErrUnauthenticated
	}

	return raw, nil
}
