package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/edusync/edusync-api/internal/config"
	"github.com/edusync/edusync-api/internal/database"
	"github.com/edusync/edusync-api/internal/handler"
	"github.com/edusync/edusync-api/internal/middleware"
	"github.com/edusync/edusync-api/internal/repository"
	"github.com/edusync/edusync-api/internal/router"
	"github.com/edusync/edusync-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// The session cache is optional; without Redis every token resolve hits
	// the database.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	teacherStudentRepo := repository.NewTeacherStudentRepository(db)
	inviteRepo := repository.NewInviteRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	provisionAuditRepo := repository.NewTeacherProvisionAuditRepository(db)

	sessionService := service.NewSessionService(sessionRepo, redisClient, cfg.SessionTTL, cfg.SessionCacheTTL, logger)
	inviteService := service.NewInviteService(inviteRepo, teacherRepo, service.InviteConfig{
		DefaultTTLHours: cfg.InviteTTLHours,
		MaxTTLHours:     cfg.InviteMaxTTLHours,
		PathPrefix:      cfg.InvitePathPrefix,
	}, logger)
	authService := service.NewAuthService(db, userRepo, studentRepo, teacherRepo, teacherStudentRepo,
		service.NewPasswordPolicy(), sessionService, inviteService, logger)
	accessService := service.NewAccessService(sessionService, logger)
	provisionService := service.NewProvisionService(db, userRepo, teacherRepo, provisionAuditRepo,
		service.NewPasswordPolicy(), logger)
	backfillService := service.NewBackfillService(userRepo, teacherRepo, logger)

	if cfg.RunStartupBackfill {
		result, err := backfillService.BackfillTeacherBindings(context.Background())
		if err != nil {
			log.Fatalf("teacher binding backfill failed: %v", err)
		}
		logger.Info().
			Int("before_missing", result.BeforeMissing).
			Int("inserted", result.Inserted).
			Int("after_missing", result.AfterMissing).
			Msg("teacher binding backfill complete")
	}

	authHandler := handler.NewAuthHandler(authService, sessionService, validate, logger)
	inviteHandler := handler.NewInviteHandler(inviteService, accessService, logger)
	teacherHandler := handler.NewTeacherHandler(provisionService, accessService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:    authHandler,
		InviteHandler:  inviteHandler,
		TeacherHandler: teacherHandler,
		Sessions:       sessionService,
		LoginLimiter:   middleware.RateLimit("login", cfg.LoginRateLimit, cfg.LoginRateWindow),
		DB:             db,
		Cache:          redisClient,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
