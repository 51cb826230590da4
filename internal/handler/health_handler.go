package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/edusync/edusync-api/internal/config"
	"github.com/edusync/edusync-api/internal/utils"
)

// Component states reported by the health endpoint.
const (
	componentOK          = "ok"
	componentDisabled    = "disabled"
	componentUnreachable = "unreachable"
)

// HealthResponse represents the payload returned by the health endpoint. The
// overall status degrades when any wired component stops responding.
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Service     string            `json:"service"`
	Environment string            `json:"environment"`
	Components  map[string]string `json:"components"`
}

// HealthCheck returns a handler that reports application health, pinging the
// database and the session cache on each call. The cache is optional; a nil
// client reports as disabled without degrading the overall status.
func HealthCheck(cfg config.Config, db *gorm.DB, cache *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		components := map[string]string{
			"database": databaseStatus(c, db),
			"cache":    cacheStatus(c, cache),
		}

		status := componentOK
		httpStatus := fiber.StatusOK
		for _, state := range components {
			if state == componentUnreachable {
				status = "degraded"
				httpStatus = fiber.StatusServiceUnavailable
				break
			}
		}

		payload := HealthResponse{
			Status:      status,
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Components:  components,
		}

		if status != componentOK {
			return c.Status(httpStatus).JSON(utils.APIResponse{
				Success: false,
				Data:    payload,
				Message: "service degraded",
			})
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}

func databaseStatus(c *fiber.Ctx, db *gorm.DB) string {
	if db == nil {
		return componentDisabled
	}

	sqlDB, err := db.DB()
	if err != nil {
		return componentUnreachable
	}
	if err := sqlDB.PingContext(c.Context()); err != nil {
		return componentUnreachable
	}

	return componentOK
}

func cacheStatus(c *fiber.Ctx, cache *redis.Client) string {
	if cache == nil {
		return componentDisabled
	}

	if err := cache.Ping(c.Context()).Err(); err != nil {
		return componentUnreachable
	}

	return componentOK
}
