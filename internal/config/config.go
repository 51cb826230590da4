package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName            string
	AppEnv             string
	AppPort            string
	DatabaseURL        string
	RedisURL           string
	SessionTTL         time.Duration
	SessionCacheTTL    time.Duration
	InviteTTLHours     int64
	InviteMaxTTLHours  int64
	InvitePathPrefix   string
	LoginRateLimit     int
	LoginRateWindow    time.Duration
	RunStartupBackfill bool
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("EDUSYNC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "EduSync API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("auth.session_hours", 12)
	v.SetDefault("auth.session_cache_ttl", "1m")
	v.SetDefault("invite.ttl_hours", 72)
	v.SetDefault("invite.max_ttl_hours", 720)
	v.SetDefault("invite.path_prefix", "/register?inviteToken=")
	v.SetDefault("auth.login_rate_limit", 10)
	v.SetDefault("auth.login_rate_window", "1m")
	v.SetDefault("startup.backfill", true)

	sessionHours := v.GetInt64("auth.session_hours")
	if sessionHours <= 0 {
		return Config{}, fmt.Errorf("auth session hours must be positive")
	}

	cacheTTL, err := time.ParseDuration(v.GetString("auth.session_cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid session cache ttl: %w", err)
	}

	rateWindow, err := time.ParseDuration(v.GetString("auth.login_rate_window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid login rate window: %w", err)
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		DatabaseURL:        v.GetString("database.url"),
		RedisURL:           v.GetString("redis.url"),
		SessionTTL:         time.Duration(sessionHours) * time.Hour,
		SessionCacheTTL:    cacheTTL,
		InviteTTLHours:     v.GetInt64("invite.ttl_hours"),
		InviteMaxTTLHours:  v.GetInt64("invite.max_ttl_hours"),
		InvitePathPrefix:   v.GetString("invite.path_prefix"),
		LoginRateLimit:     v.GetInt("auth.login_rate_limit"),
		LoginRateWindow:    rateWindow,
		RunStartupBackfill: v.GetBool("startup.backfill"),
	}

	if cfg.InviteTTLHours <= 0 || cfg.InviteTTLHours > cfg.InviteMaxTTLHours {
		return Config{}, fmt.Errorf("invite ttl hours must be within 1..%d", cfg.InviteMaxTTLHours)
	}

	return cfg, nil
}
