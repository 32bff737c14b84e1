package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	Port             string
	StoreDriver      string
	DatabaseURL      string
	JWTSecret        string
	JWTIssuer        string
	AccessTTLSeconds int64
	CorsOrigins      []string
	LiveMaxViewers   int
	LiveSendBuffer   int
	LiveRequireToken bool
	Log              LogConfig
}

type LogConfig struct {
	Dir           string
	RetentionDays int
	Level         string
	Format        string
}

func Load() (Config, error) {
	cfg := Config{
		Port:             envOr("PORT", "8000"),
		StoreDriver:      strings.ToLower(envOr("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:      envOr("DATABASE_URL", ""),
		JWTSecret:        envOr("JWT_SECRET", "safeshe-dev-secret"),
		JWTIssuer:        envOr("JWT_ISSUER", "safeshe"),
		AccessTTLSeconds: int64(envOrInt("ACCESS_TTL_SECONDS", 86400)),
		CorsOrigins:      parseCSV(envOr("CORS_ORIGINS", "*")),
		LiveMaxViewers:   envOrInt("LIVE_MAX_VIEWERS", 0),
		LiveSendBuffer:   envOrInt("LIVE_SEND_BUFFER", 32),
		LiveRequireToken: envOrBool("LIVE_REQUIRE_TOKEN", false),
		Log: LogConfig{
			Dir:           envOr("LOG_DIR", "storage/logs"),
			RetentionDays: envOrInt("LOG_RETENTION_DAYS", 7),
			Level:         envOr("LOG_LEVEL", "info"),
			Format:        envOr("LOG_FORMAT", "text"),
		},
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", StoreDriverPostgres)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.LiveMaxViewers < 0 {
		return fmt.Errorf("LIVE_MAX_VIEWERS must not be negative")
	}
	if c.LiveSendBuffer <= 0 {
		return fmt.Errorf("LIVE_SEND_BUFFER must be positive")
	}
	return nil
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
