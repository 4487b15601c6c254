package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Defaults for values that are configuration, not contract. The storage
// schema and the display client both fall back to DefaultSlideSeconds when an
// item carries no usable duration.
const (
	DefaultSlideSeconds        = 5
	DefaultMaxDisplaysPerGroup = 50
)

type Config struct {
	AppEnv              string
	Port                string
	DatabaseURL         string
	RedisURL            string
	SessionSecret       string
	AdminPasswordHash   string
	CDNBaseURL          string
	CDNAPIKey           string
	LogLevel            string
	LogFormat           string
	DefaultSlideSeconds int
	MaxDisplaysPerGroup int
}

func Load() (*Config, error) {
	// Local development convenience; the file is optional.
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RedisURL:          getEnv("REDIS_URL", ""),
		SessionSecret:     getEnv("SESSION_SECRET", ""),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		CDNBaseURL:        getEnv("CDN_BASE_URL", ""),
		CDNAPIKey:         getEnv("CDN_API_KEY", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}
	if cfg.AdminPasswordHash == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD_HASH is required")
	}
	if cfg.CDNBaseURL == "" {
		return nil, fmt.Errorf("CDN_BASE_URL is required")
	}

	var err error
	cfg.DefaultSlideSeconds, err = getEnvInt("DEFAULT_SLIDE_SECONDS", DefaultSlideSeconds)
	if err != nil {
		return nil, err
	}
	if cfg.DefaultSlideSeconds < 1 {
		return nil, fmt.Errorf("DEFAULT_SLIDE_SECONDS must be at least 1")
	}

	cfg.MaxDisplaysPerGroup, err = getEnvInt("MAX_DISPLAYS_PER_GROUP", DefaultMaxDisplaysPerGroup)
	if err != nil {
		return nil, err
	}
	if cfg.MaxDisplaysPerGroup < 1 {
		return nil, fmt.Errorf("MAX_DISPLAYS_PER_GROUP must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
