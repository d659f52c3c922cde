package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr                  string
	DatabaseURL           string
	JWTSecret             string
	Environment           string
	AllowRegistration     bool
	DeletionGraceDays     int
	DeletionSweepInterval time.Duration
	RetryAttempts         int
	RetryDelay            time.Duration
	CertificateDir        string
	RunMigrations         bool
}

func Load() Config {
	return Config{
		Addr:                  getEnv("APP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		Environment:           getEnv("APP_ENV", "development"),
		AllowRegistration:     getEnvBool("ALLOW_REGISTRATION", true),
		DeletionGraceDays:     getEnvInt("DELETION_GRACE_DAYS", 30),
		DeletionSweepInterval: getEnvDuration("DELETION_SWEEP_INTERVAL", time.Hour),
		RetryAttempts:         getEnvInt("RETRY_ATTEMPTS", 3),
		RetryDelay:            getEnvDuration("RETRY_DELAY", time.Second),
		CertificateDir:        getEnv("CERTIFICATE_DIR", "storage/deletions"),
		RunMigrations:         getEnvBool("RUN_MIGRATIONS", true),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
	}
	if c.DeletionGraceDays <= 0 {
		return fmt.Errorf("DELETION_GRACE_DAYS must be positive")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be at least 1")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("RETRY_DELAY must not be negative")
	}
	return nil
}
