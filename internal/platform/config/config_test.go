package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected default addr: %s", cfg.Addr)
	}
	if cfg.DeletionGraceDays != 30 {
		t.Fatalf("unexpected default grace days: %d", cfg.DeletionGraceDays)
	}
	if cfg.RetryAttempts != 3 || cfg.RetryDelay != time.Second {
		t.Fatalf("unexpected default retry policy: %d/%v", cfg.RetryAttempts, cfg.RetryDelay)
	}
	if cfg.DeletionSweepInterval != time.Hour {
		t.Fatalf("unexpected default sweep interval: %v", cfg.DeletionSweepInterval)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DELETION_GRACE_DAYS", "7")
	t.Setenv("DELETION_SWEEP_INTERVAL", "15m")
	t.Setenv("RETRY_ATTEMPTS", "5")

	cfg := Load()
	if cfg.DeletionGraceDays != 7 {
		t.Fatalf("grace days not read from env: %d", cfg.DeletionGraceDays)
	}
	if cfg.DeletionSweepInterval != 15*time.Minute {
		t.Fatalf("sweep interval not read from env: %v", cfg.DeletionSweepInterval)
	}
	if cfg.RetryAttempts != 5 {
		t.Fatalf("retry attempts not read from env: %d", cfg.RetryAttempts)
	}
}

func TestValidate(t *testing.T) {
	cfg := Load()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation to fail without DATABASE_URL")
	}

	cfg.DatabaseURL = "postgres://localhost/lessons"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cfg.Environment = "production"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected production validation to require JWT_SECRET")
	}

	cfg.JWTSecret = "strong"
	cfg.DeletionGraceDays = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation to reject zero grace days")
	}
}
