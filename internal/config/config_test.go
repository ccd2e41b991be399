package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
limits:
  free_swipes_per_period: 20
  max_message_runes: 800
ai:
  api_key: sk-test
  timeout: 2s
events:
  driver: nats
worker:
  cleanup_schedule: "0 4 * * *"
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Limits.FreeSwipesPerPeriod != 20 {
		t.Fatalf("unexpected free swipes: %d", cfg.Limits.FreeSwipesPerPeriod)
	}
	if cfg.Limits.MaxMessageRunes != 800 {
		t.Fatalf("unexpected max message runes: %d", cfg.Limits.MaxMessageRunes)
	}
	if cfg.AI.APIKey != "sk-test" || cfg.AI.Timeout != 2*time.Second {
		t.Fatalf("unexpected ai config: %+v", cfg.AI)
	}
	if cfg.Events.Driver != "nats" {
		t.Fatalf("unexpected events driver: %s", cfg.Events.Driver)
	}
	if cfg.Worker.CleanupSchedule != "0 4 * * *" {
		t.Fatalf("unexpected cleanup schedule: %s", cfg.Worker.CleanupSchedule)
	}

	if cfg.Limits.FreeSuperLikesPerPeriod != 5 {
		t.Fatalf("free super likes default should stay 5")
	}
	if cfg.Events.Stream != "jobswipe:events" {
		t.Fatalf("events stream default should stay, got %s", cfg.Events.Stream)
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.Limits.FreeSwipesPerPeriod != 50 {
		t.Fatalf("unexpected default free swipes: %d", cfg.Limits.FreeSwipesPerPeriod)
	}
	if cfg.Auth.BcryptCost != 12 {
		t.Fatalf("unexpected bcrypt cost: %d", cfg.Auth.BcryptCost)
	}
	if cfg.AI.Timeout != 3*time.Second {
		t.Fatalf("unexpected ai timeout: %s", cfg.AI.Timeout)
	}
	if cfg.Events.Driver != "redis" {
		t.Fatalf("unexpected events driver: %s", cfg.Events.Driver)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("EVENTS_DRIVER", "inline")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("FREE_SWIPES_PER_PERIOD", "7")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Events.Driver != "inline" || cfg.AI.APIKey != "sk-env" || cfg.Limits.FreeSwipesPerPeriod != 7 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsUnknownEventsDriver(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("EVENTS_DRIVER", "kafka")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for unknown events driver")
	}
}

func TestLoadRejectsDefaultSecretInProduction(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("APP_ENV", "prod")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error when jwt secret is left at default in production")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("AI_TIMEOUT", "soon")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected duration parse error")
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"HTTP_ADDR",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
		"HTTP_ALLOWED_ORIGINS",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"POSTGRES_DSN",
		"POSTGRES_MIGRATE_ON_BOOT",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"S3_ENDPOINT",
		"S3_ACCESS_KEY",
		"S3_SECRET_KEY",
		"S3_BUCKET",
		"S3_REGION",
		"S3_USE_SSL",
		"JWT_SECRET",
		"JWT_ACCESS_TTL",
		"REFRESH_TTL",
		"BCRYPT_COST",
		"FREE_SWIPES_PER_PERIOD",
		"FREE_SUPER_LIKES_PER_PERIOD",
		"OPENAI_BASE_URL",
		"OPENAI_API_KEY",
		"OPENAI_MODEL",
		"AI_TIMEOUT",
		"EVENTS_DRIVER",
		"EVENTS_CONSUMER",
		"NATS_URL",
		"WORKER_QUOTA_REFILL_SCHEDULE",
		"WORKER_CLEANUP_SCHEDULE",
		"WORKER_NOTIFICATION_RETENTION",
		"METRICS_ENABLED",
	} {
		t.Setenv(key, "")
	}
}
