package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iho/loanledger/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PRODUCT_CATALOG_PATH", "")

	cfg, err := config.LoadFiles()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.MissedCyclesThreshold != 3 || cfg.MoneyScale != 2 {
		t.Fatalf("unexpected loan defaults: threshold=%d scale=%d", cfg.MissedCyclesThreshold, cfg.MoneyScale)
	}

	if cfg.DelinquencySweepSchedule != "0 2 * * *" {
		t.Fatalf("unexpected sweep schedule %q", cfg.DelinquencySweepSchedule)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("MISSED_CYCLES_THRESHOLD", "5")
	t.Setenv("OUTBOX_ENABLED", "false")

	cfg, err := config.LoadFiles()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}

	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	if cfg.MissedCyclesThreshold != 5 || cfg.OutboxEnabled {
		t.Fatalf("expected loan overrides, got threshold=%d outbox=%v", cfg.MissedCyclesThreshold, cfg.OutboxEnabled)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("IMPORT_CONCURRENCY=3\nEVENT_STREAM=test:events\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("IMPORT_CONCURRENCY", "")
	os.Unsetenv("IMPORT_CONCURRENCY")
	t.Setenv("EVENT_STREAM", "from-env")

	cfg, err := config.LoadFiles(path)
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.ImportConcurrency != 3 {
		t.Fatalf("expected concurrency from file, got %d", cfg.ImportConcurrency)
	}
	if cfg.EventStream != "from-env" {
		t.Fatalf("expected environment to win over file, got %q", cfg.EventStream)
	}
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	if _, err := config.LoadFiles(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("expected missing file to be skipped, got %v", err)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")

	if _, err := config.LoadFiles(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}
