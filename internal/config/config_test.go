package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Cron.DailyAt != "00:05" {
		t.Errorf("Expected default daily_at 00:05, got %q", cfg.Cron.DailyAt)
	}
	if cfg.Security.JWTSecret == "" {
		t.Error("Expected a generated JWT secret")
	}
}

func TestLoadDailyAtOverride(t *testing.T) {
	t.Setenv("IVF_CRON_DAILY_AT", "06:30")

	cfg, err := Load("", t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Cron.DailyAt != "06:30" {
		t.Errorf("Expected daily_at 06:30 from env, got %q", cfg.Cron.DailyAt)
	}
}

func TestLoadRejectsBadDailyAt(t *testing.T) {
	t.Setenv("IVF_CRON_DAILY_AT", "25:99")

	if _, err := Load("", t.TempDir()); err == nil {
		t.Error("Expected an error for a daily_at that is not HH:MM")
	}
}

func TestGenerateRandomString(t *testing.T) {
	a := generateRandomString(32)
	b := generateRandomString(32)

	if len(a) != 32 || len(b) != 32 {
		t.Errorf("Expected length 32, got %d and %d", len(a), len(b))
	}
	if a == b {
		t.Error("Two generated secrets must not be identical")
	}
}
