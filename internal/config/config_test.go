package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Env != "development" {
		t.Errorf("expected default env development, got %s", cfg.Env)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.SenderProvider != "generic" {
		t.Errorf("expected default provider generic, got %s", cfg.SenderProvider)
	}
	if cfg.FetchTimeout != 20*time.Second {
		t.Errorf("expected default fetch timeout 20s, got %s", cfg.FetchTimeout)
	}
	if cfg.PollInterval != 5*time.Minute {
		t.Errorf("expected default poll interval 5m, got %s", cfg.PollInterval)
	}
	if cfg.DaysAhead != 60 {
		t.Errorf("expected default days ahead 60, got %d", cfg.DaysAhead)
	}
	if cfg.ReminderDaysAhead != 4 {
		t.Errorf("expected default reminder days ahead 4, got %d", cfg.ReminderDaysAhead)
	}
	if cfg.SendMaxAttempts != 3 {
		t.Errorf("expected default max attempts 3, got %d", cfg.SendMaxAttempts)
	}
	if cfg.WebhookPort != "5000" {
		t.Errorf("expected default webhook port 5000, got %s", cfg.WebhookPort)
	}
	if cfg.BlockedProfessionalIDs != nil {
		t.Errorf("expected no blocked ids by default, got %v", cfg.BlockedProfessionalIDs)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("API_BASE", "https://api.example.com/agenda/")
	t.Setenv("SENDER_PROVIDER", " Evolution ")
	t.Setenv("POLL_INTERVAL", "90s")
	t.Setenv("DAYS_AHEAD", "30")
	t.Setenv("BLOCKED_PROFESSIONAL_IDS", "21430526, 99, bogus, ")

	cfg := Load()

	if cfg.APIBase != "https://api.example.com/agenda" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.APIBase)
	}
	if cfg.SenderProvider != "evolution" {
		t.Errorf("expected provider lowercased and trimmed, got %q", cfg.SenderProvider)
	}
	if cfg.PollInterval != 90*time.Second {
		t.Errorf("expected poll interval 90s, got %s", cfg.PollInterval)
	}
	if cfg.DaysAhead != 30 {
		t.Errorf("expected days ahead 30, got %d", cfg.DaysAhead)
	}
	want := []int64{21430526, 99}
	if len(cfg.BlockedProfessionalIDs) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.BlockedProfessionalIDs)
	}
	for i, id := range want {
		if cfg.BlockedProfessionalIDs[i] != id {
			t.Errorf("expected blocked id %d at %d, got %d", id, i, cfg.BlockedProfessionalIDs[i])
		}
	}
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("DAYS_AHEAD", "not-a-number")
	t.Setenv("POLL_INTERVAL", "soon")

	cfg := Load()

	if cfg.DaysAhead != 60 {
		t.Errorf("expected fallback 60, got %d", cfg.DaysAhead)
	}
	if cfg.PollInterval != 5*time.Minute {
		t.Errorf("expected fallback 5m, got %s", cfg.PollInterval)
	}
}
