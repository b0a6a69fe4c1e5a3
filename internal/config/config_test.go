package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeConfig(t, "telegram:\n  token: \"123:abc\"\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Engine.ScanInterval.Std() != 6*time.Hour {
		t.Fatalf("ScanInterval = %v, want 6h", cfg.Engine.ScanInterval.Std())
	}
	if cfg.Engine.FollowUpDelay.Std() != 4*time.Hour {
		t.Fatalf("FollowUpDelay = %v, want 4h", cfg.Engine.FollowUpDelay.Std())
	}
	if cfg.Engine.CooldownGrace.Std() != 30*time.Minute {
		t.Fatalf("CooldownGrace = %v, want 30m", cfg.Engine.CooldownGrace.Std())
	}
	if cfg.Dispatch.RatePerSec != 20 || cfg.Dispatch.RetryMax != 5 {
		t.Fatalf("unexpected dispatch defaults: %+v", cfg.Dispatch)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Console == nil || !*cfg.Logging.Console {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.Storage.Path == "" {
		t.Fatal("storage path default missing")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeConfig(t, strings.Join([]string{
		"telegram:",
		"  token: \"123:abc\"",
		"  admin_chat_id: 42",
		"engine:",
		"  scan_interval: 1h30m",
		"  cooldown_grace: 10m",
		"dispatch:",
		"  rate_per_sec: 5",
		"",
	}, "\n")))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.AdminChatID != 42 {
		t.Fatalf("AdminChatID = %d, want 42", cfg.Telegram.AdminChatID)
	}
	if cfg.Engine.ScanInterval.Std() != 90*time.Minute {
		t.Fatalf("ScanInterval = %v, want 1h30m", cfg.Engine.ScanInterval.Std())
	}
	if cfg.Engine.CooldownGrace.Std() != 10*time.Minute {
		t.Fatalf("CooldownGrace = %v, want 10m", cfg.Engine.CooldownGrace.Std())
	}
	if cfg.Dispatch.RatePerSec != 5 {
		t.Fatalf("RatePerSec = %d, want 5", cfg.Dispatch.RatePerSec)
	}
}

func TestLoadRejectsInvalidConfigs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
	}{
		{"missing token", "logging:\n  level: debug\n"},
		{"unknown field", "telegram:\n  token: \"t\"\n  typo_field: 1\n"},
		{"bad duration", "telegram:\n  token: \"t\"\nengine:\n  scan_interval: soon\n"},
		{"integer duration", "telegram:\n  token: \"t\"\nengine:\n  scan_interval: 3600\n"},
		{"grace too long", "telegram:\n  token: \"t\"\nengine:\n  cooldown_grace: 6h\n"},
		{"rate over ceiling", "telegram:\n  token: \"t\"\ndispatch:\n  rate_per_sec: 31\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
