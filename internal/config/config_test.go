package config

import (
	"os"
	"path/filepath"
	"testing"
)

func withConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "convgauge")
}

func TestLoadDefaults(t *testing.T) {
	withConfigDir(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.General.Plan != "pro" {
		t.Fatalf("default plan = %q, want pro", cfg.General.Plan)
	}
	if cfg.Monitor.Addr != "127.0.0.1:8791" {
		t.Fatalf("default addr = %q", cfg.Monitor.Addr)
	}
}

func TestSaveAndLoad(t *testing.T) {
	withConfigDir(t)

	cfg := DefaultConfig()
	cfg.General.Plan = "max"
	cfg.General.TranscriptPath = "/tmp/transcript.jsonl"

	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.General.Plan != "max" {
		t.Fatalf("plan = %q, want max", loaded.General.Plan)
	}
	if loaded.General.TranscriptPath != "/tmp/transcript.jsonl" {
		t.Fatalf("transcript path = %q", loaded.General.TranscriptPath)
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	configDir := withConfigDir(t)

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.toml"), []byte("{{invalid"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestIntervalFloors(t *testing.T) {
	m := MonitorConfig{PollSecs: 0, RefreshSecs: -5}
	if m.PollInterval().Seconds() != 2 {
		t.Fatalf("poll interval floor = %s", m.PollInterval())
	}
	if m.RefreshInterval().Seconds() != 2 {
		t.Fatalf("refresh interval floor = %s", m.RefreshInterval())
	}
}
