// Package config loads and saves convgauge configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all convgauge configuration.
type Config struct {
	General GeneralConfig `toml:"general"`
	Monitor MonitorConfig `toml:"monitor"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	Plan           string `toml:"plan"`
	TranscriptPath string `toml:"transcript_path,omitempty"`
	StatePath      string `toml:"state_path,omitempty"`
}

// MonitorConfig holds monitor runtime settings.
type MonitorConfig struct {
	Addr         string `toml:"addr"`
	PollSecs     int    `toml:"poll_secs"`
	RefreshSecs  int    `toml:"refresh_secs"`
	AlertsBuffer int    `toml:"alerts_buffer"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			Plan: "pro",
		},
		Monitor: MonitorConfig{
			Addr:         "127.0.0.1:8791",
			PollSecs:     2,
			RefreshSecs:  2,
			AlertsBuffer: 200,
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "convgauge")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "convgauge")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// PollInterval returns the transcript poll interval with a sane floor.
func (m MonitorConfig) PollInterval() time.Duration {
	if m.PollSecs < 1 {
		return 2 * time.Second
	}
	return time.Duration(m.PollSecs) * time.Second
}

// RefreshInterval returns the display refresh interval with a sane floor.
func (m MonitorConfig) RefreshInterval() time.Duration {
	if m.RefreshSecs < 1 {
		return 2 * time.Second
	}
	return time.Duration(m.RefreshSecs) * time.Second
}
