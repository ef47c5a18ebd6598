package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DeviceConfig stores per-device settings.
type DeviceConfig struct {
	Nickname string `yaml:"nickname,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	ADBPath         string                  `yaml:"adb_path,omitempty"`
	ServiceName     string                  `yaml:"service_name"`
	PairTimeoutS    int                     `yaml:"pair_timeout_s"`
	ConnectTimeoutS int                     `yaml:"connect_timeout_s"`
	FreshnessS      int                     `yaml:"freshness_window_s"`
	Devices         map[string]DeviceConfig `yaml:"devices,omitempty"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:     "questlink",
		PairTimeoutS:    10,
		ConnectTimeoutS: 15,
		FreshnessS:      30,
		Devices:         make(map[string]DeviceConfig),
	}
}

// PairTimeout returns the pairing handshake bound as a duration.
func (c *Config) PairTimeout() time.Duration {
	return time.Duration(c.PairTimeoutS) * time.Second
}

// ConnectTimeout returns the connect/validate bound as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutS) * time.Second
}

// FreshnessWindow returns how recent a pairing advertisement must be to
// count as a candidate.
func (c *Config) FreshnessWindow() time.Duration {
	return time.Duration(c.FreshnessS) * time.Second
}

// ConfigDir returns the config directory path.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "questlink")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "questlink")
}

// ConfigPath returns the config file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (*Config, error) {
	path := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Devices == nil {
		cfg.Devices = make(map[string]DeviceConfig)
	}
	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(ConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
