package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Devices         int    `toml:"devices"`
	Capacity        int    `toml:"capacity"`
	CommitDelay     string `toml:"commit_delay"`
	NotifyBuffer    int    `toml:"notify_buffer"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
	Disabled        []int  `toml:"disabled"`
	Minor           *int   `toml:"minor"`
	EnableFile      string `toml:"enable_file"`
	StatsInterval   string `toml:"stats_interval"`
	LogLevel        string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.multiflow/config.toml, or "" if the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".multiflow", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setInt("devices", fc.Devices, &cfg.Devices)
	s.setInt("capacity", fc.Capacity, &cfg.Capacity)
	s.setInt("notify-buffer", fc.NotifyBuffer, &cfg.NotifyBuffer)
	s.setInts("disabled", fc.Disabled, &cfg.Disabled)
	s.setIntPtr("minor", fc.Minor, &cfg.Minor)
	s.setString("enable-file", fc.EnableFile, &cfg.EnableFile)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("commit-delay", fc.CommitDelay, &cfg.CommitDelay); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}
	if err := s.setDuration("stats-interval", fc.StatsInterval, &cfg.StatsInterval); err != nil {
		return err
	}
	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
