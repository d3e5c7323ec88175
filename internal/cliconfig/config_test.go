package cliconfig

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Devices != 128 {
		t.Errorf("Devices = %v, want 128", cfg.Devices)
	}
	if cfg.Capacity != 131072 {
		t.Errorf("Capacity = %v, want 131072", cfg.Capacity)
	}
	if cfg.CommitDelay != 5*time.Second {
		t.Errorf("CommitDelay = %v, want 5s", cfg.CommitDelay)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"minor out of range", func(c *Config) { c.Minor = 128 }, true},
		{"negative minor", func(c *Config) { c.Minor = -1 }, true},
		{"last minor", func(c *Config) { c.Minor = 127 }, false},
		{"negative stats interval", func(c *Config) { c.StatsInterval = -time.Second }, true},
		{"zero devices", func(c *Config) { c.Devices = 0; c.Minor = 0 }, true},
		{"disabled out of range", func(c *Config) { c.Disabled = []int{200} }, true},
		{"negative commit delay", func(c *Config) { c.CommitDelay = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Library(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Devices = 4
	cfg.Disabled = []int{1, 3}

	lib := cfg.Library()
	if lib.Devices != 4 || lib.Capacity != cfg.Capacity || lib.CommitDelay != cfg.CommitDelay {
		t.Errorf("Library() = %+v", lib)
	}

	lib.Disabled[0] = 2
	if cfg.Disabled[0] != 1 {
		t.Error("Library() shares the Disabled slice")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Logger(&buf, "warn")
	if err != nil {
		t.Fatalf("Logger() error = %v", err)
	}

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn message missing: %q", out)
	}

	if _, err := Logger(&buf, "loud"); err == nil {
		t.Error("Logger() accepted an unknown level")
	}
}
