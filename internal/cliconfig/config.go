package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/multiflow/pkg/multiflow"
)

// Config holds CLI configuration for multiflow.
type Config struct {
	Devices         int
	Capacity        int
	CommitDelay     time.Duration
	NotifyBuffer    int
	ShutdownTimeout time.Duration
	Disabled        []int

	// Minor is the device the shell attaches to first.
	Minor int
	// EnableFile is a TOML file listing disabled minors, watched at runtime.
	EnableFile string
	// StatsInterval enables periodic stats logging when positive.
	StatsInterval time.Duration
	LogLevel      string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Devices:         multiflow.DefaultDevices,
		Capacity:        131072,
		CommitDelay:     5 * time.Second,
		NotifyBuffer:    16,
		ShutdownTimeout: 30 * time.Second,
		LogLevel:        "info",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Minor < 0 || c.Minor >= c.Devices {
		return fmt.Errorf("minor %d out of range [0, %d)", c.Minor, c.Devices)
	}
	if c.StatsInterval < 0 {
		return fmt.Errorf("stats interval must not be negative")
	}
	lib := c.Library()
	return lib.Validate()
}

// Library converts the CLI configuration to the device table configuration.
func (c *Config) Library() multiflow.Config {
	return multiflow.Config{
		Devices:         c.Devices,
		Capacity:        c.Capacity,
		CommitDelay:     c.CommitDelay,
		NotifyBuffer:    c.NotifyBuffer,
		ShutdownTimeout: c.ShutdownTimeout,
		Disabled:        append([]int(nil), c.Disabled...),
	}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntPtr sets an int value, zero included, if present and flag not changed.
func (s *configSetter) setIntPtr(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setInts replaces a list if the source is not nil and flag not changed.
func (s *configSetter) setInts(flag string, value []int, dst *[]int) {
	if value == nil || s.changed[flag] {
		return
	}
	out := make([]int, len(value))
	copy(out, value)
	*dst = out
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setIntFromString parses a string to int and sets the destination if positive.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setMinorFromString is setIntFromString that accepts zero.
func (s *configSetter) setMinorFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

// setIntsFromString parses a comma-separated list such as "1,5".
func (s *configSetter) setIntsFromString(flag, value string, dst *[]int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("parse %s: %w", flag, err)
		}
		out = append(out, i)
	}
	*dst = out
	return nil
}
