package multiflow

import (
	"fmt"
	"time"

	"github.com/bft-labs/multiflow/pkg/device"
	"github.com/bft-labs/multiflow/pkg/flow"
	"github.com/bft-labs/multiflow/pkg/lifecycle"
)

// DefaultDevices is the number of minors in a device table.
const DefaultDevices = 128

// Config holds the settings of a device table.
type Config struct {
	// Devices is the number of minors, numbered 0..Devices-1.
	// Default: 128
	Devices int

	// Capacity is the byte capacity of every flow.
	// Default: 131072
	Capacity int

	// CommitDelay is how long a low-priority write waits before it becomes
	// visible to readers.
	// Default: 5 seconds
	CommitDelay time.Duration

	// NotifyBuffer is the number of completions a session can hold unread.
	// Default: 16
	NotifyBuffer int

	// ShutdownTimeout bounds how long Stop waits for deferred commits to drain.
	// Default: 30 seconds
	ShutdownTimeout time.Duration

	// Disabled lists minors that refuse new sessions at start.
	Disabled []int
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	if c.Devices == 0 {
		c.Devices = DefaultDevices
	}
	if c.Capacity == 0 {
		c.Capacity = flow.DefaultCapacity
	}
	if c.CommitDelay == 0 {
		c.CommitDelay = device.DefaultCommitDelay
	}
	if c.NotifyBuffer == 0 {
		c.NotifyBuffer = device.DefaultNotifyBuffer
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = lifecycle.ShutdownTimeout
	}
}

// Validate checks the configuration. Call SetDefaults first.
func (c *Config) Validate() error {
	if c.Devices < 1 {
		return fmt.Errorf("%w: devices must be positive, got %d", ErrInvalidConfig, c.Devices)
	}
	if c.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	}
	if c.CommitDelay < 0 {
		return fmt.Errorf("%w: commit delay must not be negative, got %s", ErrInvalidConfig, c.CommitDelay)
	}
	if c.NotifyBuffer < 1 {
		return fmt.Errorf("%w: notify buffer must be positive, got %d", ErrInvalidConfig, c.NotifyBuffer)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown timeout must be positive, got %s", ErrInvalidConfig, c.ShutdownTimeout)
	}
	for _, minor := range c.Disabled {
		if minor < 0 || minor >= c.Devices {
			return fmt.Errorf("%w: disabled minor %d out of range [0, %d)", ErrInvalidConfig, minor, c.Devices)
		}
	}
	return nil
}

func (c *Config) deviceConfig() device.Config {
	return device.Config{
		Capacity:     c.Capacity,
		CommitDelay:  c.CommitDelay,
		NotifyBuffer: c.NotifyBuffer,
	}
}
