package multiflow

import (
	"errors"

	"github.com/bft-labs/multiflow/pkg/device"
	"github.com/bft-labs/multiflow/pkg/flow"
	"github.com/bft-labs/multiflow/pkg/lifecycle"
)

// Lifecycle errors.
var (
	ErrAlreadyRunning  = lifecycle.ErrAlreadyRunning
	ErrNotRunning      = lifecycle.ErrNotRunning
	ErrShutdownTimeout = lifecycle.ErrShutdownTimeout
)

// ErrInvalidConfig is wrapped by every Config.Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Device and session errors, re-exported for callers that only import this package.
var (
	ErrNoSuchDevice        = device.ErrNoSuchDevice
	ErrDeviceDisabled      = device.ErrDeviceDisabled
	ErrSessionClosed       = device.ErrSessionClosed
	ErrClosed              = device.ErrClosed
	ErrNotificationDropped = device.ErrNotificationDropped
	ErrBusy                = flow.ErrBusy
	ErrInterrupted         = flow.ErrInterrupted
)
