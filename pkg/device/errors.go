package device

import "errors"

var (
	// ErrNoSuchDevice is returned when a minor number has no device.
	ErrNoSuchDevice = errors.New("device: no such device")

	// ErrDeviceDisabled is returned when attaching to a disabled device.
	ErrDeviceDisabled = errors.New("device: disabled")

	// ErrSessionClosed is returned by operations on a detached session.
	ErrSessionClosed = errors.New("device: session closed")

	// ErrClosed is returned when a deferred write is submitted after the
	// device worker has shut down.
	ErrClosed = errors.New("device: closed")

	// ErrNotificationDropped is returned when a completion could not be
	// queued for the session because its buffer was full.
	ErrNotificationDropped = errors.New("device: notification dropped")
)
