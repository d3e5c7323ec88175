package flow

import "errors"

var (
	// ErrBusy is returned when a non-blocking caller finds the token taken.
	// It is transient; the caller may retry.
	ErrBusy = errors.New("flow: busy")

	// ErrInterrupted is returned when a blocking wait is cancelled.
	ErrInterrupted = errors.New("flow: interrupted")
)
