package lifecycle

import "time"

// State represents the lifecycle state of a device table.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Manager manages the lifecycle state machine and the background workers
// (one deferred-commit worker per device) that belong to it.
type Manager interface {
	State() State
	CanStart() bool
	CanStop() bool

	// TransitionTo attempts to transition to a new state.
	TransitionTo(newState State, reason string) error

	// Go runs fn on a tracked worker goroutine.
	Go(fn func())

	// WaitWithTimeout waits for all workers to finish.
	// Returns ErrShutdownTimeout if the timeout expires.
	WaitWithTimeout(timeout time.Duration) error
}
