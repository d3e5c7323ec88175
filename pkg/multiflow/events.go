package multiflow

import (
	"time"

	"github.com/bft-labs/multiflow/pkg/device"
	"github.com/bft-labs/multiflow/pkg/lifecycle"
)

// State is the lifecycle state of a device table.
type State = lifecycle.State

// Lifecycle states.
const (
	StateStopped  = lifecycle.StateStopped
	StateStarting = lifecycle.StateStarting
	StateRunning  = lifecycle.StateRunning
	StateStopping = lifecycle.StateStopping
	StateCrashed  = lifecycle.StateCrashed
)

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// CommitEvent is emitted when a deferred low-priority write becomes visible.
type CommitEvent struct {
	Minor int
	Bytes int
	// Delay is the time between acceptance and commit.
	Delay time.Duration
}

// NotifyErrorEvent is emitted when a completion could not be delivered to
// its session.
type NotifyErrorEvent struct {
	Minor   int
	Session uint64
	Error   error
}

// EventHandler receives device table events. Methods are called
// synchronously from lifecycle and device worker goroutines and should
// return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnCommit(event CommitEvent)
	OnNotifyError(event NotifyErrorEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnCommit(CommitEvent)           {}
func (BaseEventHandler) OnNotifyError(NotifyErrorEvent) {}

// eventEmitterWrapper adapts EventHandler to the lifecycle and device hooks.
type eventEmitterWrapper struct {
	handler EventHandler
}

var (
	_ lifecycle.EventEmitter = (*eventEmitterWrapper)(nil)
	_ device.Observer        = (*eventEmitterWrapper)(nil)
)

func (e *eventEmitterWrapper) OnStateChange(previous, current lifecycle.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{Previous: previous, Current: current, Reason: reason})
}

func (e *eventEmitterWrapper) OnCommit(minor, bytes int, delay time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnCommit(CommitEvent{Minor: minor, Bytes: bytes, Delay: delay})
}

func (e *eventEmitterWrapper) OnNotifyError(minor int, session uint64, err error) {
	if e.handler == nil {
		return
	}
	e.handler.OnNotifyError(NotifyErrorEvent{Minor: minor, Session: session, Error: err})
}
