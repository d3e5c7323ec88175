package device

import "time"

// Completion reports that a deferred low-priority write was committed.
type Completion struct {
	Minor     int
	Session   uint64
	Bytes     int
	Committed time.Time
}

// Notifier receives completions for the writes it issued. Notify must not
// block; delivery is best-effort and a returned error is only logged.
type Notifier interface {
	Notify(c Completion) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Completion) error

// Notify calls fn(c).
func (fn NotifierFunc) Notify(c Completion) error { return fn(c) }

// Observer is told about deferred commits as the worker executes them.
// Calls are made from the device worker goroutine and should return quickly.
type Observer interface {
	OnCommit(minor, bytes int, delay time.Duration)
	OnNotifyError(minor int, session uint64, err error)
}
