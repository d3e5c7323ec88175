package flow

import (
	"container/list"
	"context"
	"time"
)

// Mode selects how Acquire behaves when the flow is not immediately usable.
type Mode int

const (
	Blocking Mode = iota
	NonBlocking
)

func (m Mode) String() string {
	switch m {
	case Blocking:
		return "blocking"
	case NonBlocking:
		return "non-blocking"
	default:
		return "unknown"
	}
}

// Outcome is the result of an admission attempt.
type Outcome int

const (
	// Acquired means the caller owns the token and the predicate held.
	Acquired Outcome = iota
	// NotReady means a non-blocking caller got the token but the predicate was false.
	NotReady
	// TimedOut means a blocking wait elapsed without the predicate holding.
	TimedOut
	// Interrupted means a blocking wait was cancelled through its context.
	Interrupted
	// Busy means a non-blocking caller found the token taken.
	Busy
)

func (o Outcome) String() string {
	switch o {
	case Acquired:
		return "acquired"
	case NotReady:
		return "not-ready"
	case TimedOut:
		return "timed-out"
	case Interrupted:
		return "interrupted"
	case Busy:
		return "busy"
	default:
		return "unknown"
	}
}

// Predicate decides whether a flow at the given level can serve an operation.
// It is evaluated with the flow's internal lock held and must not block.
type Predicate func(Level) bool

var (
	// Readable holds when at least one byte can be read.
	Readable Predicate = func(l Level) bool { return l.Used > 0 }

	// Writable holds when at least one byte can be written.
	Writable Predicate = func(l Level) bool { return l.Free() > 0 }
)

type waiter struct {
	ready   Predicate
	granted chan struct{}
	elem    *list.Element
}

// Acquire obtains the flow's token once ready holds.
//
// In NonBlocking mode it never waits: Busy if the token is taken, NotReady
// if the predicate is false. In Blocking mode the caller is queued and
// suspended until a release hands it the token, timeout elapses
// (TimedOut) or ctx is done (Interrupted). A timeout <= 0 waits without a
// deadline. On any outcome other than Acquired the returned Guard is nil and
// the caller does not hold the token.
func (f *Flow) Acquire(ctx context.Context, mode Mode, timeout time.Duration, ready Predicate) (*Guard, Outcome) {
	if mode == NonBlocking {
		return f.tryAcquire(ready)
	}

	f.waiters.Add(1)
	defer f.waiters.Add(-1)

	f.mu.Lock()
	if !f.held && ready(f.levelLocked()) {
		f.held = true
		f.mu.Unlock()
		return &Guard{f: f}, Acquired
	}
	w := &waiter{ready: ready, granted: make(chan struct{})}
	w.elem = f.queue.PushBack(w)
	f.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	var outcome Outcome
	select {
	case <-w.granted:
		return &Guard{f: f}, Acquired
	case <-expired:
		outcome = TimedOut
	case <-ctx.Done():
		outcome = Interrupted
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if w.elem != nil {
		f.queue.Remove(w.elem)
		w.elem = nil
		return nil, outcome
	}

	// The token was handed over while the timer or context fired.
	if outcome == TimedOut {
		return &Guard{f: f}, Acquired
	}
	f.releaseLocked()
	return nil, Interrupted
}

func (f *Flow) tryAcquire(ready Predicate) (*Guard, Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held {
		return nil, Busy
	}
	if !ready(f.levelLocked()) {
		f.wakeLocked()
		return nil, NotReady
	}
	f.held = true
	return &Guard{f: f}, Acquired
}
