package device

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/multiflow/pkg/flow"
	"github.com/bft-labs/multiflow/pkg/log"
)

// Timeout bounds for blocking operations, in seconds.
const (
	MinTimeoutSeconds = 1
	MaxTimeoutSeconds = 3600
)

// ClampTimeout converts seconds to a duration within [MinTimeoutSeconds,
// MaxTimeoutSeconds]. Zero and negative values map to the minimum.
func ClampTimeout(seconds int) time.Duration {
	switch {
	case seconds < MinTimeoutSeconds:
		seconds = MinTimeoutSeconds
	case seconds > MaxTimeoutSeconds:
		seconds = MaxTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

// Session is one client's attachment to a device.
type Session struct {
	id     uint64
	device *Device

	mu       sync.Mutex
	priority Priority
	blocking bool
	timeout  time.Duration
	closed   bool
	notify   chan Completion
}

type settings struct {
	priority Priority
	blocking bool
	timeout  time.Duration
}

func (st settings) mode() flow.Mode {
	if st.blocking {
		return flow.Blocking
	}
	return flow.NonBlocking
}

func newSession(id uint64, d *Device) *Session {
	return &Session{
		id:       id,
		device:   d,
		priority: High,
		blocking: true,
		timeout:  ClampTimeout(MaxTimeoutSeconds),
		notify:   make(chan Completion, d.cfg.NotifyBuffer),
	}
}

// ID returns the session identifier carried by completions.
func (s *Session) ID() uint64 { return s.id }

// Minor returns the device the session is attached to.
func (s *Session) Minor() int { return s.device.minor }

// Priority returns the flow the session reads and writes.
func (s *Session) Priority() Priority {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.priority
}

// Blocking reports whether operations wait for the flow.
func (s *Session) Blocking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocking
}

// Timeout returns the bound on blocking waits.
func (s *Session) Timeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeout
}

// SetPriority switches the session to another flow. Unknown priorities are ignored.
func (s *Session) SetPriority(p Priority) {
	if !p.valid() {
		return
	}
	s.mu.Lock()
	s.priority = p
	s.mu.Unlock()
	s.device.logger.Info("priority switched",
		log.Minor(s.device.minor), log.Session(s.id), log.Priority(p.String()))
}

// SetBlocking switches between blocking and non-blocking operations.
func (s *Session) SetBlocking(blocking bool) {
	s.mu.Lock()
	s.blocking = blocking
	s.mu.Unlock()
	s.device.logger.Info("blocking mode switched",
		log.Minor(s.device.minor), log.Session(s.id), log.Bool("blocking", blocking))
}

// SetTimeout sets the bound on blocking waits, clamped by ClampTimeout,
// and switches the session to blocking mode. It returns the applied timeout.
func (s *Session) SetTimeout(seconds int) time.Duration {
	d := ClampTimeout(seconds)
	s.mu.Lock()
	s.timeout = d
	s.blocking = true
	s.mu.Unlock()
	s.device.logger.Info("timeout set",
		log.Minor(s.device.minor), log.Session(s.id), log.Duration("timeout", d))
	return d
}

func (s *Session) settings() settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return settings{priority: s.priority, blocking: s.blocking, timeout: s.timeout}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Write writes p to the session's flow and returns the number of bytes
// accepted. Bytes beyond the free space are dropped silently. For low
// priority the bytes are committed later and a Completion is delivered on
// Notifications.
//
// A non-blocking write on a full flow and a blocking write that times out
// both return (0, nil). flow.ErrBusy and flow.ErrInterrupted are returned
// when the token is taken or ctx is cancelled.
func (s *Session) Write(ctx context.Context, p []byte) (int, error) {
	if s.isClosed() {
		return 0, ErrSessionClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	return s.device.write(ctx, s, p)
}

// Read drains up to len(p) bytes from the session's flow. Short reads are
// normal. Results for an empty flow follow the same rules as Write.
func (s *Session) Read(ctx context.Context, p []byte) (int, error) {
	if s.isClosed() {
		return 0, ErrSessionClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	return s.device.read(ctx, s, p)
}

// Notifications delivers a Completion for each committed low-priority
// write. The channel is closed by Close.
func (s *Session) Notifications() <-chan Completion { return s.notify }

// Notify queues c without blocking.
func (s *Session) Notify(c Completion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	select {
	case s.notify <- c:
		return nil
	default:
		return ErrNotificationDropped
	}
}

// Close detaches the session. Deferred writes it issued are still
// committed, but their completions are dropped.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.closed = true
	close(s.notify)
	s.mu.Unlock()

	s.device.sessions.Add(-1)
	s.device.logger.Info("session closed", log.Minor(s.device.minor), log.Session(s.id))
	return nil
}
