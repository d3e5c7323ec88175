package device

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bft-labs/multiflow/pkg/flow"
	"github.com/bft-labs/multiflow/pkg/log"
)

// DefaultCommitDelay is how long a low-priority write waits before it is committed.
const DefaultCommitDelay = 5 * time.Second

// DefaultNotifyBuffer is the number of completions a session can hold unread.
const DefaultNotifyBuffer = 16

// Config holds per-device tunables.
type Config struct {
	// Capacity is the byte capacity of each flow.
	// Default: flow.DefaultCapacity (131072)
	Capacity int

	// CommitDelay is the delay before a low-priority write is committed.
	// Default: 5 seconds
	CommitDelay time.Duration

	// NotifyBuffer is the completion channel size of each session.
	// Default: 16
	NotifyBuffer int
}

func (c *Config) setDefaults() {
	if c.Capacity <= 0 {
		c.Capacity = flow.DefaultCapacity
	}
	if c.CommitDelay < 0 {
		c.CommitDelay = 0
	}
	if c.NotifyBuffer <= 0 {
		c.NotifyBuffer = DefaultNotifyBuffer
	}
}

var sessionIDs atomic.Uint64

// Device owns one flow per priority and the worker that commits deferred writes.
type Device struct {
	minor    int
	cfg      Config
	flows    [2]*flow.Flow
	worker   *worker
	started  atomic.Bool
	enabled  atomic.Bool
	sessions atomic.Int64
	logger   log.Logger
	observer Observer
}

// New creates an enabled device. Its worker does not run until Run is called.
func New(minor int, cfg Config, logger log.Logger, observer Observer) *Device {
	cfg.setDefaults()
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	d := &Device{
		minor:    minor,
		cfg:      cfg,
		worker:   newWorker(),
		logger:   logger,
		observer: observer,
	}
	for _, p := range Priorities {
		d.flows[p] = flow.New(cfg.Capacity)
	}
	d.enabled.Store(true)
	return d
}

// Minor returns the device number.
func (d *Device) Minor() int { return d.minor }

// Flow returns the flow serving priority p.
func (d *Device) Flow(p Priority) *flow.Flow { return d.flows[p] }

// Enabled reports whether new sessions may attach.
func (d *Device) Enabled() bool { return d.enabled.Load() }

// Enable allows new sessions to attach.
func (d *Device) Enable() {
	if !d.enabled.Swap(true) {
		d.logger.Info("device enabled", log.Minor(d.minor))
	}
}

// Disable refuses new sessions. Sessions already open keep working.
func (d *Device) Disable() {
	if d.enabled.Swap(false) {
		d.logger.Info("device disabled", log.Minor(d.minor))
	}
}

// Open attaches a new session with default settings: high priority,
// blocking, maximum timeout.
func (d *Device) Open() (*Session, error) {
	if !d.Enabled() {
		return nil, fmt.Errorf("minor %d: %w", d.minor, ErrDeviceDisabled)
	}
	s := newSession(sessionIDs.Add(1), d)
	d.sessions.Add(1)
	d.logger.Info("session opened", log.Minor(d.minor), log.Session(s.id))
	return s, nil
}

// Run drives the deferred-commit worker until ctx is done. Commits still
// queued at that point are applied immediately before Run returns. A device
// worker runs at most once; later calls return ErrClosed.
func (d *Device) Run(ctx context.Context) error {
	if !d.started.CompareAndSwap(false, true) {
		return ErrClosed
	}
	d.worker.run(ctx, d.commit)
	d.logger.Debug("device worker stopped", log.Minor(d.minor))
	return nil
}

// Stats returns a lock-free, possibly stale view of the device counters.
func (d *Device) Stats() Stats {
	st := Stats{
		Minor:    d.minor,
		Enabled:  d.Enabled(),
		Sessions: int(d.sessions.Load()),
		Deferred: d.worker.pending(),
	}
	for _, p := range Priorities {
		f := d.flows[p]
		st.Flows[p] = FlowStats{
			Priority: p,
			Capacity: f.Capacity(),
			Used:     f.Used(),
			Reserved: f.Reserved(),
			Waiters:  f.Waiters(),
		}
	}
	return st
}

func (d *Device) write(ctx context.Context, s *Session, p []byte) (int, error) {
	st := s.settings()
	f := d.flows[st.priority]

	g, out := f.Acquire(ctx, st.mode(), st.timeout, flow.Writable)
	if out != flow.Acquired {
		d.logger.Debug("write not admitted",
			log.Minor(d.minor), log.Priority(st.priority.String()), log.String("outcome", out.String()))
		return 0, outcomeErr(ctx, out)
	}

	if st.priority == High {
		n := g.Write(p)
		d.logger.Debug("write completed",
			log.Minor(d.minor), log.Priority(st.priority.String()), log.Bytes(n))
		return n, nil
	}

	pending := g.Reserve(p)
	n := pending.Len()
	now := time.Now()
	task := &commitTask{
		pending:  pending,
		session:  s.id,
		notifier: s,
		accepted: now,
		due:      now.Add(d.cfg.CommitDelay),
	}
	if err := d.worker.submit(task); err != nil {
		pending.Abort()
		return 0, fmt.Errorf("minor %d: %w", d.minor, err)
	}
	d.logger.Debug("deferred write accepted",
		log.Minor(d.minor), log.Session(s.id), log.Bytes(n), log.Duration("delay", d.cfg.CommitDelay))
	return n, nil
}

func (d *Device) read(ctx context.Context, s *Session, p []byte) (int, error) {
	st := s.settings()
	f := d.flows[st.priority]

	g, out := f.Acquire(ctx, st.mode(), st.timeout, flow.Readable)
	if out != flow.Acquired {
		d.logger.Debug("read not admitted",
			log.Minor(d.minor), log.Priority(st.priority.String()), log.String("outcome", out.String()))
		return 0, outcomeErr(ctx, out)
	}

	n := g.Read(p)
	d.logger.Debug("read completed",
		log.Minor(d.minor), log.Priority(st.priority.String()), log.Bytes(n))
	return n, nil
}

// commit runs on the worker goroutine.
func (d *Device) commit(t *commitTask) {
	n := t.pending.Commit()
	d.logger.Info("deferred write committed",
		log.Minor(d.minor), log.Session(t.session), log.Bytes(n))
	if d.observer != nil {
		d.observer.OnCommit(d.minor, n, time.Since(t.accepted))
	}

	c := Completion{Minor: d.minor, Session: t.session, Bytes: n, Committed: time.Now()}
	if err := t.notifier.Notify(c); err != nil {
		d.logger.Warn("unable to deliver completion",
			log.Minor(d.minor), log.Session(t.session), log.Err(err))
		if d.observer != nil {
			d.observer.OnNotifyError(d.minor, t.session, err)
		}
	}
}

// outcomeErr maps admission outcomes to session results. NotReady and
// TimedOut are zero-length results, not errors.
func outcomeErr(ctx context.Context, out flow.Outcome) error {
	switch out {
	case flow.Busy:
		return flow.ErrBusy
	case flow.Interrupted:
		return fmt.Errorf("%w: %w", flow.ErrInterrupted, context.Cause(ctx))
	default:
		return nil
	}
}

// FlowStats are the observable counters of one flow.
type FlowStats struct {
	Priority Priority
	Capacity int
	Used     int
	Reserved int
	Waiters  int
}

// Stats are the observable counters of a device.
type Stats struct {
	Minor    int
	Enabled  bool
	Sessions int
	Deferred int
	Flows    [2]FlowStats
}
