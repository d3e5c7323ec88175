package device

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/multiflow/pkg/flow"
)

// commitTask is one accepted low-priority write waiting for its commit.
type commitTask struct {
	pending  *flow.Pending
	session  uint64
	notifier Notifier
	accepted time.Time
	due      time.Time
}

// worker runs deferred commits for one device, one at a time, in
// submission order.
type worker struct {
	mu     sync.Mutex
	queue  []*commitTask
	closed bool
	wake   chan struct{}
}

func newWorker() *worker {
	return &worker{wake: make(chan struct{}, 1)}
}

func (w *worker) submit(t *commitTask) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	w.queue = append(w.queue, t)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

func (w *worker) pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

func (w *worker) head() *commitTask {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return nil
	}
	return w.queue[0]
}

func (w *worker) pop() {
	w.mu.Lock()
	w.queue[0] = nil
	w.queue = w.queue[1:]
	w.mu.Unlock()
}

// run executes tasks as they fall due until ctx is done, then closes the
// queue and executes whatever is left without waiting.
func (w *worker) run(ctx context.Context, exec func(*commitTask)) {
	for {
		next := w.head()
		if next == nil {
			select {
			case <-ctx.Done():
				w.drain(exec)
				return
			case <-w.wake:
				continue
			}
		}

		if wait := time.Until(next.due); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				w.drain(exec)
				return
			case <-timer.C:
			}
		}
		w.pop()
		exec(next)
	}
}

func (w *worker) drain(exec func(*commitTask)) {
	w.mu.Lock()
	w.closed = true
	tasks := w.queue
	w.queue = nil
	w.mu.Unlock()

	for _, t := range tasks {
		exec(t)
	}
}
