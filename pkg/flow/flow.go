package flow

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// DefaultCapacity is the number of bytes a Flow holds when no capacity is given.
const DefaultCapacity = 32 * 4096

// compactAfter is the number of dead head slots tolerated before the
// segment arena is shifted down.
const compactAfter = 64

// Level is a consistent view of a Flow's byte accounting.
type Level struct {
	Capacity int
	Used     int
	Reserved int
}

// Free returns the bytes still available to new writers.
func (l Level) Free() int {
	return l.Capacity - l.Used - l.Reserved
}

// Flow is a FIFO of segments bounded by a byte capacity.
//
// All fields below mu are only touched with mu held. held is the operation
// token; only its owner mutates the segment list and byte counters.
type Flow struct {
	capacity int

	mu       sync.Mutex
	held     bool
	segs     []Segment
	head     int
	used     int
	reserved int
	queue    list.List

	usedBytes     atomic.Int64
	reservedBytes atomic.Int64
	waiters       atomic.Int64
}

// New creates an empty Flow. A capacity <= 0 selects DefaultCapacity.
func New(capacity int) *Flow {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Flow{capacity: capacity}
}

// Capacity returns the configured byte capacity.
func (f *Flow) Capacity() int { return f.capacity }

// Used returns the number of readable bytes. The value may be stale.
func (f *Flow) Used() int { return int(f.usedBytes.Load()) }

// Reserved returns the bytes promised to pending deferred writes. The value may be stale.
func (f *Flow) Reserved() int { return int(f.reservedBytes.Load()) }

// Waiters returns the number of callers currently inside a blocking Acquire.
func (f *Flow) Waiters() int { return int(f.waiters.Load()) }

// Level returns a consistent snapshot of the byte accounting.
func (f *Flow) Level() Level {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levelLocked()
}

// Segments returns the number of queued segments.
func (f *Flow) Segments() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.segs) - f.head
}

func (f *Flow) levelLocked() Level {
	return Level{Capacity: f.capacity, Used: f.used, Reserved: f.reserved}
}

func (f *Flow) publishLocked() {
	f.usedBytes.Store(int64(f.used))
	f.reservedBytes.Store(int64(f.reserved))
}

func (f *Flow) appendLocked(seg Segment) {
	if seg.Size() == 0 {
		return
	}
	f.segs = append(f.segs, seg)
	f.used += seg.Size()
}

// drainLocked copies from the head segments into dst until dst is full or
// the flow is empty. Exhausted segments are dropped before returning.
func (f *Flow) drainLocked(dst []byte) int {
	copied := 0
	for copied < len(dst) && f.head < len(f.segs) {
		seg := &f.segs[f.head]
		copied += seg.drain(dst[copied:])
		if seg.Exhausted() {
			f.segs[f.head] = Segment{}
			f.head++
		}
	}
	f.used -= copied

	switch {
	case f.head == len(f.segs):
		f.segs = f.segs[:0]
		f.head = 0
	case f.head >= compactAfter && f.head*2 >= len(f.segs):
		n := copy(f.segs, f.segs[f.head:])
		clear(f.segs[n:])
		f.segs = f.segs[:n]
		f.head = 0
	}
	return copied
}

// releaseLocked returns the token and hands it to the next eligible waiter.
func (f *Flow) releaseLocked() {
	f.held = false
	f.wakeLocked()
}

// wakeLocked hands a free token to the oldest waiter whose predicate holds.
// At most one waiter is woken per call.
func (f *Flow) wakeLocked() {
	if f.held {
		return
	}
	lvl := f.levelLocked()
	for e := f.queue.Front(); e != nil; e = e.Next() {
		w := e.Value.(*waiter)
		if !w.ready(lvl) {
			continue
		}
		f.queue.Remove(e)
		w.elem = nil
		f.held = true
		close(w.granted)
		return
	}
}
