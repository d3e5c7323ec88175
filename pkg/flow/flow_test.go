package flow

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"
)

func mustAcquire(t *testing.T, f *Flow, ready Predicate) *Guard {
	t.Helper()
	g, out := f.Acquire(context.Background(), NonBlocking, 0, ready)
	if out != Acquired {
		t.Fatalf("Acquire() = %v, want acquired", out)
	}
	return g
}

func write(t *testing.T, f *Flow, p []byte) int {
	t.Helper()
	return mustAcquire(t, f, Writable).Write(p)
}

func read(t *testing.T, f *Flow, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	got := mustAcquire(t, f, Readable).Read(buf)
	return buf[:got]
}

func pattern(start, n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(start + i)
	}
	return p
}

func TestNew_DefaultCapacity(t *testing.T) {
	if got := New(0).Capacity(); got != 131072 {
		t.Errorf("Capacity() = %d, want 131072", got)
	}
	if got := New(100).Capacity(); got != 100 {
		t.Errorf("Capacity() = %d, want 100", got)
	}
}

func TestFlow_CapacityScenario(t *testing.T) {
	f := New(100)
	first := pattern(0, 60)
	second := pattern(60, 60)

	if n := write(t, f, first); n != 60 {
		t.Fatalf("first write = %d, want 60", n)
	}
	if f.Used() != 60 {
		t.Fatalf("Used() = %d, want 60", f.Used())
	}

	if n := write(t, f, second); n != 40 {
		t.Fatalf("second write = %d, want 40 (truncated)", n)
	}
	if f.Used() != 100 {
		t.Fatalf("Used() = %d, want 100", f.Used())
	}

	got := read(t, f, 50)
	if !bytes.Equal(got, first[:50]) {
		t.Fatalf("read 50 = %v, want first 50 bytes written", got)
	}
	if f.Used() != 50 {
		t.Fatalf("Used() = %d, want 50", f.Used())
	}

	got = read(t, f, 100)
	want := append(append([]byte{}, first[50:]...), second[:40]...)
	if !bytes.Equal(got, want) {
		t.Fatalf("read 100 = %v, want %v", got, want)
	}
	if f.Used() != 0 || f.Segments() != 0 {
		t.Fatalf("Used() = %d, Segments() = %d, want empty flow", f.Used(), f.Segments())
	}
}

func TestFlow_FIFOAcrossSegments(t *testing.T) {
	f := New(1024)
	var all []byte
	for i, size := range []int{1, 7, 13, 64, 3, 200} {
		p := pattern(i*31, size)
		all = append(all, p...)
		if n := write(t, f, p); n != size {
			t.Fatalf("write %d = %d, want %d", i, n, size)
		}
	}

	var got []byte
	for _, size := range []int{5, 5, 100, 1, 178} {
		got = append(got, read(t, f, size)...)
	}
	if !bytes.Equal(got, all) {
		t.Fatalf("reads returned bytes out of order")
	}
}

func TestFlow_PartialReadKeepsHead(t *testing.T) {
	f := New(100)
	write(t, f, []byte("abcdef"))

	if got := string(read(t, f, 2)); got != "ab" {
		t.Fatalf("read = %q, want ab", got)
	}
	if f.Segments() != 1 {
		t.Fatalf("Segments() = %d, want head segment kept", f.Segments())
	}
	if got := string(read(t, f, 2)); got != "cd" {
		t.Fatalf("read = %q, want cd", got)
	}
	if got := string(read(t, f, 10)); got != "ef" {
		t.Fatalf("read = %q, want ef", got)
	}
	if f.Segments() != 0 {
		t.Fatalf("Segments() = %d, want exhausted segment removed", f.Segments())
	}
}

func TestFlow_CompactsArena(t *testing.T) {
	f := New(1 << 16)
	for i := 0; i < 3*compactAfter; i++ {
		write(t, f, []byte{byte(i)})
	}
	for i := 0; i < 2*compactAfter; i++ {
		if got := read(t, f, 1); got[0] != byte(i) {
			t.Fatalf("read %d = %d", i, got[0])
		}
	}
	if f.Segments() != compactAfter {
		t.Fatalf("Segments() = %d, want %d", f.Segments(), compactAfter)
	}
	if got := read(t, f, 1); got[0] != byte(2*compactAfter) {
		t.Fatalf("read after compaction = %d, want %d", got[0], 2*compactAfter)
	}
}

func TestFlow_WriteReturnsMinOfFree(t *testing.T) {
	tests := []struct {
		name     string
		prefill  int
		reserved int
		n        int
		want     int
	}{
		{"empty flow", 0, 0, 30, 30},
		{"exact fit", 70, 0, 30, 30},
		{"truncated", 90, 0, 30, 10},
		{"reservation counts against capacity", 40, 50, 30, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(100)
			if tt.prefill > 0 {
				write(t, f, make([]byte, tt.prefill))
			}
			var pending *Pending
			if tt.reserved > 0 {
				pending = mustAcquire(t, f, Writable).Reserve(make([]byte, tt.reserved))
				// Hand the token back without committing so the test can write.
				f.mu.Lock()
				f.held = false
				f.mu.Unlock()
			}

			if got := write(t, f, make([]byte, tt.n)); got != tt.want {
				t.Errorf("write = %d, want %d", got, tt.want)
			}
			lvl := f.Level()
			if lvl.Used+lvl.Reserved > lvl.Capacity {
				t.Errorf("used %d + reserved %d exceeds capacity %d", lvl.Used, lvl.Reserved, lvl.Capacity)
			}
			if pending != nil && pending.Len() != tt.reserved {
				t.Errorf("pending.Len() = %d, want %d", pending.Len(), tt.reserved)
			}
		})
	}
}

func TestAcquire_NonBlockingEmptyAndFull(t *testing.T) {
	f := New(10)

	start := time.Now()
	g, out := f.Acquire(context.Background(), NonBlocking, time.Hour, Readable)
	if out != NotReady || g != nil {
		t.Fatalf("read on empty flow = (%v, %v), want not-ready", g, out)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatalf("non-blocking read suspended the caller")
	}

	write(t, f, make([]byte, 10))
	g, out = f.Acquire(context.Background(), NonBlocking, time.Hour, Writable)
	if out != NotReady || g != nil {
		t.Fatalf("write on full flow = (%v, %v), want not-ready", g, out)
	}

	// NotReady must leave the token free.
	if got := read(t, f, 10); len(got) != 10 {
		t.Fatalf("read = %d bytes, want 10", len(got))
	}
}

func TestAcquire_NonBlockingBusy(t *testing.T) {
	f := New(10)
	g := mustAcquire(t, f, Writable)

	if _, out := f.Acquire(context.Background(), NonBlocking, 0, Writable); out != Busy {
		t.Fatalf("Acquire() while held = %v, want busy", out)
	}
	g.Release()
	if _, out := f.Acquire(context.Background(), NonBlocking, 0, Writable); out != Acquired {
		t.Fatalf("Acquire() after release = %v, want acquired", out)
	}
}

func TestAcquire_BlockingTimeout(t *testing.T) {
	f := New(10)
	timeout := 150 * time.Millisecond

	start := time.Now()
	g, out := f.Acquire(context.Background(), Blocking, timeout, Readable)
	elapsed := time.Since(start)

	if out != TimedOut || g != nil {
		t.Fatalf("Acquire() = (%v, %v), want timed-out", g, out)
	}
	if elapsed < timeout {
		t.Fatalf("timed out after %v, before %v", elapsed, timeout)
	}
	if f.Waiters() != 0 {
		t.Fatalf("Waiters() = %d after timeout, want 0", f.Waiters())
	}
}

func TestAcquire_BlockingReadWokenByWrite(t *testing.T) {
	f := New(10)
	result := make(chan string, 1)

	go func() {
		g, out := f.Acquire(context.Background(), Blocking, 5*time.Second, Readable)
		if out != Acquired {
			result <- out.String()
			return
		}
		buf := make([]byte, 10)
		result <- string(buf[:g.Read(buf)])
	}()

	waitFor(t, func() bool { return f.Waiters() == 1 })
	write(t, f, []byte("hello"))

	select {
	case got := <-result:
		if got != "hello" {
			t.Fatalf("blocked reader got %q, want hello", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocked reader was not woken")
	}
}

func TestAcquire_BlockingWriteWokenByRead(t *testing.T) {
	f := New(4)
	write(t, f, []byte("full"))
	result := make(chan int, 1)

	go func() {
		g, out := f.Acquire(context.Background(), Blocking, 5*time.Second, Writable)
		if out != Acquired {
			result <- -1
			return
		}
		result <- g.Write([]byte("xyz"))
	}()

	waitFor(t, func() bool { return f.Waiters() == 1 })
	if got := string(read(t, f, 2)); got != "fu" {
		t.Fatalf("read = %q", got)
	}

	select {
	case n := <-result:
		if n != 2 {
			t.Fatalf("blocked writer wrote %d, want 2", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocked writer was not woken")
	}
	if got := string(read(t, f, 4)); got != "llxy" {
		t.Fatalf("read = %q, want llxy", got)
	}
}

func TestAcquire_Interrupted(t *testing.T) {
	f := New(10)
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan Outcome, 1)

	go func() {
		_, out := f.Acquire(ctx, Blocking, time.Hour, Readable)
		result <- out
	}()

	waitFor(t, func() bool { return f.Waiters() == 1 })
	cancel()

	select {
	case out := <-result:
		if out != Interrupted {
			t.Fatalf("Acquire() = %v, want interrupted", out)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancel did not abort the wait")
	}

	// The token must not be held after an interrupted wait.
	write(t, f, []byte("x"))
	if f.Waiters() != 0 {
		t.Fatalf("Waiters() = %d, want 0", f.Waiters())
	}
}

func TestAcquire_ExclusiveWakeInFIFOOrder(t *testing.T) {
	f := New(10)
	type result struct {
		id   int
		data string
	}
	results := make(chan result, 2)

	for id := 0; id < 2; id++ {
		id := id
		go func() {
			g, out := f.Acquire(context.Background(), Blocking, 2*time.Second, Readable)
			if out != Acquired {
				results <- result{id: id}
				return
			}
			buf := make([]byte, 10)
			results <- result{id: id, data: string(buf[:g.Read(buf)])}
		}()
		waitFor(t, func() bool { return queued(f) == id+1 })
	}

	write(t, f, []byte("a"))

	first := <-results
	if first.id != 0 || first.data != "a" {
		t.Fatalf("first wake = %+v, want reader 0 with \"a\"", first)
	}

	select {
	case r := <-results:
		t.Fatalf("second reader proceeded without data: %+v", r)
	case <-time.After(100 * time.Millisecond):
	}

	write(t, f, []byte("b"))
	second := <-results
	if second.id != 1 || second.data != "b" {
		t.Fatalf("second wake = %+v, want reader 1 with \"b\"", second)
	}
}

func TestPending_InvisibleUntilCommit(t *testing.T) {
	f := New(100)
	pending := mustAcquire(t, f, Writable).Reserve([]byte("deferred-data"))

	if f.Used() != 0 || f.Reserved() != 13 {
		t.Fatalf("Used() = %d, Reserved() = %d, want 0 and 13", f.Used(), f.Reserved())
	}
	if _, out := f.Acquire(context.Background(), NonBlocking, 0, Readable); out != Busy {
		t.Fatalf("read while reservation holds the token = %v, want busy", out)
	}

	if n := pending.Commit(); n != 13 {
		t.Fatalf("Commit() = %d, want 13", n)
	}
	if f.Used() != 13 || f.Reserved() != 0 {
		t.Fatalf("after commit Used() = %d, Reserved() = %d, want 13 and 0", f.Used(), f.Reserved())
	}
	if got := string(read(t, f, 100)); got != "deferred-data" {
		t.Fatalf("read = %q", got)
	}
}

func TestPending_CommitWakesBlockedReader(t *testing.T) {
	f := New(100)
	pending := mustAcquire(t, f, Writable).Reserve([]byte("late"))
	result := make(chan string, 1)

	go func() {
		g, out := f.Acquire(context.Background(), Blocking, 5*time.Second, Readable)
		if out != Acquired {
			result <- out.String()
			return
		}
		buf := make([]byte, 10)
		result <- string(buf[:g.Read(buf)])
	}()

	waitFor(t, func() bool { return f.Waiters() == 1 })
	pending.Commit()

	select {
	case got := <-result:
		if got != "late" {
			t.Fatalf("reader got %q, want late", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("commit did not wake the reader")
	}
}

func TestPending_Abort(t *testing.T) {
	f := New(10)
	pending := mustAcquire(t, f, Writable).Reserve(make([]byte, 8))
	pending.Abort()

	lvl := f.Level()
	if lvl.Used != 0 || lvl.Reserved != 0 {
		t.Fatalf("Level() = %+v, want empty", lvl)
	}
	if n := write(t, f, make([]byte, 10)); n != 10 {
		t.Fatalf("write after abort = %d, want 10", n)
	}
}

func TestGuard_DoubleUsePanics(t *testing.T) {
	f := New(10)
	g := mustAcquire(t, f, Writable)
	g.Release()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on reuse")
		}
	}()
	g.Release()
}

func TestFlow_ConcurrentConservation(t *testing.T) {
	f := New(64)
	const writers = 8
	const perWriter = 200

	var wg sync.WaitGroup
	var mu sync.Mutex
	written, readTotal := 0, 0

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				g, out := f.Acquire(context.Background(), Blocking, 5*time.Second, Writable)
				if out != Acquired {
					t.Errorf("writer Acquire() = %v", out)
					return
				}
				n := g.Write(make([]byte, 5))
				mu.Lock()
				written += n
				mu.Unlock()
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	buf := make([]byte, 7)
	for {
		g, out := f.Acquire(context.Background(), Blocking, 50*time.Millisecond, Readable)
		if out == Acquired {
			readTotal += g.Read(buf)
			lvl := f.Level()
			if lvl.Used < 0 || lvl.Used+lvl.Reserved > lvl.Capacity {
				t.Fatalf("invariant violated: %+v", lvl)
			}
			continue
		}
		select {
		case <-done:
			mu.Lock()
			defer mu.Unlock()
			if readTotal+f.Used() != written {
				t.Fatalf("read %d + buffered %d != written %d", readTotal, f.Used(), written)
			}
			return
		default:
		}
	}
}

func queued(f *Flow) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue.Len()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		time.Sleep(time.Millisecond)
	}
}
