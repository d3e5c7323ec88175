package flow

// Guard is ownership of a flow's token, obtained from Acquire.
//
// Exactly one of Write, Read, Reserve or Release must be called, once.
// Write, Read and Release return the token; Reserve moves it to the
// returned Pending.
type Guard struct {
	f    *Flow
	done bool
}

func (g *Guard) take() *Flow {
	if g.done {
		panic("flow: guard used after release")
	}
	g.done = true
	return g.f
}

// Level returns the flow's accounting as seen by the token owner.
func (g *Guard) Level() Level {
	if g.done {
		panic("flow: guard used after release")
	}
	return g.f.Level()
}

// Write appends as many bytes of p as fit and releases the token. Bytes
// beyond the free space are dropped. It returns the number appended.
func (g *Guard) Write(p []byte) int {
	f := g.take()
	f.mu.Lock()
	defer f.mu.Unlock()

	n := min(len(p), f.levelLocked().Free())
	if n > 0 {
		f.appendLocked(NewSegment(p[:n]))
		f.publishLocked()
	}
	f.releaseLocked()
	return n
}

// Read drains up to len(p) bytes from the head of the flow into p and
// releases the token. A partially drained segment stays at the head with
// its offset advanced.
func (g *Guard) Read(p []byte) int {
	f := g.take()
	f.mu.Lock()
	defer f.mu.Unlock()

	n := f.drainLocked(p[:min(len(p), f.used)])
	f.publishLocked()
	f.releaseLocked()
	return n
}

// Reserve books capacity for as many bytes of p as fit and keeps the token
// held by the returned Pending. The bytes are not readable until Commit.
func (g *Guard) Reserve(p []byte) *Pending {
	f := g.take()
	f.mu.Lock()
	n := min(len(p), f.levelLocked().Free())
	f.reserved += n
	f.publishLocked()
	f.mu.Unlock()

	return &Pending{f: f, seg: NewSegment(p[:n])}
}

// Release returns the token without touching the flow.
func (g *Guard) Release() {
	f := g.take()
	f.mu.Lock()
	f.releaseLocked()
	f.mu.Unlock()
}

// Pending is a reserved, not yet visible write. It owns the flow's token
// until Commit or Abort.
type Pending struct {
	f    *Flow
	seg  Segment
	done bool
}

// Len returns the number of bytes reserved.
func (p *Pending) Len() int { return p.seg.Size() }

// Commit appends the reserved bytes, converts the reservation into used
// bytes, wakes a waiter and releases the token. It returns the committed count.
func (p *Pending) Commit() int {
	f := p.finish()
	f.mu.Lock()
	defer f.mu.Unlock()

	n := p.seg.Size()
	f.reserved -= n
	f.appendLocked(p.seg)
	p.seg = Segment{}
	f.publishLocked()
	f.releaseLocked()
	return n
}

// Abort drops the reservation and releases the token.
func (p *Pending) Abort() {
	f := p.finish()
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reserved -= p.seg.Size()
	p.seg = Segment{}
	f.publishLocked()
	f.releaseLocked()
}

func (p *Pending) finish() *Flow {
	if p.done {
		panic("flow: pending write finished twice")
	}
	p.done = true
	return p.f
}
