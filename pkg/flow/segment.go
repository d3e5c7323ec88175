package flow

// Segment is a chunk of buffered bytes. Its content never changes once
// created; consumed advances as readers drain it.
type Segment struct {
	content  []byte
	consumed int
}

// NewSegment copies p into a new Segment.
func NewSegment(p []byte) Segment {
	content := make([]byte, len(p))
	copy(content, p)
	return Segment{content: content}
}

// Size returns the number of bytes the segment was created with.
func (s *Segment) Size() int { return len(s.content) }

// Consumed returns how many bytes have already been drained.
func (s *Segment) Consumed() int { return s.consumed }

// Remaining returns the number of bytes not yet drained.
func (s *Segment) Remaining() int { return len(s.content) - s.consumed }

// Exhausted reports whether every byte has been drained.
func (s *Segment) Exhausted() bool { return s.consumed == len(s.content) }

// drain copies unread bytes into dst and advances the consumed offset.
func (s *Segment) drain(dst []byte) int {
	n := copy(dst, s.content[s.consumed:])
	s.consumed += n
	return n
}
