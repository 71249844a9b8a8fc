package display

import (
	"sync"

	"gocv.io/x/gocv"
)

// Slot holds the newest published frame. The acquisition side writes,
// any number of renderers read copies of it on their own cadence.
type Slot struct {
	mu    sync.Mutex
	frame gocv.Mat
	seq    uint64
	has    bool
	closed bool
}

func NewSlot() *Slot {
	return &Slot{}
}

// Publish stores frame as the newest one. The slot takes ownership of frame
// and releases the frame it replaces. After Close the frame is released at once.
func (s *Slot) Publish(frame gocv.Mat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		frame.Close()
		return
	}
	if s.has {
		s.frame.Close()
	}
	s.frame = frame
	s.has = true
	s.seq++
}

// Snapshot returns a copy of the newest frame if it is newer than lastSeq.
// The caller owns the returned Mat.
func (s *Slot) Snapshot(lastSeq uint64) (gocv.Mat, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.has || s.seq == lastSeq {
		return gocv.Mat{}, lastSeq, false
	}
	return s.frame.Clone(), s.seq, true
}

// Seq returns the sequence number of the newest frame, 0 before the first publish.
func (s *Slot) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Close releases the held frame. Later publishes are dropped.
func (s *Slot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.has {
		s.frame.Close()
		s.has = false
	}
}
