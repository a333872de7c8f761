// Package clock provides the monotonic time sources used for lap timing.
package clock

import (
	"sync"
	"time"
)

// Clock returns a monotonic timestamp relative to an arbitrary origin.
// It must never go backwards.
type Clock interface {
	Now() time.Duration
}

type System struct {
	start time.Time
}

func NewSystem() *System {
	return &System{start: time.Now()}
}

func (s *System) Now() time.Duration {
	return time.Since(s.start)
}

// Frame is advanced explicitly by the frame scheduler, which makes runs
// reproducible.
type Frame struct {
	mu  sync.Mutex
	now time.Duration
}

func NewFrame() *Frame {
	return &Frame{}
}

func (f *Frame) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward, negative values are ignored
func (f *Frame) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now += d
}
