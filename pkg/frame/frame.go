// Package frame drives a per-frame callback at a fixed rate.
package frame

import (
	"context"
	"errors"
	"time"

	"github.com/mpapenbr/ovalrace/log"
)

var ErrInvalidRate = errors.New("frame rate must be positive")

type (
	// Func is called once per frame with the time since the previous frame.
	// Returning false stops the scheduler.
	Func func(elapsed time.Duration) bool

	Scheduler struct {
		fps      int
		realtime bool
		maxTicks uint64
		now      func() time.Time
		log      *log.Logger
	}
	Option func(s *Scheduler)
)

func WithFPS(fps int) Option {
	return func(s *Scheduler) {
		s.fps = fps
	}
}

// WithRealtime paces frames with a ticker. Without it frames run back to
// back and every frame reports the nominal frame duration.
func WithRealtime(realtime bool) Option {
	return func(s *Scheduler) {
		s.realtime = realtime
	}
}

// WithMaxTicks stops the scheduler after n frames, 0 means unlimited
func WithMaxTicks(n uint64) Option {
	return func(s *Scheduler) {
		s.maxTicks = n
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) {
		s.log = l
	}
}

func NewScheduler(opts ...Option) (*Scheduler, error) {
	ret := &Scheduler{
		fps:      60,
		realtime: true,
		now:      time.Now,
		log:      log.Default().Named("frame"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.fps <= 0 {
		return nil, ErrInvalidRate
	}
	return ret, nil
}

func (s *Scheduler) Nominal() time.Duration {
	return time.Second / time.Duration(s.fps)
}

// Run calls fn until ctx is done, fn returns false or the tick limit is reached.
// The number of completed frames is returned together with the context error
// in case of cancellation. The call returning false is not counted.
func (s *Scheduler) Run(ctx context.Context, fn Func) (uint64, error) {
	s.log.Debug("scheduler started",
		log.Int("fps", s.fps),
		log.Bool("realtime", s.realtime),
		log.Uint64("maxTicks", s.maxTicks))
	var n uint64
	var err error
	if s.realtime {
		n, err = s.runRealtime(ctx, fn)
	} else {
		n, err = s.runFast(ctx, fn)
	}
	s.log.Debug("scheduler stopped", log.Uint64("ticks", n))
	return n, err
}

func (s *Scheduler) limitReached(n uint64) bool {
	return s.maxTicks > 0 && n >= s.maxTicks
}

func (s *Scheduler) runFast(ctx context.Context, fn Func) (uint64, error) {
	nominal := s.Nominal()
	var n uint64
	for !s.limitReached(n) {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if !fn(nominal) {
			return n, nil
		}
		n++
	}
	return n, nil
}

func (s *Scheduler) runRealtime(ctx context.Context, fn Func) (uint64, error) {
	ticker := time.NewTicker(s.Nominal())
	defer ticker.Stop()

	var n uint64
	last := s.now()
	for !s.limitReached(n) {
		select {
		case <-ctx.Done():
			return n, ctx.Err()
		case <-ticker.C:
			now := s.now()
			elapsed := now.Sub(last)
			last = now
			if !fn(elapsed) {
				return n, nil
			}
			n++
		}
	}
	return n, nil
}
