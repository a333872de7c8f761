// Package sim owns the world state and advances it one tick at a time:
// vehicle physics, collision resolution, lap timing.
package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/ovalrace/log"
	"github.com/mpapenbr/ovalrace/pkg/clock"
	"github.com/mpapenbr/ovalrace/pkg/collision"
	"github.com/mpapenbr/ovalrace/pkg/geometry"
	"github.com/mpapenbr/ovalrace/pkg/hud"
	"github.com/mpapenbr/ovalrace/pkg/timing"
	"github.com/mpapenbr/ovalrace/pkg/vehicle"
)

type FrameMode string

const (
	// FrameFixed advances one fixed step per tick regardless of elapsed time
	FrameFixed FrameMode = "fixed"
	// FrameScaled scales every per-tick delta by elapsed / NominalFrame
	FrameScaled FrameMode = "scaled"
)

const NominalFrame = time.Second / 60

var ErrUnknownFrameMode = errors.New("unknown frame mode")

func ParseFrameMode(s string) (FrameMode, error) {
	switch m := FrameMode(s); m {
	case FrameFixed, FrameScaled:
		return m, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownFrameMode, s)
	}
}

type (
	World struct {
		track     geometry.Track
		vehicle   *vehicle.Vehicle
		resolver  *collision.Resolver
		timer     *timing.Timer
		overlay   *hud.Overlay
		clock     clock.Clock
		frameMode FrameMode
		tick      uint64
		metrics   *metrics
		log       *log.Logger

		vehicleOpts []vehicle.Option
		timerOpts   []timing.Option
	}
	Option func(w *World)

	StepResult struct {
		Tick      uint64
		Collision bool
		Lap       null.Val[timing.LapEvent]
	}
)

func WithTrack(t geometry.Track) Option {
	return func(w *World) {
		w.track = t
	}
}

func WithClock(c clock.Clock) Option {
	return func(w *World) {
		w.clock = c
	}
}

func WithFrameMode(m FrameMode) Option {
	return func(w *World) {
		w.frameMode = m
	}
}

func WithVehicleOptions(opts ...vehicle.Option) Option {
	return func(w *World) {
		w.vehicleOpts = append(w.vehicleOpts, opts...)
	}
}

func WithTimingOptions(opts ...timing.Option) Option {
	return func(w *World) {
		w.timerOpts = append(w.timerOpts, opts...)
	}
}

func WithMetrics(enabled bool) Option {
	return func(w *World) {
		if enabled {
			w.metrics = newMetrics()
		} else {
			w.metrics = nil
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(w *World) {
		w.log = l
	}
}

func NewWorld(opts ...Option) (*World, error) {
	ret := &World{
		track:     geometry.DefaultTrack(),
		frameMode: FrameFixed,
		log:       log.Default().Named("sim"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if err := ret.track.Validate(); err != nil {
		return nil, err
	}
	if _, err := ParseFrameMode(string(ret.frameMode)); err != nil {
		return nil, err
	}
	if ret.clock == nil {
		ret.clock = clock.NewSystem()
	}
	ret.vehicle = vehicle.New(ret.vehicleOpts...)
	ret.resolver = collision.NewResolver(ret.track)
	timerOpts := append([]timing.Option{
		timing.WithClock(ret.clock),
		timing.WithLogger(ret.log.Named("timing")),
	}, ret.timerOpts...)
	ret.timer = timing.NewTimer(timerOpts...)
	ret.overlay = hud.NewOverlay()
	ret.log.Debug("world created",
		log.String("frameMode", string(ret.frameMode)),
		log.Any("track", ret.track))
	return ret, nil
}

// Step advances the world by one tick: physics, collision, timing.
// elapsed is the measured frame time, only used in FrameScaled mode.
func (w *World) Step(c vehicle.Controls, elapsed time.Duration) StepResult {
	w.tick++
	res := StepResult{Tick: w.tick}

	prev := w.vehicle.Position
	w.vehicle.Update(c, w.scale(elapsed))
	if w.resolver.Resolve(w.vehicle, prev) {
		res.Collision = true
		w.log.Debug("collision",
			log.Uint64("tick", w.tick),
			log.Float64("speed", w.vehicle.Speed))
	}

	if ev, ok := w.timer.Update(w.vehicle.Footprint()); ok {
		res.Lap = null.From(ev)
		w.overlay.Show(ev, w.clock.Now())
	}
	w.metrics.record(&res)
	return res
}

func (w *World) scale(elapsed time.Duration) float64 {
	if w.frameMode != FrameScaled || elapsed <= 0 {
		return 1
	}
	return float64(elapsed) / float64(NominalFrame)
}

func (w *World) Tick() uint64 {
	return w.tick
}

func (w *World) Track() geometry.Track {
	return w.track
}

// Vehicle returns a copy of the vehicle state
func (w *World) Vehicle() vehicle.Vehicle {
	return *w.vehicle
}

func (w *World) Timer() *timing.Timer {
	return w.timer
}

func (w *World) FrameMode() FrameMode {
	return w.frameMode
}

func (w *World) Now() time.Duration {
	return w.clock.Now()
}
