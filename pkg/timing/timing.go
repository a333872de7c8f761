package timing

import (
	"time"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/ovalrace/log"
	"github.com/mpapenbr/ovalrace/pkg/clock"
	"github.com/mpapenbr/ovalrace/pkg/geometry"
)

// GateState combines "race started" and "checkpoint passed"
type GateState int

const (
	NotStarted GateState = iota
	AwaitingCheckpoint
	CheckpointCleared
)

// DisplayDuration is how long a lap notification stays visible
const DisplayDuration = 2000 * time.Millisecond

func (s GateState) String() string {
	switch s {
	case NotStarted:
		return "NOT_STARTED"
	case AwaitingCheckpoint:
		return "AWAITING_CHECKPOINT"
	case CheckpointCleared:
		return "CHECKPOINT_CLEARED"
	default:
		return "UNKNOWN"
	}
}

type (
	LapEvent struct {
		Lap         int           `json:"lap"`
		Duration    time.Duration `json:"duration"`
		NewRecord   bool          `json:"newRecord"`
		CompletedAt time.Duration `json:"completedAt"`
		DisplayFor  time.Duration `json:"displayFor"`
	}

	Timer struct {
		checkpoint  geometry.Rect
		startFinish geometry.Rect
		clock       clock.Clock
		state       GateState
		laps        int
		lapStart    time.Duration
		best        null.Val[time.Duration]
		listeners   []func(LapEvent)
		log         *log.Logger
	}
	Option func(t *Timer)
)

func DefaultCheckpoint() geometry.Rect {
	return geometry.Rect{X: 480, Y: 550, Width: 40, Height: 80}
}

func DefaultStartFinish() geometry.Rect {
	return geometry.Rect{X: 480, Y: 180, Width: 40, Height: 80}
}

func WithCheckpoint(r geometry.Rect) Option {
	return func(t *Timer) {
		t.checkpoint = r
	}
}

func WithStartFinish(r geometry.Rect) Option {
	return func(t *Timer) {
		t.startFinish = r
	}
}

func WithClock(c clock.Clock) Option {
	return func(t *Timer) {
		t.clock = c
	}
}

// WithListener registers a callback invoked for every completed lap
func WithListener(l func(LapEvent)) Option {
	return func(t *Timer) {
		t.listeners = append(t.listeners, l)
	}
}

func WithLogger(l *log.Logger) Option {
	return func(t *Timer) {
		t.log = l
	}
}

func NewTimer(opts ...Option) *Timer {
	ret := &Timer{
		checkpoint:  DefaultCheckpoint(),
		startFinish: DefaultStartFinish(),
		state:       NotStarted,
		log:         log.Default().Named("timing"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.clock == nil {
		ret.clock = clock.NewSystem()
	}
	return ret
}

// Update evaluates the gates for the vehicle footprint of the current tick.
// The checkpoint is evaluated before the start/finish line.
// Returns the lap event if this tick completed a lap.
func (t *Timer) Update(f geometry.Footprint) (LapEvent, bool) {
	if t.checkpoint.ContainsAnyCorner(f) && t.state == AwaitingCheckpoint {
		t.state = CheckpointCleared
		t.log.Debug("checkpoint cleared", log.Int("lap", t.laps+1))
	}
	if !t.startFinish.ContainsAnyCorner(f) {
		return LapEvent{}, false
	}

	switch t.state {
	case NotStarted:
		t.handleStart()
	case CheckpointCleared:
		return t.handleLapCompleted(), true
	case AwaitingCheckpoint: // crossing without checkpoint does not count
	}
	return LapEvent{}, false
}

func (t *Timer) handleStart() {
	t.state = AwaitingCheckpoint
	t.lapStart = t.clock.Now()
	t.laps = 0
	t.log.Info("race started", log.Duration("at", t.lapStart))
}

func (t *Timer) handleLapCompleted() LapEvent {
	now := t.clock.Now()
	t.laps++
	lapTime := now - t.lapStart

	isRecord := false
	if best, ok := t.best.Get(); !ok || lapTime < best {
		t.best = null.From(lapTime)
		isRecord = true
	}
	ev := LapEvent{
		Lap:         t.laps,
		Duration:    lapTime,
		NewRecord:   isRecord,
		CompletedAt: now,
		DisplayFor:  DisplayDuration,
	}
	t.log.Info("lap completed",
		log.Int("lap", ev.Lap),
		log.String("time", FormatDuration(ev.Duration)),
		log.Bool("record", ev.NewRecord))

	t.lapStart = now
	t.state = AwaitingCheckpoint
	for _, l := range t.listeners {
		l(ev)
	}
	return ev
}

func (t *Timer) State() GateState {
	return t.state
}

func (t *Timer) Started() bool {
	return t.state != NotStarted
}

func (t *Timer) CheckpointPassed() bool {
	return t.state == CheckpointCleared
}

func (t *Timer) Laps() int {
	return t.laps
}

// Best returns the fastest lap, null if no lap was completed yet
func (t *Timer) Best() null.Val[time.Duration] {
	return t.best
}

// Current returns the running time of the current lap, null before the start
func (t *Timer) Current() null.Val[time.Duration] {
	return t.Elapsed(t.clock.Now())
}

// Elapsed returns the lap time at now, null before the start
func (t *Timer) Elapsed(now time.Duration) null.Val[time.Duration] {
	if t.state == NotStarted {
		return null.Val[time.Duration]{}
	}
	return null.From(now - t.lapStart)
}

func (t *Timer) Checkpoint() geometry.Rect {
	return t.checkpoint
}

func (t *Timer) StartFinish() geometry.Rect {
	return t.startFinish
}
