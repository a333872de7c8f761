package run

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aarondl/opt/null"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/ovalrace/log"
	"github.com/mpapenbr/ovalrace/pkg/clock"
	"github.com/mpapenbr/ovalrace/pkg/config"
	"github.com/mpapenbr/ovalrace/pkg/frame"
	"github.com/mpapenbr/ovalrace/pkg/hud"
	"github.com/mpapenbr/ovalrace/pkg/input"
	"github.com/mpapenbr/ovalrace/pkg/publish"
	"github.com/mpapenbr/ovalrace/pkg/server"
	"github.com/mpapenbr/ovalrace/pkg/sim"
	"github.com/mpapenbr/ovalrace/pkg/timing"
	"github.com/mpapenbr/ovalrace/pkg/utils/broadcast"
)

var tracer = otel.Tracer("ovalrace/run")

const lapQueueSize = 16

type (
	runner struct {
		cfg        config.Config
		world      *sim.World
		scheduler  *frame.Scheduler
		frameClock *clock.Frame
		src        input.Source
		display    *hud.Display
		publisher  publish.Publisher
		server     *server.StateServer
		laps       chan timing.LapEvent
		l          *log.Logger
	}
	runnerOption func(*runner)

	Summary struct {
		Ticks  uint64
		Frames uint64
		Laps   int
		Best   null.Val[time.Duration]
	}
)

func withStateServer(s *server.StateServer) runnerOption {
	return func(r *runner) {
		r.server = s
	}
}

//nolint:whitespace // false positive
func newRunner(
	cfg config.Config,
	src input.Source,
	pub publish.Publisher,
	opts ...runnerOption,
) (*runner, error) {
	r := &runner{
		cfg:       cfg,
		src:       src,
		publisher: pub,
		laps:      make(chan timing.LapEvent, lapQueueSize),
		l:         log.Default().Named("run"),
	}
	for _, opt := range opts {
		opt(r)
	}
	var err error
	if r.scheduler, err = frame.NewScheduler(
		frame.WithFPS(cfg.FPS),
		frame.WithRealtime(cfg.Realtime),
		frame.WithMaxTicks(cfg.MaxTicks),
		frame.WithLogger(r.l.Named("frame")),
	); err != nil {
		return nil, err
	}

	var c clock.Clock
	if cfg.Realtime {
		c = clock.NewSystem()
	} else {
		r.frameClock = clock.NewFrame()
		c = r.frameClock
	}
	if r.world, err = sim.NewWorld(
		sim.WithClock(c),
		sim.WithFrameMode(sim.FrameMode(cfg.FrameMode)),
		sim.WithMetrics(config.EnableTelemetry),
		sim.WithLogger(r.l.Named("sim")),
		sim.WithTimingOptions(timing.WithListener(r.enqueueLap)),
	); err != nil {
		return nil, fmt.Errorf("create world: %w", err)
	}
	r.display = hud.NewDisplay(r.l.Named("hud"))
	return r, nil
}

// enqueueLap is called from within the simulation step and must not block
func (r *runner) enqueueLap(ev timing.LapEvent) {
	select {
	case r.laps <- ev:
	default:
		r.l.Warn("lap queue full, dropping lap event", log.Int("lap", ev.Lap))
	}
}

func (r *runner) run(ctx context.Context) (Summary, error) {
	ctx, span := tracer.Start(ctx, "run",
		trace.WithAttributes(
			attribute.String("session", r.cfg.Session),
			attribute.String("frameMode", string(r.world.FrameMode()))))
	defer span.End()

	bcst := broadcast.NewBroadcastServer("laps", r.laps,
		broadcast.WithTelemetry[timing.LapEvent](r.cfg.Session),
		broadcast.WithSendTimeout[timing.LapEvent](time.Second),
		broadcast.WithBufferSize[timing.LapEvent](lapQueueSize),
		broadcast.WithLogger[timing.LapEvent](r.l.Named("broadcast")))
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func(sub <-chan timing.LapEvent) {
		defer wg.Done()
		for ev := range sub {
			r.publishLap(ctx, ev)
		}
	}(bcst.Subscribe())

	advancer, _ := r.src.(input.Advancer)
	frames, err := r.scheduler.Run(ctx, func(elapsed time.Duration) bool {
		if advancer != nil && !advancer.Advance() {
			return false
		}
		if r.frameClock != nil {
			r.frameClock.Advance(elapsed)
		}
		r.step(ctx, elapsed)
		return true
	})

	// no more steps, no more lap events
	close(r.laps)
	wg.Wait()
	bcst.Close()

	snap := r.world.Snapshot()
	r.publishState(ctx, &snap)
	if err := r.publisher.Close(); err != nil {
		r.l.Warn("closing publisher", log.ErrorField(err))
	}

	sum := Summary{
		Ticks:  r.world.Tick(),
		Frames: frames,
		Laps:   snap.Timing.Laps,
		Best:   snap.Timing.Best,
	}
	span.SetAttributes(
		attribute.Int64("ticks", int64(sum.Ticks)),
		attribute.Int64("frames", int64(sum.Frames)),
		attribute.Int("laps", sum.Laps))
	r.l.Info("simulation finished",
		log.Uint64("ticks", sum.Ticks),
		log.Int("laps", sum.Laps),
		log.String("best", timing.FormatTime(sum.Best)))
	if err != nil && ctx.Err() != nil {
		// canceled by signal, this is a regular end
		return sum, nil
	}
	return sum, err
}

func (r *runner) step(ctx context.Context, elapsed time.Duration) {
	res := r.world.Step(r.src.Current(), elapsed)
	if ev, ok := res.Lap.Get(); ok {
		r.display.Lap(ev, r.world.Now())
	}
	every := uint64(max(r.cfg.StateEvery, 1))
	if res.Tick%every != 0 {
		return
	}
	snap := r.world.Snapshot()
	r.display.Update(snap.HUD)
	r.publishState(ctx, &snap)
}

func (r *runner) publishState(ctx context.Context, snap *sim.Snapshot) {
	if r.server != nil {
		r.server.Update(snap)
	}
	if err := r.publisher.PublishState(ctx, snap); err != nil {
		r.l.Warn("could not publish state", log.ErrorField(err))
	}
}

func (r *runner) publishLap(ctx context.Context, ev timing.LapEvent) {
	ctx, span := tracer.Start(ctx, "lap",
		trace.WithAttributes(
			attribute.Int("lap", ev.Lap),
			attribute.Int64("durationMs", ev.Duration.Milliseconds()),
			attribute.Bool("record", ev.NewRecord)))
	defer span.End()
	if err := r.publisher.PublishLap(ctx, ev); err != nil {
		span.RecordError(err)
		r.l.Warn("could not publish lap", log.ErrorField(err))
	}
}
