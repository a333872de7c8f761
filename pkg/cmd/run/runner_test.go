package run

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/ovalrace/pkg/config"
	"github.com/mpapenbr/ovalrace/pkg/input"
	"github.com/mpapenbr/ovalrace/pkg/server"
	"github.com/mpapenbr/ovalrace/pkg/sim"
	"github.com/mpapenbr/ovalrace/pkg/timing"
	"github.com/mpapenbr/ovalrace/pkg/vehicle"
)

type recorder struct {
	mu     sync.Mutex
	laps   []timing.LapEvent
	states []uint64
	closed bool
}

func (r *recorder) PublishLap(_ context.Context, ev timing.LapEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.laps = append(r.laps, ev)
	return nil
}

func (r *recorder) PublishState(_ context.Context, s *sim.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s.Tick)
	return nil
}

func (r *recorder) Close() error {
	r.closed = true
	return nil
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Realtime = false
	cfg.StateEvery = 10
	cfg.Session = "test"
	return cfg
}

func accelerateScript(t *testing.T, ticks int) *input.Script {
	t.Helper()
	s, err := input.NewScript(&input.ScriptFile{
		Version:  "v1",
		Segments: []input.Segment{{Ticks: ticks, Keys: []string{"w"}}},
	})
	require.NoError(t, err)
	return s
}

func TestRunScript(t *testing.T) {
	rec := &recorder{}
	srv := server.NewStateServer()
	r, err := newRunner(testConfig(), accelerateScript(t, 15), rec, withStateServer(srv))
	require.NoError(t, err)

	sum, err := r.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(15), sum.Ticks)
	assert.Equal(t, sum.Ticks, sum.Frames)
	assert.Zero(t, sum.Laps)
	assert.True(t, sum.Best.IsNull())
	// every 10 ticks plus the final state
	assert.Equal(t, []uint64{10, 15}, rec.states)
	assert.True(t, rec.closed)

	v := r.world.Vehicle()
	assert.InDelta(t, 15*0.15, v.Speed, 1e-9)
	assert.Equal(t, 15*(time.Second/60), r.world.Now())
}

func TestRunMaxTicks(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTicks = 7
	r, err := newRunner(cfg, input.NewKeyState(), &recorder{})
	require.NoError(t, err)

	sum, err := r.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), sum.Ticks)
	assert.Equal(t, uint64(7), sum.Frames)
	assert.Equal(t, vehicle.StartPosition, r.world.Vehicle().Position)
}

func TestRunCanceled(t *testing.T) {
	cfg := testConfig()
	cfg.Realtime = true
	cfg.FPS = 100
	r, err := newRunner(cfg, input.NewKeyState(), &recorder{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = r.run(ctx)
	assert.NoError(t, err)
}

// lapSource emits one lap event through the runner on the first tick
type lapSource struct {
	*input.Script
	r    *runner
	once sync.Once
}

func (s *lapSource) Current() vehicle.Controls {
	s.once.Do(func() {
		s.r.enqueueLap(timing.LapEvent{Lap: 1, Duration: 42 * time.Second})
	})
	return s.Script.Current()
}

func TestLapFanOut(t *testing.T) {
	rec := &recorder{}
	src := &lapSource{Script: accelerateScript(t, 3)}
	r, err := newRunner(testConfig(), src, rec)
	require.NoError(t, err)
	src.r = r

	_, err = r.run(context.Background())
	require.NoError(t, err)
	require.Len(t, rec.laps, 1)
	assert.Equal(t, 42*time.Second, rec.laps[0].Duration)
}

func TestNewRunnerInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.FrameMode = "variable"
	_, err := newRunner(cfg, input.NewKeyState(), &recorder{})
	assert.Error(t, err)

	cfg = testConfig()
	cfg.FPS = 0
	_, err = newRunner(cfg, input.NewKeyState(), &recorder{})
	assert.Error(t, err)
}
