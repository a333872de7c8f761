package publish

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/ovalrace/log"
	"github.com/mpapenbr/ovalrace/pkg/sim"
	"github.com/mpapenbr/ovalrace/pkg/timing"
)

type recorder struct {
	laps   int
	states int
	err    error
	closed bool
}

func (r *recorder) PublishLap(context.Context, timing.LapEvent) error {
	r.laps++
	return r.err
}

func (r *recorder) PublishState(context.Context, *sim.Snapshot) error {
	r.states++
	return r.err
}

func (r *recorder) Close() error {
	r.closed = true
	return nil
}

func TestLogPublisher(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewLog("abc", log.New(buf, log.DebugLevel))

	assert.NoError(t, p.PublishLap(context.Background(),
		timing.LapEvent{Lap: 2, Duration: 31250 * time.Millisecond}))
	assert.NoError(t, p.PublishState(context.Background(), &sim.Snapshot{Tick: 7}))

	out := buf.String()
	assert.Contains(t, out, `"session":"abc"`)
	assert.Contains(t, out, `"duration":"31.250"`)
	assert.Contains(t, out, `"tick":7`)
}

func TestMulti(t *testing.T) {
	ok := &recorder{}
	failing := &recorder{err: errors.New("boom")}
	m := Multi{ok, failing}

	err := m.PublishLap(context.Background(), timing.LapEvent{Lap: 1})
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, 1, ok.laps)
	assert.Equal(t, 1, failing.laps)

	assert.Error(t, m.PublishState(context.Background(), &sim.Snapshot{}))
	assert.NoError(t, m.Close())
	assert.True(t, ok.closed)
	assert.True(t, failing.closed)
}
