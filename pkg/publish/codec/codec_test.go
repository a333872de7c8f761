package codec

import (
	"testing"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mpapenbr/ovalrace/pkg/clock"
	"github.com/mpapenbr/ovalrace/pkg/hud"
	"github.com/mpapenbr/ovalrace/pkg/sim"
	"github.com/mpapenbr/ovalrace/pkg/timing"
)

var sampleLap = timing.LapEvent{
	Lap:         3,
	Duration:    65432 * time.Millisecond,
	NewRecord:   true,
	CompletedAt: 200 * time.Second,
	DisplayFor:  timing.DisplayDuration,
}

func TestNew(t *testing.T) {
	c, err := New("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, c.Format())

	c, err = New("proto")
	require.NoError(t, err)
	assert.Equal(t, FormatProto, c.Format())

	_, err = New("xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestSeconds(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"zero", 0, "0.000"},
		{"millis", 65432 * time.Millisecond, "65.432"},
		{"truncates micros", 1500*time.Microsecond + time.Second, "1.001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Seconds(tt.d))
		})
	}
}

func TestJSONLap(t *testing.T) {
	c, _ := New("json")
	data, err := c.Encode(LapPayload("s1", sampleLap))
	require.NoError(t, err)

	obj, err := oj.Parse(data)
	require.NoError(t, err)
	get := func(path string) any {
		res := jp.MustParseString(path).Get(obj)
		require.Len(t, res, 1, path)
		return res[0]
	}
	assert.Equal(t, "s1", get("$.session"))
	assert.Equal(t, int64(3), get("$.lap"))
	assert.Equal(t, "65.432", get("$.duration"))
	assert.Equal(t, "01:05.432", get("$.formatted"))
	assert.Equal(t, true, get("$.newRecord"))
	assert.Equal(t, "200.000", get("$.completedAt"))
	assert.Equal(t, "2.000", get("$.displayFor"))
}

func TestJSONStateOverlay(t *testing.T) {
	w, err := sim.NewWorld(sim.WithClock(clock.NewFrame()))
	require.NoError(t, err)
	snap := w.Snapshot()
	c, _ := New("json")

	data, err := c.Encode(StatePayload("s1", &snap))
	require.NoError(t, err)
	obj, err := oj.Parse(data)
	require.NoError(t, err)
	m := obj.(map[string]any)
	assert.Contains(t, m, "overlay")
	assert.Nil(t, m["overlay"])

	snap.Overlay = null.From(hud.Message{Lap: 3, Time: "01:05.432", NewRecord: true})
	data, err = c.Encode(StatePayload("s1", &snap))
	require.NoError(t, err)
	obj, err = oj.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(3)}, jp.MustParseString("$.overlay.lap").Get(obj))
	assert.Equal(t, []any{"Lap 3 completed! 01:05.432 New record!"},
		jp.MustParseString("$.overlay.text").Get(obj))
}

func TestProtoState(t *testing.T) {
	w, err := sim.NewWorld(sim.WithClock(clock.NewFrame()))
	require.NoError(t, err)
	snap := w.Snapshot()

	c, _ := New("proto")
	data, err := c.Encode(StatePayload("s1", &snap))
	require.NoError(t, err)

	s := &structpb.Struct{}
	require.NoError(t, proto.Unmarshal(data, s))
	m := s.AsMap()
	assert.Equal(t, "s1", m["session"])

	timingState := m["timing"].(map[string]any)
	assert.Equal(t, "NOT_STARTED", timingState["state"])
	assert.Nil(t, timingState["best"])
	assert.Nil(t, timingState["current"])

	vehicle := m["vehicle"].(map[string]any)
	assert.Len(t, vehicle["footprint"], 4)
	pos := vehicle["position"].(map[string]any)
	assert.InDelta(t, 500.0, pos["x"], 1e-9)
	assert.InDelta(t, 550.0, pos["y"], 1e-9)

	hudState := m["hud"].(map[string]any)
	assert.Equal(t, "--:--.---", hudState["bestTime"])
	assert.Nil(t, m["overlay"])
}
