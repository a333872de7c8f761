// Package codec turns lap events and world snapshots into wire payloads.
package codec

import (
	"errors"
	"fmt"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/ohler55/ojg/oj"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mpapenbr/ovalrace/pkg/geometry"
	"github.com/mpapenbr/ovalrace/pkg/hud"
	"github.com/mpapenbr/ovalrace/pkg/sim"
	"github.com/mpapenbr/ovalrace/pkg/timing"
)

type Format string

const (
	FormatJSON  Format = "json"
	FormatProto Format = "proto"
)

var ErrUnknownFormat = errors.New("unknown payload format")

type Codec interface {
	Format() Format
	ContentType() string
	Encode(payload map[string]any) ([]byte, error)
}

func New(format string) (Codec, error) {
	switch Format(format) {
	case FormatJSON:
		return jsonCodec{}, nil
	case FormatProto:
		return protoCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

type jsonCodec struct{}

func (jsonCodec) Format() Format      { return FormatJSON }
func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Encode(payload map[string]any) ([]byte, error) {
	return oj.Marshal(payload, &oj.Options{Sort: true})
}

type protoCodec struct{}

func (protoCodec) Format() Format      { return FormatProto }
func (protoCodec) ContentType() string { return "application/x-protobuf" }

func (protoCodec) Encode(payload map[string]any) ([]byte, error) {
	s, err := structpb.NewStruct(payload)
	if err != nil {
		return nil, fmt.Errorf("convert payload: %w", err)
	}
	return proto.Marshal(s)
}

// Seconds renders d as seconds with millisecond precision, e.g. "65.432"
func Seconds(d time.Duration) string {
	return decimal.New(d.Milliseconds(), -3).StringFixed(3)
}

func LapPayload(session string, ev timing.LapEvent) map[string]any {
	return map[string]any{
		"session":     session,
		"lap":         ev.Lap,
		"duration":    Seconds(ev.Duration),
		"formatted":   timing.FormatDuration(ev.Duration),
		"newRecord":   ev.NewRecord,
		"completedAt": Seconds(ev.CompletedAt),
		"displayFor":  Seconds(ev.DisplayFor),
	}
}

func StatePayload(session string, s *sim.Snapshot) map[string]any {
	return map[string]any{
		"session": session,
		"tick":    s.Tick,
		"time":    Seconds(s.Time),
		"track": map[string]any{
			"center": point(s.Track.Center),
			"outer":  ellipse(s.Track.Outer),
			"inner":  ellipse(s.Track.Inner),
		},
		"checkpoint":  rect(s.Checkpoint),
		"startFinish": rect(s.StartFinish),
		"vehicle": map[string]any{
			"position":  point(s.Vehicle.Position),
			"angle":     s.Vehicle.Angle,
			"speed":     s.Vehicle.Speed,
			"length":    s.Vehicle.Length,
			"width":     s.Vehicle.Width,
			"footprint": footprint(s.Vehicle.Footprint),
		},
		"timing": map[string]any{
			"state":            s.Timing.State.String(),
			"checkpointPassed": s.Timing.CheckpointPassed,
			"laps":             s.Timing.Laps,
			"current":          optSeconds(s.Timing.Current),
			"best":             optSeconds(s.Timing.Best),
		},
		"hud": map[string]any{
			"lap":      s.HUD.Lap,
			"lapTime":  s.HUD.LapTime,
			"bestTime": s.HUD.BestTime,
			"speed":    s.HUD.Speed,
		},
		"overlay": overlay(s.Overlay),
	}
}

func overlay(v null.Val[hud.Message]) any {
	msg, ok := v.Get()
	if !ok {
		return nil
	}
	return map[string]any{
		"lap":       msg.Lap,
		"time":      msg.Time,
		"newRecord": msg.NewRecord,
		"text":      msg.String(),
	}
}

func optSeconds(v null.Val[time.Duration]) any {
	if d, ok := v.Get(); ok {
		return Seconds(d)
	}
	return nil
}

func point(p geometry.Point) map[string]any {
	return map[string]any{"x": p.X, "y": p.Y}
}

func ellipse(e geometry.Ellipse) map[string]any {
	return map[string]any{"rx": e.RadiusX, "ry": e.RadiusY}
}

func rect(r geometry.Rect) map[string]any {
	return map[string]any{"x": r.X, "y": r.Y, "width": r.Width, "height": r.Height}
}

func footprint(f geometry.Footprint) []any {
	ret := make([]any, 0, len(f))
	for _, p := range f {
		ret = append(ret, point(p))
	}
	return ret
}
