package sim

import (
	"time"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/ovalrace/pkg/geometry"
	"github.com/mpapenbr/ovalrace/pkg/hud"
	"github.com/mpapenbr/ovalrace/pkg/timing"
)

type (
	VehicleState struct {
		Position  geometry.Point     `json:"position"`
		Angle     float64            `json:"angle"`
		Speed     float64            `json:"speed"`
		Length    float64            `json:"length"`
		Width     float64            `json:"width"`
		Footprint geometry.Footprint `json:"footprint"`
	}

	TimingState struct {
		State            timing.GateState        `json:"state"`
		CheckpointPassed bool                    `json:"checkpointPassed"`
		Laps             int                     `json:"laps"`
		Current          null.Val[time.Duration] `json:"current"`
		Best             null.Val[time.Duration] `json:"best"`
	}

	// Snapshot is a read-only copy of the world for renderers and the HUD
	Snapshot struct {
		Tick        uint64         `json:"tick"`
		Time        time.Duration  `json:"time"`
		Track       geometry.Track `json:"track"`
		Checkpoint  geometry.Rect  `json:"checkpoint"`
		StartFinish geometry.Rect  `json:"startFinish"`
		Vehicle     VehicleState   `json:"vehicle"`
		Timing      TimingState    `json:"timing"`
		HUD         hud.View       `json:"hud"`
		// Overlay is the lap notification while it is displayed
		Overlay null.Val[hud.Message] `json:"overlay"`
	}
)

func (w *World) Snapshot() Snapshot {
	v := w.vehicle
	t := w.timer
	ts := TimingState{
		State:            t.State(),
		CheckpointPassed: t.CheckpointPassed(),
		Laps:             t.Laps(),
		Current:          t.Current(),
		Best:             t.Best(),
	}
	return Snapshot{
		Tick:        w.tick,
		Time:        w.clock.Now(),
		Track:       w.track,
		Checkpoint:  t.Checkpoint(),
		StartFinish: t.StartFinish(),
		Vehicle: VehicleState{
			Position:  v.Position,
			Angle:     v.Angle,
			Speed:     v.Speed,
			Length:    v.Params.Length,
			Width:     v.Params.Width,
			Footprint: v.Footprint(),
		},
		Timing:  ts,
		HUD:     hud.Compose(ts.Laps, ts.Current, ts.Best, v.Speed),
		Overlay: w.activeOverlay(),
	}
}

func (w *World) activeOverlay() null.Val[hud.Message] {
	if msg, ok := w.overlay.Active(w.clock.Now()); ok {
		return null.From(msg)
	}
	return null.Val[hud.Message]{}
}
