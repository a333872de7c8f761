package vehicle

import (
	"math"

	"github.com/samber/lo"

	"github.com/mpapenbr/ovalrace/pkg/geometry"
)

type (
	// Controls is the held-key snapshot for one tick
	Controls struct {
		Accelerate bool `json:"accelerate"`
		Brake      bool `json:"brake"`
		SteerLeft  bool `json:"steerLeft"`
		SteerRight bool `json:"steerRight"`
	}

	// Params are the tuning constants. Speeds are in pixels per tick.
	Params struct {
		Length          float64
		Width           float64
		MaxSpeed        float64
		MaxReverseSpeed float64
		Acceleration    float64
		BrakeForce      float64
		Friction        float64
		TurnSpeed       float64
		SteerDeadzone   float64
	}

	Vehicle struct {
		Position geometry.Point `json:"position"`
		Angle    float64        `json:"angle"` // radians, 0 = +x
		Speed    float64        `json:"speed"`
		Params   Params         `json:"-"`
	}
	Option func(v *Vehicle)
)

var StartPosition = geometry.Point{X: 500, Y: 550}

const StartAngle = -math.Pi / 2

func DefaultParams() Params {
	return Params{
		Length:          40,
		Width:           20,
		MaxSpeed:        8,
		MaxReverseSpeed: -3,
		Acceleration:    0.15,
		BrakeForce:      0.2,
		Friction:        0.02,
		TurnSpeed:       0.05,
		SteerDeadzone:   0.1,
	}
}

func WithParams(p Params) Option {
	return func(v *Vehicle) {
		v.Params = p
	}
}

func WithPose(pos geometry.Point, angle float64) Option {
	return func(v *Vehicle) {
		v.Position = pos
		v.Angle = angle
	}
}

// New creates a stationary vehicle at the start position
func New(opts ...Option) *Vehicle {
	ret := &Vehicle{
		Position: StartPosition,
		Angle:    StartAngle,
		Params:   DefaultParams(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Update applies one tick of input. scale multiplies every per-tick delta,
// 1 reproduces the frame-coupled behavior exactly.
func (v *Vehicle) Update(c Controls, scale float64) {
	v.updateSpeed(c, scale)
	v.updateHeading(c, scale)
	v.Position.X += math.Cos(v.Angle) * v.Speed * scale
	v.Position.Y += math.Sin(v.Angle) * v.Speed * scale
}

func (v *Vehicle) updateSpeed(c Controls, scale float64) {
	p := v.Params
	switch {
	case c.Accelerate:
		v.Speed = math.Min(v.Speed+p.Acceleration*scale, p.MaxSpeed)
	case c.Brake:
		v.Speed = math.Max(v.Speed-p.BrakeForce*scale, p.MaxReverseSpeed)
	case v.Speed > 0:
		v.Speed = math.Max(v.Speed-p.Friction*scale, 0)
	case v.Speed < 0:
		v.Speed = math.Min(v.Speed+p.Friction*scale, 0)
	}
}

func (v *Vehicle) updateHeading(c Controls, scale float64) {
	p := v.Params
	if math.Abs(v.Speed) <= p.SteerDeadzone {
		return
	}
	direction := lo.Ternary(v.Speed > 0, 1.0, -1.0)
	turn := p.TurnSpeed * direction * (math.Abs(v.Speed) / p.MaxSpeed) * scale
	if c.SteerLeft {
		v.Angle -= turn
	}
	if c.SteerRight {
		v.Angle += turn
	}
}

// Footprint returns the corners of the vehicle's oriented bounding rectangle
func (v *Vehicle) Footprint() geometry.Footprint {
	return geometry.Corners(v.Position, v.Angle, v.Params.Length, v.Params.Width)
}

// DisplaySpeed is the cosmetic speed shown on the HUD
func (v *Vehicle) DisplaySpeed() int {
	return DisplaySpeed(v.Speed)
}

func DisplaySpeed(speed float64) int {
	return int(math.Round(math.Abs(speed) * 25))
}
