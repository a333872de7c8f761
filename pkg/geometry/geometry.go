// Package geometry holds the track shape and the footprint tests used by
// collision detection and the lap gates.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/samber/lo"
)

var ErrInvalidTrack = errors.New("invalid track")

type (
	Point struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	// Ellipse is axis-aligned, its center is held by the track
	Ellipse struct {
		RadiusX float64 `json:"radiusX"`
		RadiusY float64 `json:"radiusY"`
	}

	// Track is the drivable annulus between two concentric ellipses
	Track struct {
		Center Point   `json:"center"`
		Outer  Ellipse `json:"outer"`
		Inner  Ellipse `json:"inner"`
	}

	// Rect is an axis-aligned zone, closed on all sides
	Rect struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}

	// Footprint holds the corners of a vehicle's oriented bounding rectangle
	Footprint [4]Point
)

func DefaultTrack() Track {
	return Track{
		Center: Point{X: 500, Y: 350},
		Outer:  Ellipse{RadiusX: 420, RadiusY: 280},
		Inner:  Ellipse{RadiusX: 250, RadiusY: 150},
	}
}

// Validate checks the inner ellipse lies strictly within the outer one
func (t Track) Validate() error {
	if t.Inner.RadiusX <= 0 || t.Inner.RadiusY <= 0 {
		return fmt.Errorf("%w: inner radii must be positive", ErrInvalidTrack)
	}
	if t.Inner.RadiusX >= t.Outer.RadiusX || t.Inner.RadiusY >= t.Outer.RadiusY {
		return fmt.Errorf("%w: inner radii must be smaller than outer radii",
			ErrInvalidTrack)
	}
	return nil
}

// NormalizedDistance returns dx²/Rx² + dy²/Ry² of p relative to center.
// 1 means p is on the ellipse.
func (e Ellipse) NormalizedDistance(center, p Point) float64 {
	dx := p.X - center.X
	dy := p.Y - center.Y
	return (dx*dx)/(e.RadiusX*e.RadiusX) + (dy*dy)/(e.RadiusY*e.RadiusY)
}

// IsOnTrack reports whether p lies inside the outer and outside the inner
// ellipse. Both boundaries count as on track.
func (t Track) IsOnTrack(p Point) bool {
	return t.Outer.NormalizedDistance(t.Center, p) <= 1 &&
		t.Inner.NormalizedDistance(t.Center, p) >= 1
}

// ContainsFootprint reports whether all corners are on track
func (t Track) ContainsFootprint(f Footprint) bool {
	return lo.EveryBy(f[:], t.IsOnTrack)
}

// Corners computes the footprint of a rectangle centered at c, rotated by
// heading. length runs along the heading, width across it.
// Order: front-right, rear-right, rear-left, front-left.
func Corners(c Point, heading, length, width float64) Footprint {
	cos := math.Cos(heading)
	sin := math.Sin(heading)
	hl := length / 2
	hw := width / 2

	return Footprint{
		{X: c.X + cos*hl - sin*hw, Y: c.Y + sin*hl + cos*hw},
		{X: c.X + cos*hl + sin*hw, Y: c.Y + sin*hl - cos*hw},
		{X: c.X - cos*hl + sin*hw, Y: c.Y - sin*hl - cos*hw},
		{X: c.X - cos*hl - sin*hw, Y: c.Y - sin*hl + cos*hw},
	}
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// ContainsAnyCorner reports whether at least one corner of f is inside r
func (r Rect) ContainsAnyCorner(f Footprint) bool {
	return lo.SomeBy(f[:], r.Contains)
}
