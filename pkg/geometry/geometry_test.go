//nolint:funlen // ok for tests
package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrack_IsOnTrack(t *testing.T) {
	track := DefaultTrack()
	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"between ellipses below center", Point{X: 500, Y: 565}, true},
		{"between ellipses left of center", Point{X: 160, Y: 350}, true},
		{"center is inside inner ellipse", Point{X: 500, Y: 350}, false},
		{"inside inner ellipse", Point{X: 600, Y: 400}, false},
		{"outside outer ellipse", Point{X: 0, Y: 0}, false},
		{"far right outside", Point{X: 921, Y: 350}, false},
		{"on outer boundary right", Point{X: 920, Y: 350}, true},
		{"on outer boundary bottom", Point{X: 500, Y: 630}, true},
		{"on inner boundary right", Point{X: 750, Y: 350}, true},
		{"on inner boundary top", Point{X: 500, Y: 200}, true},
		{"just inside inner boundary", Point{X: 749.999, Y: 350}, false},
		{"just outside outer boundary", Point{X: 500, Y: 630.001}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, track.IsOnTrack(tt.p))
		})
	}
}

func TestTrack_Validate(t *testing.T) {
	assert.NoError(t, DefaultTrack().Validate())

	bad := DefaultTrack()
	bad.Inner.RadiusX = bad.Outer.RadiusX
	assert.ErrorIs(t, bad.Validate(), ErrInvalidTrack)

	bad = DefaultTrack()
	bad.Inner.RadiusY = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidTrack)
}

func TestCorners(t *testing.T) {
	const eps = 1e-9
	t.Run("heading +x", func(t *testing.T) {
		f := Corners(Point{X: 100, Y: 100}, 0, 40, 20)
		want := Footprint{
			{X: 120, Y: 110},
			{X: 120, Y: 90},
			{X: 80, Y: 90},
			{X: 80, Y: 110},
		}
		for i := range want {
			assert.InDelta(t, want[i].X, f[i].X, eps, "corner %d x", i)
			assert.InDelta(t, want[i].Y, f[i].Y, eps, "corner %d y", i)
		}
	})
	t.Run("heading up", func(t *testing.T) {
		f := Corners(Point{X: 500, Y: 550}, -math.Pi/2, 40, 20)
		want := Footprint{
			{X: 510, Y: 530},
			{X: 490, Y: 530},
			{X: 490, Y: 570},
			{X: 510, Y: 570},
		}
		for i := range want {
			assert.InDelta(t, want[i].X, f[i].X, eps, "corner %d x", i)
			assert.InDelta(t, want[i].Y, f[i].Y, eps, "corner %d y", i)
		}
	})
	t.Run("equivalent mod 2pi", func(t *testing.T) {
		a := Corners(Point{X: 10, Y: 20}, 0.3, 40, 20)
		b := Corners(Point{X: 10, Y: 20}, 0.3+2*math.Pi, 40, 20)
		for i := range a {
			assert.InDelta(t, a[i].X, b[i].X, eps)
			assert.InDelta(t, a[i].Y, b[i].Y, eps)
		}
	})
}

func TestRect_ContainsAnyCorner(t *testing.T) {
	r := Rect{X: 480, Y: 180, Width: 40, Height: 80}
	tests := []struct {
		name string
		f    Footprint
		want bool
	}{
		{
			name: "fully inside",
			f:    Corners(Point{X: 500, Y: 220}, -math.Pi/2, 40, 20),
			want: true,
		},
		{
			name: "one corner on the edge",
			f: Footprint{
				{X: 520, Y: 260}, {X: 530, Y: 270}, {X: 540, Y: 280}, {X: 530, Y: 290},
			},
			want: true,
		},
		{
			name: "corner on top left edge",
			f: Footprint{
				{X: 480, Y: 180}, {X: 470, Y: 170}, {X: 460, Y: 170}, {X: 470, Y: 160},
			},
			want: true,
		},
		{
			name: "all outside",
			f:    Corners(Point{X: 300, Y: 220}, 0, 40, 20),
			want: false,
		},
		{
			name: "just beyond right edge",
			f: Footprint{
				{X: 520.0001, Y: 200}, {X: 530, Y: 200}, {X: 530, Y: 210}, {X: 520.0001, Y: 210},
			},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ContainsAnyCorner(tt.f))
		})
	}
}

func TestTrack_ContainsFootprint(t *testing.T) {
	track := DefaultTrack()
	assert.True(t, track.ContainsFootprint(Corners(Point{X: 500, Y: 565}, 0, 40, 20)))
	// pointing up from the start, the nose reaches into the inner grass
	assert.False(t, track.ContainsFootprint(Corners(Point{X: 500, Y: 515}, -math.Pi/2, 40, 20)))
}
