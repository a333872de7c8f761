package collision

import (
	"github.com/mpapenbr/ovalrace/pkg/geometry"
	"github.com/mpapenbr/ovalrace/pkg/vehicle"
)

// BounceFactor is applied to the speed when the vehicle hits a boundary
const BounceFactor = -0.6

type Resolver struct {
	track  geometry.Track
	bounce float64
}

type Option func(r *Resolver)

func WithBounceFactor(f float64) Option {
	return func(r *Resolver) {
		r.bounce = f
	}
}

func NewResolver(track geometry.Track, opts ...Option) *Resolver {
	ret := &Resolver{track: track, bounce: BounceFactor}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Resolve checks the footprint of v after its position update. If any corner
// left the track the position is reset to prev and the speed is reversed and
// damped. Returns true if a collision was handled.
func (r *Resolver) Resolve(v *vehicle.Vehicle, prev geometry.Point) bool {
	if r.track.ContainsFootprint(v.Footprint()) {
		return false
	}
	v.Position = prev
	v.Speed *= r.bounce
	return true
}
