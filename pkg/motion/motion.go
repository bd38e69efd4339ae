// Package motion computes the vehicle's position and heading as a pure
// function of phase progress. It holds no state: the same inputs always
// produce the same VehicleState, which is what makes scripted playbacks
// reproducible tick for tick.
package motion

import (
	"math"
	"time"

	"github.com/meridian-autonomy/vigil/pkg/path"
)

// HeadingOffset is added to the leg direction so the vehicle glyph's nose
// lines up with its travel vector. Degrees.
const HeadingOffset = 90.0

// VehicleState is the interpolated pose at one instant.
type VehicleState struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"` // degrees
}

// EaseOutCubic maps linear progress to the presentation easing curve
// f(t) = 1 - (1-t)^3. Monotonic on [0,1].
func EaseOutCubic(t float64) float64 {
	inv := 1 - t
	return 1 - inv*inv*inv
}

// Progress converts elapsed time within a phase to a clamped [0,1] ratio.
// Elapsed may legitimately exceed duration for one tick before the phase
// machine fires its transition; the ratio is clamped rather than rejected.
// Non-positive durations count as already complete.
func Progress(elapsed, duration time.Duration) float64 {
	if duration <= 0 {
		return 1
	}
	t := float64(elapsed) / float64(duration)
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// PositionAt interpolates the vehicle pose along the waypoint legs of a
// phase. legs is the ordered waypoint index chain the phase traverses
// ([a, b] is one leg, [a, b, c] two legs with progress split evenly).
// A chain with fewer than two entries parks the vehicle on the single
// referenced waypoint (or the route origin) with a neutral heading.
func PositionAt(route *path.Route, legs []int, elapsed, duration time.Duration) VehicleState {
	if len(legs) == 0 {
		return Snap(route, 0)
	}
	if len(legs) == 1 {
		return Snap(route, legs[0])
	}

	eased := EaseOutCubic(Progress(elapsed, duration))

	// Split eased progress evenly across the leg chain.
	legCount := len(legs) - 1
	scaled := eased * float64(legCount)
	legIdx := int(scaled)
	if legIdx >= legCount {
		legIdx = legCount - 1
	}
	local := scaled - float64(legIdx)
	if local > 1 {
		local = 1
	}

	from := route.Waypoint(legs[legIdx])
	to := route.Waypoint(legs[legIdx+1])

	return VehicleState{
		X:       lerp(from.X, to.X, local),
		Y:       lerp(from.Y, to.Y, local),
		Heading: headingBetween(from, to),
	}
}

// Snap returns the pose parked on a waypoint, facing along the next leg when
// one exists so the glyph does not spin on arrival.
func Snap(route *path.Route, index int) VehicleState {
	wp := route.Waypoint(index)
	heading := HeadingOffset
	if index+1 < route.Len() {
		heading = headingBetween(wp, route.Waypoint(index+1))
	} else if index > 0 {
		heading = headingBetween(route.Waypoint(index-1), wp)
	}
	return VehicleState{X: wp.X, Y: wp.Y, Heading: heading}
}

// headingBetween derives heading from the leg's direction vector rather than
// from velocity history, so a stalled progress ratio (freeze) cannot jitter
// the heading.
func headingBetween(from, to path.Waypoint) float64 {
	return math.Atan2(to.Y-from.Y, to.X-from.X)*180/math.Pi + HeadingOffset
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
