// Package path holds the immutable mission route: the ordered waypoint
// sequence the vehicle follows and the named points of interest referenced
// by phase entry effects. A route is loaded once per mission and never
// mutated afterwards.
package path

import (
	"fmt"
	"math"
)

// Waypoint is one stop on the route. Its identity is its index in the
// route's waypoint slice.
type Waypoint struct {
	X     float64 `yaml:"x" json:"x"`
	Y     float64 `yaml:"y" json:"y"`
	Label string  `yaml:"label" json:"label"`
}

// Point is a named location that is not part of the flown route, e.g. the
// unknown-object position that triggers the uncertainty phases.
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Route is the full path model for one mission.
type Route struct {
	Name             string           `yaml:"name" json:"name"`
	Waypoints        []Waypoint       `yaml:"waypoints" json:"waypoints"`
	PointsOfInterest map[string]Point `yaml:"points_of_interest,omitempty" json:"points_of_interest,omitempty"`
}

// Validate checks structural soundness: at least two waypoints and finite
// coordinates everywhere.
func (r *Route) Validate() error {
	if len(r.Waypoints) < 2 {
		return fmt.Errorf("route %q: need at least 2 waypoints, have %d", r.Name, len(r.Waypoints))
	}
	for i, wp := range r.Waypoints {
		if !finite(wp.X) || !finite(wp.Y) {
			return fmt.Errorf("route %q: waypoint %d has non-finite coordinates", r.Name, i)
		}
	}
	for name, p := range r.PointsOfInterest {
		if !finite(p.X) || !finite(p.Y) {
			return fmt.Errorf("route %q: point of interest %q has non-finite coordinates", r.Name, name)
		}
	}
	return nil
}

// Waypoint returns the waypoint at index i, clamped to the route bounds so a
// phase spec referencing one-past-the-end during the terminal phases snaps
// to the final waypoint instead of panicking a live playback.
func (r *Route) Waypoint(i int) Waypoint {
	if i < 0 {
		i = 0
	}
	if i >= len(r.Waypoints) {
		i = len(r.Waypoints) - 1
	}
	return r.Waypoints[i]
}

// Len returns the number of waypoints.
func (r *Route) Len() int { return len(r.Waypoints) }

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Default returns the compiled-in demo route: a five-stop corridor with the
// unknown-object contact sited between waypoints 2 and 3.
func Default() *Route {
	return &Route{
		Name: "corridor-alpha",
		Waypoints: []Waypoint{
			{X: 80, Y: 420, Label: "LAUNCH"},
			{X: 220, Y: 330, Label: "WP-1"},
			{X: 380, Y: 300, Label: "WP-2"},
			{X: 540, Y: 230, Label: "WP-3"},
			{X: 700, Y: 120, Label: "DESTINATION"},
		},
		PointsOfInterest: map[string]Point{
			"unknown_object": {X: 455, Y: 262},
			"avoidance_apex": {X: 470, Y: 345},
		},
	}
}
