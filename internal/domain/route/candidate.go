package route

// Maneuver describes what the driver does at the start of a step.
type Maneuver struct {
	Type     string     `json:"type"`
	Modifier string     `json:"modifier,omitempty"`
	Location Coordinate `json:"location"`
}

// Step is one turn-by-turn instruction.
type Step struct {
	Maneuver Maneuver `json:"maneuver"`
	Name     string   `json:"name"`
	Distance float64  `json:"distance"`
	Duration float64  `json:"duration"`
}

// Leg is the part of a route between two consecutive waypoints.
type Leg struct {
	Steps    []Step  `json:"steps"`
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}

// RouteCandidate is a route as returned by the routing service, before it is
// deduplicated and ranked. Distance is in meters, Duration in seconds.
type RouteCandidate struct {
	Geometry []Coordinate `json:"geometry"`
	Distance float64      `json:"distance"`
	Duration float64      `json:"duration"`
	Legs     []Leg        `json:"legs"`
}

// Steps returns the steps of every leg in order.
func (r RouteCandidate) Steps() []Step {
	var n int
	for _, leg := range r.Legs {
		n += len(leg.Steps)
	}
	steps := make([]Step, 0, n)
	for _, leg := range r.Legs {
		steps = append(steps, leg.Steps...)
	}
	return steps
}

// Waypoint is a coordinate snapped onto the road network.
// Hint is an opaque token the routing service accepts back to skip
// re-snapping; it may be empty.
type Waypoint struct {
	Location Coordinate `json:"location"`
	Hint     string     `json:"hint,omitempty"`
	Snapped  bool       `json:"snapped"`
}

// RouteRequest is one call to the routing service.
// Hints is either empty or has one entry per waypoint ("" for none).
type RouteRequest struct {
	Waypoints    []Coordinate
	Hints        []string
	Alternatives bool
}
