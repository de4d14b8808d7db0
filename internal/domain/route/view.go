package route

import (
	"strings"

	"github.com/google/uuid"
)

// UnnamedStreet labels steps the routing service returns without a name.
const UnnamedStreet = "Unnamed road"

// Palette assigns display colors by rank.
var Palette = []string{"#2563eb", "#16a34a", "#f97316", "#9333ea", "#dc2626"}

// TurnNode is one maneuver along a route, prepared for display.
type TurnNode struct {
	Location   Coordinate `json:"location"`
	Street     string     `json:"street"`
	Maneuver   string     `json:"maneuver"`
	Type       string     `json:"type"`
	Modifier   string     `json:"modifier,omitempty"`
	Distance   float64    `json:"distance"`
	Duration   float64    `json:"duration"`
	RouteIndex int        `json:"route_index"`
}

// RouteView is a ranked, deduplicated route ready for rendering.
type RouteView struct {
	ID          uuid.UUID    `json:"id"`
	Index       int          `json:"index"`
	Coordinates []Coordinate `json:"coordinates"`
	Distance    float64      `json:"distance"`
	Duration    float64      `json:"duration"`
	Color       string       `json:"color"`
	IsPrimary   bool         `json:"is_primary"`
	Turns       []TurnNode   `json:"turns"`
}

// PrimaryIndex returns the index of the fastest candidate, the lowest index
// winning ties, or -1 for an empty slice.
func PrimaryIndex(durations []float64) int {
	best := -1
	for i, d := range durations {
		if best == -1 || d < durations[best] {
			best = i
		}
	}
	return best
}

// BuildViews ranks candidates in arrival order, truncates to MaxRoutes, and
// marks exactly one view as primary.
func BuildViews(candidates []RouteCandidate) []RouteView {
	if len(candidates) > MaxRoutes {
		candidates = candidates[:MaxRoutes]
	}

	durations := make([]float64, len(candidates))
	for i, c := range candidates {
		durations[i] = c.Duration
	}
	primary := PrimaryIndex(durations)

	views := make([]RouteView, len(candidates))
	for i, c := range candidates {
		coords := make([]Coordinate, len(c.Geometry))
		copy(coords, c.Geometry)
		views[i] = RouteView{
			ID:          uuid.New(),
			Index:       i,
			Coordinates: coords,
			Distance:    c.Distance,
			Duration:    c.Duration,
			Color:       Palette[i%len(Palette)],
			IsPrimary:   i == primary,
			Turns:       buildTurns(c, i),
		}
	}
	return views
}

// PrimaryOf returns the index of the view flagged primary, or -1.
func PrimaryOf(views []RouteView) int {
	for _, v := range views {
		if v.IsPrimary {
			return v.Index
		}
	}
	return -1
}

func buildTurns(c RouteCandidate, routeIndex int) []TurnNode {
	steps := c.Steps()
	turns := make([]TurnNode, 0, len(steps))
	for _, s := range steps {
		street := strings.TrimSpace(s.Name)
		if street == "" {
			street = UnnamedStreet
		}
		turns = append(turns, TurnNode{
			Location:   s.Maneuver.Location,
			Street:     street,
			Maneuver:   ManeuverLabel(s.Maneuver.Type, s.Maneuver.Modifier),
			Type:       s.Maneuver.Type,
			Modifier:   s.Maneuver.Modifier,
			Distance:   s.Distance,
			Duration:   s.Duration,
			RouteIndex: routeIndex,
		})
	}
	return turns
}

var maneuverLabels = map[string]string{
	"depart":          "Depart",
	"arrive":          "Arrive",
	"turn":            "Turn",
	"continue":        "Continue",
	"new name":        "Continue",
	"merge":           "Merge",
	"on ramp":         "Take the ramp",
	"off ramp":        "Exit the ramp",
	"fork":            "Keep at fork",
	"end of road":     "Turn at end of road",
	"use lane":        "Use lane",
	"roundabout":      "Enter roundabout",
	"rotary":          "Enter roundabout",
	"roundabout turn": "Roundabout turn",
	"exit roundabout": "Exit roundabout",
	"exit rotary":     "Exit roundabout",
	"notification":    "Notice",
}

// ManeuverLabel classifies a routing-service maneuver type into a readable
// label, appending the modifier ("Turn left", "Keep at fork right").
func ManeuverLabel(maneuverType, modifier string) string {
	label, ok := maneuverLabels[strings.ToLower(strings.TrimSpace(maneuverType))]
	if !ok {
		label = "Continue"
	}
	switch label {
	case "Depart", "Arrive", "Notice":
		return label
	}
	if m := strings.TrimSpace(modifier); m != "" {
		return label + " " + m
	}
	return label
}
