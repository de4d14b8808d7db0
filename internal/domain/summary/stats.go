package summary

import (
	"fmt"
	"strings"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
)

// RouteStats are the maneuver statistics of one route.
type RouteStats struct {
	TurnCount           int     `json:"turn_count"`
	LeftTurnCount       int     `json:"left_turn_count"`
	RoundaboutCount     int     `json:"roundabout_count"`
	AverageStepDistance float64 `json:"average_step_distance"`
}

// ComputeStats counts turns, left turns (modifier contains "left") and
// roundabouts (label contains "roundabout"), case-insensitively.
func ComputeStats(v route.RouteView) RouteStats {
	s := RouteStats{TurnCount: len(v.Turns)}
	var total float64
	for _, t := range v.Turns {
		if strings.Contains(strings.ToLower(t.Modifier), "left") {
			s.LeftTurnCount++
		}
		if strings.Contains(strings.ToLower(t.Maneuver), "roundabout") {
			s.RoundaboutCount++
		}
		total += t.Distance
	}
	if len(v.Turns) > 0 {
		s.AverageStepDistance = total / float64(len(v.Turns))
	}
	return s
}

// Hints names the best route for each simple criterion; -1 when there are no
// routes. Ties go to the first route.
type Hints struct {
	Fastest     int `json:"fastest"`
	FewestTurns int `json:"fewest_turns"`
	FewestLefts int `json:"fewest_left_turns"`
}

// DeriveHints picks the fastest, fewest-turn and fewest-left-turn routes.
func DeriveHints(views []route.RouteView, stats []RouteStats) Hints {
	h := Hints{Fastest: -1, FewestTurns: -1, FewestLefts: -1}
	for i, v := range views {
		if h.Fastest == -1 || v.Duration < views[h.Fastest].Duration {
			h.Fastest = i
		}
		if h.FewestTurns == -1 || stats[i].TurnCount < stats[h.FewestTurns].TurnCount {
			h.FewestTurns = i
		}
		if h.FewestLefts == -1 || stats[i].LeftTurnCount < stats[h.FewestLefts].LeftTurnCount {
			h.FewestLefts = i
		}
	}
	return h
}

// Strings renders the hints for the model prompt.
func (h Hints) Strings(views []route.RouteView) []string {
	if h.Fastest < 0 {
		return nil
	}
	return []string{
		fmt.Sprintf("fastest: route_index %d", views[h.Fastest].Index),
		fmt.Sprintf("fewest turns: route_index %d", views[h.FewestTurns].Index),
		fmt.Sprintf("fewest left turns: route_index %d", views[h.FewestLefts].Index),
	}
}
