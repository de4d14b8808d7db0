package summary

import (
	"math"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
)

// MaxManeuverSamples caps the maneuvers serialized per route.
const MaxManeuverSamples = 15

// Payload is the JSON document sent alongside the instruction prompt.
type Payload struct {
	Context PayloadContext `json:"context"`
	Routes  []PayloadRoute `json:"routes"`
}

// PayloadContext carries the inferred preferences.
type PayloadContext struct {
	TimeBand      TimeBand `json:"time_band"`
	Bias          string   `json:"bias"`
	Hints         []string `json:"hints"`
	SelectedIndex int      `json:"selected_index"`
}

// PayloadRoute is one route's telemetry.
type PayloadRoute struct {
	Index           int              `json:"index"`
	IsPrimary       bool             `json:"is_primary"`
	Distance        float64          `json:"distance_m"`
	Duration        float64          `json:"duration_s"`
	TurnCount       int              `json:"turn_count"`
	LeftTurnCount   int              `json:"left_turn_count"`
	RoundaboutCount int              `json:"roundabout_count"`
	AvgStepDistance float64          `json:"average_step_distance_m"`
	Maneuvers       []ManeuverSample `json:"maneuvers"`
}

// ManeuverSample is a compact maneuver description.
type ManeuverSample struct {
	Type     string           `json:"type"`
	Modifier string           `json:"modifier,omitempty"`
	Street   string           `json:"street"`
	Location route.Coordinate `json:"location"`
}

// BuildPayload assembles the request document for a route set.
func BuildPayload(views []route.RouteView, selected int, band TimeBand) Payload {
	stats := make([]RouteStats, len(views))
	for i, v := range views {
		stats[i] = ComputeStats(v)
	}
	hints := DeriveHints(views, stats)

	p := Payload{
		Context: PayloadContext{
			TimeBand:      band,
			Bias:          band.Bias(),
			Hints:         hints.Strings(views),
			SelectedIndex: selected,
		},
		Routes: make([]PayloadRoute, len(views)),
	}

	for i, v := range views {
		n := len(v.Turns)
		if n > MaxManeuverSamples {
			n = MaxManeuverSamples
		}
		samples := make([]ManeuverSample, n)
		for j := 0; j < n; j++ {
			t := v.Turns[j]
			samples[j] = ManeuverSample{
				Type:     t.Maneuver,
				Modifier: t.Modifier,
				Street:   t.Street,
				Location: t.Location.Round(5),
			}
		}
		p.Routes[i] = PayloadRoute{
			Index:           v.Index,
			IsPrimary:       v.IsPrimary,
			Distance:        math.Round(v.Distance),
			Duration:        math.Round(v.Duration),
			TurnCount:       stats[i].TurnCount,
			LeftTurnCount:   stats[i].LeftTurnCount,
			RoundaboutCount: stats[i].RoundaboutCount,
			AvgStepDistance: math.Round(stats[i].AverageStepDistance),
			Maneuvers:       samples,
		}
	}
	return p
}
