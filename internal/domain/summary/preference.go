package summary

import "time"

// TimeBand is a coarse time-of-day class that biases the recommendation.
type TimeBand string

const (
	TimeBandNight       TimeBand = "night"
	TimeBandMorningPeak TimeBand = "morning_peak"
	TimeBandEveningPeak TimeBand = "evening_peak"
	TimeBandBalanced    TimeBand = "balanced"
)

// ClassifyTimeOfDay maps a local clock time onto a TimeBand:
// night 22:00–06:00, morning peak 07:00–10:00, evening peak 17:00–20:00,
// balanced otherwise. Band ends are exclusive.
func ClassifyTimeOfDay(t time.Time) TimeBand {
	h := t.Hour()
	switch {
	case h >= 22 || h < 6:
		return TimeBandNight
	case h >= 7 && h < 10:
		return TimeBandMorningPeak
	case h >= 17 && h < 20:
		return TimeBandEveningPeak
	default:
		return TimeBandBalanced
	}
}

// Bias is the preference sent to the model for this band.
func (b TimeBand) Bias() string {
	switch b {
	case TimeBandNight:
		return "night: prefer simple maneuvers and avoid roundabouts"
	case TimeBandMorningPeak, TimeBandEveningPeak:
		return "peak traffic: prefer the shortest travel time"
	default:
		return "balanced: weigh travel time and simplicity equally"
	}
}
