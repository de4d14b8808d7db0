package route

import "math"

const (
	// EarthRadiusMeters is the mean Earth radius.
	EarthRadiusMeters = 6371000.0

	// DefaultMarkerSpacing is the checkpoint interval in meters.
	DefaultMarkerSpacing = 100.0

	// DefaultMaxMarkers caps checkpoints per route.
	DefaultMaxMarkers = 400
)

// RouteMarker is a checkpoint at a fixed distance along a route.
type RouteMarker struct {
	Location          Coordinate `json:"location"`
	DistanceCovered   float64    `json:"distance_covered"`
	DistanceRemaining float64    `json:"distance_remaining"`
	TimeRemaining     float64    `json:"time_remaining"`
}

// HaversineDistance returns the great-circle distance between a and b in meters.
func HaversineDistance(a, b Coordinate) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// PathLength returns the summed great-circle length of a polyline.
func PathLength(path []Coordinate) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += HaversineDistance(path[i-1], path[i])
	}
	return total
}

// SampleMarkers places checkpoints every spacing meters along path, stopping
// before the end of the path or after maxMarkers. Positions are interpolated
// linearly in lat/lng inside the bracketing segment; at checkpoint spacing the
// error against a true geodesic is negligible.
//
// TimeRemaining is left zero; see WithRemainingTime.
func SampleMarkers(path []Coordinate, spacing float64, maxMarkers int) []RouteMarker {
	if len(path) < 2 || !(spacing > 0) || math.IsInf(spacing, 1) || maxMarkers <= 0 {
		return nil
	}

	cumulative := make([]float64, len(path))
	for i := 1; i < len(path); i++ {
		cumulative[i] = cumulative[i-1] + HaversineDistance(path[i-1], path[i])
	}
	total := cumulative[len(cumulative)-1]
	if total <= 0 {
		return nil
	}

	// A checkpoint that lands on the destination within float noise is dropped.
	limit := total - spacing*1e-9

	var markers []RouteMarker
	seg := 1
	for k := 1; len(markers) < maxMarkers; k++ {
		target := float64(k) * spacing
		if target >= limit {
			break
		}
		for seg < len(cumulative)-1 && cumulative[seg] < target {
			seg++
		}

		a, b := path[seg-1], path[seg]
		segLen := cumulative[seg] - cumulative[seg-1]
		frac := 0.0
		if segLen > 0 {
			frac = (target - cumulative[seg-1]) / segLen
		}

		markers = append(markers, RouteMarker{
			Location: Coordinate{
				Lat: a.Lat + (b.Lat-a.Lat)*frac,
				Lng: a.Lng + (b.Lng-a.Lng)*frac,
			},
			DistanceCovered:   target,
			DistanceRemaining: total - target,
		})
	}
	return markers
}

// WithRemainingTime fills TimeRemaining by scaling totalDuration by the share
// of distance still to go.
func WithRemainingTime(markers []RouteMarker, totalDuration float64) []RouteMarker {
	out := make([]RouteMarker, len(markers))
	for i, m := range markers {
		total := m.DistanceCovered + m.DistanceRemaining
		if total > 0 {
			m.TimeRemaining = totalDuration * (m.DistanceRemaining / total)
		}
		out[i] = m
	}
	return out
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
