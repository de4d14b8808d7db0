package route

import "math"

const (
	// ViaOffsetCap bounds the via offset in degrees.
	ViaOffsetCap = 0.05

	// ViaSpanFactor scales the endpoint span into a via offset.
	ViaSpanFactor = 0.6

	// WideViaFactor multiplies the offset for the cardinal wide vias.
	WideViaFactor = 2.0

	// EndpointDisplacement pushes endpoints outward for the displaced stage.
	EndpointDisplacement = 0.01
)

// compass holds unit (dLat, dLng) steps for N, NE, E, SE, S, SW, W, NW.
var compass = [8][2]float64{
	{1, 0},
	{math.Sqrt2 / 2, math.Sqrt2 / 2},
	{0, 1},
	{-math.Sqrt2 / 2, math.Sqrt2 / 2},
	{-1, 0},
	{-math.Sqrt2 / 2, -math.Sqrt2 / 2},
	{0, -1},
	{math.Sqrt2 / 2, -math.Sqrt2 / 2},
}

// ViaOffset returns min(ViaOffsetCap, ViaSpanFactor × span) where span is the
// larger of the latitude and longitude differences between a and b.
func ViaOffset(a, b Coordinate) float64 {
	span := math.Max(math.Abs(b.Lat-a.Lat), math.Abs(b.Lng-a.Lng))
	return math.Min(ViaOffsetCap, ViaSpanFactor*span)
}

// ViaPoints returns the intermediate waypoints used to coax the routing
// service into geometrically distinct routes: the A/B midpoint pushed along
// the eight compass directions, then four wider pushes along the cardinal
// axes. Coincident endpoints yield no vias.
func ViaPoints(a, b Coordinate) []Coordinate {
	offset := ViaOffset(a, b)
	if offset <= 0 {
		return nil
	}

	mid := Midpoint(a, b)
	vias := make([]Coordinate, 0, len(compass)+4)
	for _, dir := range compass {
		vias = append(vias, mid.Offset(dir[0]*offset, dir[1]*offset))
	}
	wide := offset * WideViaFactor
	for i := 0; i < len(compass); i += 2 {
		dir := compass[i]
		vias = append(vias, mid.Offset(dir[0]*wide, dir[1]*wide))
	}
	return vias
}

// DisplaceEndpoints pushes a and b apart along each axis by d degrees.
func DisplaceEndpoints(a, b Coordinate, d float64) (Coordinate, Coordinate) {
	sLat := sign(b.Lat - a.Lat)
	sLng := sign(b.Lng - a.Lng)
	return a.Offset(-sLat*d, -sLng*d), b.Offset(sLat*d, sLng*d)
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
