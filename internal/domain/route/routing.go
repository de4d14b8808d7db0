package route

import "context"

// RoutingService is the turn-by-turn routing backend.
type RoutingService interface {
	// Nearest snaps a coordinate onto the road network.
	Nearest(ctx context.Context, c Coordinate) (Waypoint, error)

	// Route computes one or more routes through the requested waypoints.
	// A response without routes yields ErrNoRoute.
	Route(ctx context.Context, req RouteRequest) ([]RouteCandidate, error)
}
