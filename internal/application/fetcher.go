package application

import (
	"context"
	"time"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/metrics"
	"go.uber.org/zap"
)

// AcceptFunc offers a candidate to the result set and reports whether the
// set still wants more.
type AcceptFunc func(route.RouteCandidate) bool

// Stage produces route candidates for a pair of snapped endpoints.
type Stage interface {
	// Name identifies the stage in logs and metrics.
	Name() string

	// Collect offers candidates to accept until it runs out or accept
	// returns false.
	Collect(ctx context.Context, from, to route.Waypoint, accept AcceptFunc) error
}

// RouteFetcher acquires up to route.MaxRoutes unique candidates by running
// its stages in order until the set is full. Only the first stage's error is
// kept; later stages are best effort.
type RouteFetcher struct {
	stages  []Stage
	limit   int
	metrics *metrics.Recorder
	logger  *zap.Logger
}

// NewRouteFetcher creates a fetcher with the default pipeline: organic
// alternatives, then via-point diversification, then via-point
// diversification around displaced endpoints.
func NewRouteFetcher(routing route.RoutingService, timeout time.Duration, recorder *metrics.Recorder, logger *zap.Logger) *RouteFetcher {
	return NewRouteFetcherWithStages(recorder, logger,
		&AlternativesStage{Routing: routing, Timeout: timeout},
		&ViaStage{Routing: routing, Timeout: timeout, Logger: logger},
		&ViaStage{Routing: routing, Timeout: timeout, Displacement: route.EndpointDisplacement, Logger: logger},
	)
}

// NewRouteFetcherWithStages creates a fetcher running the given stages.
func NewRouteFetcherWithStages(recorder *metrics.Recorder, logger *zap.Logger, stages ...Stage) *RouteFetcher {
	return &RouteFetcher{stages: stages, limit: route.MaxRoutes, metrics: recorder, logger: logger}
}

// Fetch returns the unique candidates in arrival order. When nothing was
// found it returns a *route.NoRouteFoundError carrying the first stage's error.
func (f *RouteFetcher) Fetch(ctx context.Context, from, to route.Waypoint) ([]route.RouteCandidate, error) {
	set := route.NewCandidateSet(f.limit)
	var firstErr error

	for i, stage := range f.stages {
		if set.Full() {
			break
		}

		name := stage.Name()
		before := set.Len()
		accept := func(c route.RouteCandidate) bool {
			if set.Add(c) {
				f.metrics.RouteAccepted(name)
			}
			return !set.Full()
		}

		err := stage.Collect(ctx, from, to, accept)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			if i == 0 {
				firstErr = err
			}
			f.logger.Warn("route stage failed",
				zap.String("stage", name),
				zap.Error(err),
			)
		}

		f.logger.Debug("route stage finished",
			zap.String("stage", name),
			zap.Int("accepted", set.Len()-before),
			zap.Int("total", set.Len()),
		)
	}

	if set.Len() == 0 {
		return nil, &route.NoRouteFoundError{Cause: firstErr}
	}
	return set.Routes(), nil
}

// AlternativesStage asks once for the route between the endpoints with
// alternatives enabled and hints attached.
type AlternativesStage struct {
	Routing route.RoutingService
	Timeout time.Duration
}

// Name implements Stage.
func (s *AlternativesStage) Name() string { return "alternatives" }

// Collect implements Stage.
func (s *AlternativesStage) Collect(ctx context.Context, from, to route.Waypoint, accept AcceptFunc) error {
	reqCtx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	candidates, err := s.Routing.Route(reqCtx, route.RouteRequest{
		Waypoints:    []route.Coordinate{from.Location, to.Location},
		Hints:        []string{from.Hint, to.Hint},
		Alternatives: true,
	})
	if err != nil {
		return err
	}
	for _, c := range candidates {
		if !accept(c) {
			return nil
		}
	}
	return nil
}

// ViaStage forces distinct geometry by routing through via points around the
// endpoints' midpoint, one request at a time. With a non-zero Displacement
// the endpoints are first pushed apart by that many degrees. Failed requests
// count as producing nothing.
type ViaStage struct {
	Routing      route.RoutingService
	Timeout      time.Duration
	Displacement float64
	Logger       *zap.Logger
}

// Name implements Stage.
func (s *ViaStage) Name() string {
	if s.Displacement != 0 {
		return "displaced_via"
	}
	return "via"
}

// Collect implements Stage.
func (s *ViaStage) Collect(ctx context.Context, from, to route.Waypoint, accept AcceptFunc) error {
	a, b := from.Location, to.Location
	hints := []string{from.Hint, "", to.Hint}
	if s.Displacement != 0 {
		a, b = route.DisplaceEndpoints(a, b, s.Displacement)
		hints = nil
	}

	for _, via := range route.ViaPoints(a, b) {
		if err := ctx.Err(); err != nil {
			return err
		}

		candidates, err := s.request(ctx, []route.Coordinate{a, via, b}, hints)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Debug("via candidate failed",
					zap.String("stage", s.Name()),
					zap.String("via", via.String()),
					zap.Error(err),
				)
			}
			continue
		}
		if len(candidates) == 0 {
			continue
		}
		if !accept(candidates[0]) {
			return nil
		}
	}
	return nil
}

func (s *ViaStage) request(ctx context.Context, waypoints []route.Coordinate, hints []string) ([]route.RouteCandidate, error) {
	reqCtx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()
	return s.Routing.Route(reqCtx, route.RouteRequest{Waypoints: waypoints, Hints: hints})
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
