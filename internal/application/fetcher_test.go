package application

import (
	"context"
	"errors"
	"testing"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	testFrom = route.Waypoint{Location: route.Coordinate{Lat: 52.52, Lng: 13.40}, Hint: "from", Snapped: true}
	testTo   = route.Waypoint{Location: route.Coordinate{Lat: 52.50, Lng: 13.45}, Hint: "to", Snapped: true}
)

func newTestFetcher(routing route.RoutingService) *RouteFetcher {
	return NewRouteFetcher(routing, 0, nil, zap.NewNop())
}

func TestFetch_StopsAtMaxRoutes(t *testing.T) {
	routing := &fakeRouting{}
	routing.setRoute(uniqueRoutes())

	candidates, err := newTestFetcher(routing).Fetch(context.Background(), testFrom, testTo)
	require.NoError(t, err)
	assert.Len(t, candidates, route.MaxRoutes)

	// One alternatives request yields two, three via requests fill the set.
	requests := routing.Requests()
	require.Len(t, requests, 4)
	assert.True(t, requests[0].Alternatives)
	assert.Equal(t, []string{"from", "to"}, requests[0].Hints)
	for _, req := range requests[1:] {
		assert.False(t, req.Alternatives)
		assert.Len(t, req.Waypoints, 3)
		assert.Equal(t, []string{"from", "", "to"}, req.Hints)
	}
}

func TestFetch_TruncatesAlternatives(t *testing.T) {
	routing := &fakeRouting{}
	routing.setRoute(func(_ context.Context, req route.RouteRequest) ([]route.RouteCandidate, error) {
		out := make([]route.RouteCandidate, 7)
		for i := range out {
			out[i] = candidateAlong(req.Waypoints, i)
		}
		return out, nil
	})

	candidates, err := newTestFetcher(routing).Fetch(context.Background(), testFrom, testTo)
	require.NoError(t, err)
	require.Len(t, candidates, route.MaxRoutes)
	assert.Equal(t, 1000.0, candidates[0].Distance)
	assert.Equal(t, 1400.0, candidates[4].Distance)
	assert.Len(t, routing.Requests(), 1)
}

func TestFetch_DropsDuplicates(t *testing.T) {
	same := candidateAlong([]route.Coordinate{testFrom.Location, testTo.Location}, 0)
	routing := &fakeRouting{}
	routing.setRoute(func(_ context.Context, req route.RouteRequest) ([]route.RouteCandidate, error) {
		return []route.RouteCandidate{same, same}, nil
	})

	candidates, err := newTestFetcher(routing).Fetch(context.Background(), testFrom, testTo)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)

	seen := map[string]bool{}
	for _, c := range candidates {
		sig := route.Signature(c)
		assert.False(t, seen[sig])
		seen[sig] = true
	}
}

func TestFetch_KeepsFirstStageError(t *testing.T) {
	routing := &fakeRouting{}
	routing.setRoute(func(_ context.Context, req route.RouteRequest) ([]route.RouteCandidate, error) {
		if req.Alternatives {
			return nil, route.ErrRateLimited
		}
		return nil, errors.New("via failed")
	})

	_, err := newTestFetcher(routing).Fetch(context.Background(), testFrom, testTo)
	require.Error(t, err)
	assert.ErrorIs(t, err, route.ErrNoRouteFound)
	assert.ErrorIs(t, err, route.ErrRateLimited)

	var nf *route.NoRouteFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, route.ErrRateLimited, nf.Cause)

	// alternatives + 12 vias + 12 displaced vias
	assert.Len(t, routing.Requests(), 25)
}

func TestFetch_NoRouteWithoutErrors(t *testing.T) {
	routing := &fakeRouting{}
	routing.setRoute(func(context.Context, route.RouteRequest) ([]route.RouteCandidate, error) {
		return nil, nil
	})

	_, err := newTestFetcher(routing).Fetch(context.Background(), testFrom, testTo)
	var nf *route.NoRouteFoundError
	require.ErrorAs(t, err, &nf)
	assert.Nil(t, nf.Cause)
}

func TestFetch_LaterStagesRecover(t *testing.T) {
	routing := &fakeRouting{}
	fresh := uniqueRoutes()
	routing.setRoute(func(ctx context.Context, req route.RouteRequest) ([]route.RouteCandidate, error) {
		if req.Alternatives {
			return nil, route.ErrNoRoute
		}
		return fresh(ctx, req)
	})

	candidates, err := newTestFetcher(routing).Fetch(context.Background(), testFrom, testTo)
	require.NoError(t, err)
	assert.Len(t, candidates, route.MaxRoutes)
}

func TestFetch_DisplacedStage(t *testing.T) {
	routing := &fakeRouting{}
	fresh := uniqueRoutes()
	routing.setRoute(func(ctx context.Context, req route.RouteRequest) ([]route.RouteCandidate, error) {
		if req.Waypoints[0] == testFrom.Location {
			return nil, route.ErrNoRoute
		}
		return fresh(ctx, req)
	})

	candidates, err := newTestFetcher(routing).Fetch(context.Background(), testFrom, testTo)
	require.NoError(t, err)
	require.Len(t, candidates, route.MaxRoutes)

	requests := routing.Requests()
	last := requests[len(requests)-1]
	assert.Nil(t, last.Hints)
	// Origin is north-west of the destination, so it moves further north-west.
	assert.InDelta(t, 52.53, last.Waypoints[0].Lat, 1e-9)
	assert.InDelta(t, 13.39, last.Waypoints[0].Lng, 1e-9)
	assert.InDelta(t, 52.49, last.Waypoints[2].Lat, 1e-9)
	assert.InDelta(t, 13.46, last.Waypoints[2].Lng, 1e-9)
}

func TestFetch_Cancelled(t *testing.T) {
	routing := &fakeRouting{}
	routing.setRoute(uniqueRoutes())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestFetcher(routing).Fetch(ctx, testFrom, testTo)
	assert.ErrorIs(t, err, context.Canceled)
}

type staticStage struct {
	name       string
	candidates []route.RouteCandidate
	offered    int
}

func (s *staticStage) Name() string { return s.name }

func (s *staticStage) Collect(_ context.Context, _, _ route.Waypoint, accept AcceptFunc) error {
	for _, c := range s.candidates {
		s.offered++
		if !accept(c) {
			return nil
		}
	}
	return nil
}

func TestFetch_SkipsStagesOnceFull(t *testing.T) {
	var all []route.RouteCandidate
	for i := 0; i < route.MaxRoutes; i++ {
		all = append(all, candidateAlong([]route.Coordinate{testFrom.Location, testTo.Location}, i))
	}
	first := &staticStage{name: "first", candidates: all}
	second := &staticStage{name: "second", candidates: all}

	f := NewRouteFetcherWithStages(nil, zap.NewNop(), first, second)
	candidates, err := f.Fetch(context.Background(), testFrom, testTo)
	require.NoError(t, err)
	assert.Len(t, candidates, route.MaxRoutes)
	assert.Equal(t, route.MaxRoutes, first.offered)
	assert.Zero(t, second.offered)
}
