package application

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/kafka"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
)

// fakeRouting is a scripted route.RoutingService.
type fakeRouting struct {
	mu        sync.Mutex
	nearestFn func(ctx context.Context, c route.Coordinate) (route.Waypoint, error)
	routeFn   func(ctx context.Context, req route.RouteRequest) ([]route.RouteCandidate, error)
	requests  []route.RouteRequest

	nearestCalls atomic.Int32
}

func (f *fakeRouting) Nearest(ctx context.Context, c route.Coordinate) (route.Waypoint, error) {
	f.nearestCalls.Add(1)
	f.mu.Lock()
	fn := f.nearestFn
	f.mu.Unlock()
	if fn == nil {
		return route.Waypoint{Location: c, Hint: "hint-" + c.String(), Snapped: true}, nil
	}
	return fn(ctx, c)
}

func (f *fakeRouting) Route(ctx context.Context, req route.RouteRequest) ([]route.RouteCandidate, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	fn := f.routeFn
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fn(ctx, req)
}

func (f *fakeRouting) setRoute(fn func(ctx context.Context, req route.RouteRequest) ([]route.RouteCandidate, error)) {
	f.mu.Lock()
	f.routeFn = fn
	f.mu.Unlock()
}

func (f *fakeRouting) Requests() []route.RouteRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]route.RouteRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// candidateAlong returns a candidate through the given waypoints. n makes
// distance and duration, and so the signature, unique.
func candidateAlong(waypoints []route.Coordinate, n int) route.RouteCandidate {
	geom := make([]route.Coordinate, len(waypoints))
	copy(geom, waypoints)
	return route.RouteCandidate{
		Geometry: geom,
		Distance: float64(1000 + 100*n),
		Duration: float64(600 + 10*n),
		Legs: []route.Leg{{Steps: []route.Step{
			{Maneuver: route.Maneuver{Type: "depart", Location: geom[0]}},
			{Maneuver: route.Maneuver{Type: "turn", Modifier: "right", Location: geom[len(geom)/2]}},
			{Maneuver: route.Maneuver{Type: "arrive", Location: geom[len(geom)-1]}},
		}}},
	}
}

// uniqueRoutes answers every request with fresh candidates: two for an
// alternatives request, one otherwise.
func uniqueRoutes() func(context.Context, route.RouteRequest) ([]route.RouteCandidate, error) {
	var n atomic.Int32
	return func(_ context.Context, req route.RouteRequest) ([]route.RouteCandidate, error) {
		count := 1
		if req.Alternatives {
			count = 2
		}
		out := make([]route.RouteCandidate, count)
		for i := range out {
			out[i] = candidateAlong(req.Waypoints, int(n.Add(1)))
		}
		return out, nil
	}
}

type publishedEvent struct {
	topic string
	key   string
	event kafka.CloudEvent
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) PublishEventWithKey(_ context.Context, topic, key string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic: topic, key: key, event: event})
	return nil
}

func (p *fakePublisher) ofType(eventType string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// fakeSummarizer is a scripted summary.Summarizer.
type fakeSummarizer struct {
	calls     atomic.Int32
	documents [][]byte
	fn        func(ctx context.Context) (string, error)
}

func (s *fakeSummarizer) Summarize(ctx context.Context, _ string, document []byte) (string, error) {
	s.calls.Add(1)
	s.documents = append(s.documents, document)
	if s.fn == nil {
		return "Route 1 trades two minutes for fewer turns.\nroute_index = 1", nil
	}
	return s.fn(ctx)
}
