package application

import (
	"context"
	"strconv"
	"time"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// GeocodeSnapper projects coordinates onto the road network. It is best
// effort: any failure yields the original coordinate without a hint.
type GeocodeSnapper struct {
	routing route.RoutingService
	timeout time.Duration
	group   singleflight.Group
	logger  *zap.Logger
}

// NewGeocodeSnapper creates a snapper whose lookups are bounded by timeout.
func NewGeocodeSnapper(routing route.RoutingService, timeout time.Duration, logger *zap.Logger) *GeocodeSnapper {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &GeocodeSnapper{routing: routing, timeout: timeout, logger: logger}
}

// Snap returns the nearest routable point to c. Identical lookups in flight
// at the same time share one request.
func (s *GeocodeSnapper) Snap(ctx context.Context, c route.Coordinate) route.Waypoint {
	v, _, _ := s.group.Do(snapKey(c), func() (interface{}, error) {
		reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		wp, err := s.routing.Nearest(reqCtx, c)
		if err != nil {
			s.logger.Debug("snap failed, using raw coordinate",
				zap.String("coordinate", c.String()),
				zap.Error(err),
			)
			return route.Waypoint{Location: c}, nil
		}
		return wp, nil
	})
	return v.(route.Waypoint)
}

// snapKey identifies a lookup at full precision; Coordinate.String rounds.
func snapKey(c route.Coordinate) string {
	return strconv.FormatFloat(c.Lat, 'g', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'g', -1, 64)
}

// SnapPair snaps both endpoints concurrently and waits for both.
func (s *GeocodeSnapper) SnapPair(ctx context.Context, a, b route.Coordinate) (route.Waypoint, route.Waypoint) {
	var from, to route.Waypoint
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		from = s.Snap(gctx, a)
		return nil
	})
	g.Go(func() error {
		to = s.Snap(gctx, b)
		return nil
	})
	_ = g.Wait()
	return from, to
}
