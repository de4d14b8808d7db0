package osrm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/metrics"
	"go.uber.org/zap"
)

const serviceName = "osrm"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4 << 10

// Config configures the OSRM HTTP client.
type Config struct {
	BaseURL string
	Profile string
	Timeout time.Duration
}

// Client talks to an OSRM-compatible HTTP API.
type Client struct {
	baseURL string
	profile string
	http    *http.Client
	metrics *metrics.Recorder
	logger  *zap.Logger
}

// NewClient creates an OSRM client. Every request is bounded by cfg.Timeout.
func NewClient(cfg Config, recorder *metrics.Recorder, logger *zap.Logger) *Client {
	if cfg.Profile == "" {
		cfg.Profile = "driving"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		profile: cfg.Profile,
		http:    &http.Client{Timeout: cfg.Timeout},
		metrics: recorder,
		logger:  logger,
	}
}

// --- Wire types ---

type lngLat [2]float64

func (p lngLat) coordinate() route.Coordinate {
	return route.Coordinate{Lat: p[1], Lng: p[0]}
}

type nearestResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Waypoints []struct {
		Location lngLat  `json:"location"`
		Hint     string  `json:"hint"`
		Name     string  `json:"name"`
		Distance float64 `json:"distance"`
	} `json:"waypoints"`
}

type routeResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []wireRoute `json:"routes"`
}

type wireRoute struct {
	Geometry struct {
		Type        string   `json:"type"`
		Coordinates []lngLat `json:"coordinates"`
	} `json:"geometry"`
	Distance float64   `json:"distance"`
	Duration float64   `json:"duration"`
	Legs     []wireLeg `json:"legs"`
}

type wireLeg struct {
	Distance float64    `json:"distance"`
	Duration float64    `json:"duration"`
	Steps    []wireStep `json:"steps"`
}

type wireStep struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Maneuver struct {
		Type     string `json:"type"`
		Modifier string `json:"modifier"`
		Location lngLat `json:"location"`
	} `json:"maneuver"`
}

// Nearest snaps c onto the road network.
func (c *Client) Nearest(ctx context.Context, coord route.Coordinate) (route.Waypoint, error) {
	endpoint := fmt.Sprintf("%s/nearest/v1/%s/%s?number=1",
		c.baseURL, url.PathEscape(c.profile), formatCoordinate(coord))

	var resp nearestResponse
	if err := c.get(ctx, "nearest", endpoint, &resp); err != nil {
		return route.Waypoint{}, err
	}
	if resp.Code != "Ok" || len(resp.Waypoints) == 0 {
		return route.Waypoint{}, fmt.Errorf("nearest returned code %q with %d waypoints", resp.Code, len(resp.Waypoints))
	}

	wp := resp.Waypoints[0]
	loc := wp.Location.coordinate()
	if err := loc.Validate(); err != nil {
		return route.Waypoint{}, fmt.Errorf("nearest returned invalid location: %w", err)
	}
	return route.Waypoint{Location: loc, Hint: wp.Hint, Snapped: true}, nil
}

// Route computes routes through req.Waypoints with full step detail and
// GeoJSON geometry.
func (c *Client) Route(ctx context.Context, req route.RouteRequest) ([]route.RouteCandidate, error) {
	if len(req.Waypoints) < 2 {
		return nil, fmt.Errorf("route needs at least two waypoints, got %d", len(req.Waypoints))
	}

	coords := make([]string, len(req.Waypoints))
	for i, w := range req.Waypoints {
		coords[i] = formatCoordinate(w)
	}

	q := url.Values{}
	q.Set("alternatives", strconv.FormatBool(req.Alternatives))
	q.Set("steps", "true")
	q.Set("annotations", "distance,duration")
	q.Set("geometries", "geojson")
	q.Set("overview", "full")
	if hints := joinHints(req.Hints, len(req.Waypoints)); hints != "" {
		q.Set("hints", hints)
	}

	endpoint := fmt.Sprintf("%s/route/v1/%s/%s?%s",
		c.baseURL, url.PathEscape(c.profile), strings.Join(coords, ";"), q.Encode())

	var resp routeResponse
	if err := c.get(ctx, "route", endpoint, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "Ok" && len(resp.Routes) == 0 {
		if resp.Message != "" {
			return nil, fmt.Errorf("%w: %s: %s", route.ErrNoRoute, resp.Code, resp.Message)
		}
		return nil, fmt.Errorf("%w: %s", route.ErrNoRoute, resp.Code)
	}
	if len(resp.Routes) == 0 {
		return nil, route.ErrNoRoute
	}

	candidates := make([]route.RouteCandidate, len(resp.Routes))
	for i, r := range resp.Routes {
		candidates[i] = toCandidate(r)
	}
	return candidates, nil
}

func (c *Client) get(ctx context.Context, operation, endpoint string, out interface{}) error {
	start := time.Now()
	outcome := metrics.OutcomeError
	defer func() {
		c.metrics.ObserveUpstream(serviceName, operation, outcome, time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			outcome = metrics.OutcomeTimeout
		}
		return fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		outcome = metrics.OutcomeRateLimited
		return fmt.Errorf("%w: wait a few seconds before requesting routes again", route.ErrRateLimited)
	case resp.StatusCode == http.StatusBadRequest:
		msg := errorMessage(resp.Body)
		return fmt.Errorf("%w: %s; try moving the points closer to a road", route.ErrBadRequest, msg)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &route.ServiceError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", operation, err)
	}

	outcome = metrics.OutcomeOK
	c.logger.Debug("osrm request completed",
		zap.String("operation", operation),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func toCandidate(r wireRoute) route.RouteCandidate {
	geom := make([]route.Coordinate, len(r.Geometry.Coordinates))
	for i, p := range r.Geometry.Coordinates {
		geom[i] = p.coordinate()
	}

	legs := make([]route.Leg, len(r.Legs))
	for i, l := range r.Legs {
		steps := make([]route.Step, len(l.Steps))
		for j, s := range l.Steps {
			steps[j] = route.Step{
				Maneuver: route.Maneuver{
					Type:     s.Maneuver.Type,
					Modifier: s.Maneuver.Modifier,
					Location: s.Maneuver.Location.coordinate(),
				},
				Name:     s.Name,
				Distance: s.Distance,
				Duration: s.Duration,
			}
		}
		legs[i] = route.Leg{Steps: steps, Distance: l.Distance, Duration: l.Duration}
	}

	return route.RouteCandidate{
		Geometry: geom,
		Distance: r.Distance,
		Duration: r.Duration,
		Legs:     legs,
	}
}

// formatCoordinate renders lng,lat as OSRM expects.
func formatCoordinate(c route.Coordinate) string {
	return strconv.FormatFloat(c.Lng, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lat, 'f', 6, 64)
}

// joinHints returns the hints parameter, or "" when no hint is set or the
// count does not match the waypoints.
func joinHints(hints []string, waypoints int) string {
	if len(hints) != waypoints {
		return ""
	}
	for _, h := range hints {
		if h != "" {
			return strings.Join(hints, ";")
		}
	}
	return ""
}

func errorMessage(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	var parsed struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && (parsed.Message != "" || parsed.Code != "") {
		if parsed.Message == "" {
			return parsed.Code
		}
		return parsed.Message
	}
	return strings.TrimSpace(string(raw))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
