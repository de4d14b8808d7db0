package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/application"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubRouting answers nearest with the input and every route request with
// fresh, unique candidates.
type stubRouting struct {
	mu  sync.Mutex
	err error
	n   int
}

func (s *stubRouting) Nearest(_ context.Context, c route.Coordinate) (route.Waypoint, error) {
	return route.Waypoint{Location: c, Hint: "h", Snapped: true}, nil
}

func (s *stubRouting) Route(_ context.Context, req route.RouteRequest) ([]route.RouteCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.n++
	geom := append([]route.Coordinate(nil), req.Waypoints...)
	return []route.RouteCandidate{{
		Geometry: geom,
		Distance: float64(3000 + 100*s.n),
		Duration: float64(400 + 10*s.n),
		Legs: []route.Leg{{Steps: []route.Step{
			{Maneuver: route.Maneuver{Type: "depart", Location: geom[0]}},
			{Maneuver: route.Maneuver{Type: "turn", Modifier: "left", Location: geom[len(geom)/2]}},
			{Maneuver: route.Maneuver{Type: "arrive", Location: geom[len(geom)-1]}},
		}}},
	}}, nil
}

func (s *stubRouting) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

type stubSummarizer struct {
	calls atomic.Int32
	err   error
}

func (s *stubSummarizer) Summarize(context.Context, string, []byte) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return "Route 3 has the fewest turns.\nroute_index = 2", nil
}

type testServer struct {
	router     *gin.Engine
	routing    *stubRouting
	summarizer *stubSummarizer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()
	routing := &stubRouting{}
	summarizer := &stubSummarizer{}
	repo := repository.NewMemorySessionRepository()

	planning := application.NewPlanningService(
		repo,
		application.NewGeocodeSnapper(routing, time.Second, log),
		application.NewRouteFetcher(routing, time.Second, nil, log),
		nil,
		application.PlanningConfig{SessionTTL: time.Hour, MarkerSpacing: 200, MaxMarkers: 100},
		log,
	)
	summaries := application.NewSummaryService(repo, summarizer, nil, application.SummaryConfig{SessionTTL: time.Hour}, nil, log)

	router := gin.New()
	NewPlanHandler(planning).RegisterRoutes(&router.RouterGroup)
	NewSummaryHandler(summaries).RegisterRoutes(&router.RouterGroup)
	NewAdminSessionHandler(planning).RegisterRoutes(&router.RouterGroup)

	return &testServer{router: router, routing: routing, summarizer: summarizer}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") != geoJSONContentType {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func (s *testServer) createPlan(t *testing.T) application.PlanDTO {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/plans", application.PlanRequest{
		Origin:      route.Coordinate{Lat: 3.139, Lng: 101.6869},
		Destination: route.Coordinate{Lat: 3.15, Lng: 101.71},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var plan application.PlanDTO
	require.NoError(t, json.Unmarshal(env.Data, &plan))
	return plan
}
