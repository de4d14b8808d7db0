package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/apperror"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/kafka"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/contracts"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/session"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/summary"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	eventSource = "service-routing"

	// maxUpdateAttempts bounds retries after losing an optimistic-locking race.
	maxUpdateAttempts = 3
)

// EventPublisher publishes CloudEvents. *kafka.Producer implements it.
type EventPublisher interface {
	PublishEventWithKey(ctx context.Context, topic, key string, event kafka.CloudEvent) error
}

// PlanRequest holds the endpoints of a route comparison.
type PlanRequest struct {
	Origin      route.Coordinate `json:"origin"`
	Destination route.Coordinate `json:"destination"`
	Timezone    string           `json:"timezone"`
}

// PlanDTO is the response representation of a planning session.
type PlanDTO struct {
	ID                 uuid.UUID            `json:"id"`
	Status             string               `json:"status"`
	Generation         int64                `json:"generation"`
	Origin             route.Coordinate     `json:"origin"`
	Destination        route.Coordinate     `json:"destination"`
	SnappedOrigin      route.Waypoint       `json:"snapped_origin"`
	SnappedDestination route.Waypoint       `json:"snapped_destination"`
	Timezone           string               `json:"timezone,omitempty"`
	Routes             []route.RouteView    `json:"routes"`
	Selection          route.SelectionState `json:"selection"`
	Displays           []route.RouteDisplay `json:"displays"`
	Summary            *summary.Result      `json:"summary,omitempty"`
	LastError          string               `json:"last_error,omitempty"`
	Version            int64                `json:"version"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
	ExpiresAt          time.Time            `json:"expires_at"`
}

// MarkersDTO is the checkpoint list of one route.
type MarkersDTO struct {
	RouteIndex int                 `json:"route_index"`
	Spacing    float64             `json:"spacing"`
	Markers    []route.RouteMarker `json:"markers"`
}

// SessionStatsDTO holds session statistics for the admin endpoints.
type SessionStatsDTO struct {
	TotalSessions int64            `json:"total_sessions"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// PlanningConfig tunes the planning service.
type PlanningConfig struct {
	SessionTTL    time.Duration
	MarkerSpacing float64
	MaxMarkers    int
}

// PlanningService orchestrates route acquisition and selection for sessions.
type PlanningService struct {
	repo      session.Repository
	snapper   *GeocodeSnapper
	fetcher   *RouteFetcher
	publisher EventPublisher
	cfg       PlanningConfig
	logger    *zap.Logger
}

// NewPlanningService creates a new PlanningService.
func NewPlanningService(
	repo session.Repository,
	snapper *GeocodeSnapper,
	fetcher *RouteFetcher,
	publisher EventPublisher,
	cfg PlanningConfig,
	logger *zap.Logger,
) *PlanningService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if cfg.MarkerSpacing <= 0 {
		cfg.MarkerSpacing = route.DefaultMarkerSpacing
	}
	if cfg.MaxMarkers <= 0 {
		cfg.MaxMarkers = route.DefaultMaxMarkers
	}
	return &PlanningService{
		repo:      repo,
		snapper:   snapper,
		fetcher:   fetcher,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// CreatePlan opens a session and fetches its first route set.
func (s *PlanningService) CreatePlan(ctx context.Context, req PlanRequest) (*PlanDTO, error) {
	sess, err := session.NewSession(req.Origin, req.Destination, req.Timezone, s.cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("planning session created",
		zap.String("session_id", sess.ID().String()),
		zap.String("origin", req.Origin.String()),
		zap.String("destination", req.Destination.String()),
	)

	return s.fetch(ctx, sess.ID(), req.Origin, req.Destination)
}

// Refetch replaces a session's route set with routes between new endpoints.
// A fetch still running for the session is superseded.
func (s *PlanningService) Refetch(ctx context.Context, id uuid.UUID, req PlanRequest) (*PlanDTO, error) {
	return s.fetch(ctx, id, req.Origin, req.Destination)
}

// GetPlan returns a session snapshot.
func (s *PlanningService) GetPlan(ctx context.Context, id uuid.UUID) (*PlanDTO, error) {
	sess, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toPlanDTO(sess)
	return &result, nil
}

// SelectRoute focuses a single route.
func (s *PlanningService) SelectRoute(ctx context.Context, id uuid.UUID, index int) (*PlanDTO, error) {
	sess, err := s.mutate(ctx, id, func(sess *session.Session) error {
		if err := sess.SelectRouteOnly(index); err != nil {
			return apperror.NewValidationError(err.Error())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result := toPlanDTO(sess)
	return &result, nil
}

// ToggleShowAll flips between focus mode and showing every route.
func (s *PlanningService) ToggleShowAll(ctx context.Context, id uuid.UUID) (*PlanDTO, error) {
	sess, err := s.mutate(ctx, id, func(sess *session.Session) error {
		sess.ToggleShowAll()
		return nil
	})
	if err != nil {
		return nil, err
	}
	result := toPlanDTO(sess)
	return &result, nil
}

// ApplySuggestion focuses the route recommended by the latest summary.
func (s *PlanningService) ApplySuggestion(ctx context.Context, id uuid.UUID) (*PlanDTO, error) {
	sess, err := s.mutate(ctx, id, func(sess *session.Session) error {
		return sess.ApplySuggestion()
	})
	if err != nil {
		return nil, err
	}
	result := toPlanDTO(sess)
	return &result, nil
}

// Markers samples checkpoints along one route. Zero spacing or maxMarkers
// fall back to the configured defaults.
func (s *PlanningService) Markers(ctx context.Context, id uuid.UUID, index int, spacing float64, maxMarkers int) (*MarkersDTO, error) {
	sess, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	routes := sess.Routes()
	if index < 0 || index >= len(routes) {
		return nil, apperror.NewValidationError(fmt.Sprintf("%v: %d", route.ErrRouteIndexOutOfRange, index))
	}
	if math.IsNaN(spacing) || math.IsInf(spacing, 0) {
		return nil, apperror.NewValidationError("marker spacing must be finite")
	}
	if spacing <= 0 {
		spacing = s.cfg.MarkerSpacing
	}
	if maxMarkers <= 0 || maxMarkers > s.cfg.MaxMarkers {
		maxMarkers = s.cfg.MaxMarkers
	}

	v := routes[index]
	markers := route.WithRemainingTime(route.SampleMarkers(v.Coordinates, spacing, maxMarkers), v.Duration)
	if markers == nil {
		markers = []route.RouteMarker{}
	}
	return &MarkersDTO{RouteIndex: index, Spacing: spacing, Markers: markers}, nil
}

// Snap snaps a single coordinate.
func (s *PlanningService) Snap(ctx context.Context, c route.Coordinate) (route.Waypoint, error) {
	if err := c.Validate(); err != nil {
		return route.Waypoint{}, apperror.NewValidationError(err.Error())
	}
	return s.snapper.Snap(ctx, c), nil
}

// --- Admin methods ---

// PurgeExpired deletes sessions past their expiry.
func (s *PlanningService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("expired sessions purged", zap.Int64("count", n))
	}
	return n, nil
}

// GetSessionStats returns live session counts (admin).
func (s *PlanningService) GetSessionStats(ctx context.Context) (*SessionStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to get session stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}
	return &SessionStatsDTO{TotalSessions: total, ByStatus: counts}, nil
}

// RunSweeper purges expired sessions every interval until ctx is cancelled.
func (s *PlanningService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PurgeExpired(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("session sweep failed", zap.Error(err))
			}
		}
	}
}

// --- Fetch ---

func (s *PlanningService) fetch(ctx context.Context, id uuid.UUID, origin, destination route.Coordinate) (*PlanDTO, error) {
	var gen int64
	if _, err := s.mutate(ctx, id, func(sess *session.Session) error {
		var err error
		gen, err = sess.BeginFetch(origin, destination)
		return err
	}); err != nil {
		return nil, err
	}

	log := s.logger.With(zap.String("session_id", id.String()), zap.Int64("generation", gen))

	from, to := s.snapper.SnapPair(ctx, origin, destination)
	candidates, fetchErr := s.fetcher.Fetch(ctx, from, to)

	if fetchErr != nil {
		log.Warn("route fetch failed", zap.Error(fetchErr))
		// The caller may be gone; the failure is still recorded.
		ctx = context.WithoutCancel(ctx)
		_, err := s.mutate(ctx, id, func(sess *session.Session) error {
			return sess.FailFetch(gen, fetchErr)
		})
		if err != nil {
			if session.IsStale(err) {
				return nil, err
			}
			log.Error("failed to record fetch failure", zap.Error(err))
		}
		if errors.Is(fetchErr, route.ErrNoRouteFound) {
			s.publishEvent(ctx, contracts.RouteFetchFailed, id.String(), contracts.RouteFetchFailedEvent{
				SessionID:  id,
				Generation: gen,
				Reason:     fetchErr.Error(),
				OccurredAt: time.Now().UTC(),
			})
		}
		return nil, fetchErr
	}

	views := route.BuildViews(candidates)
	sess, err := s.mutate(ctx, id, func(sess *session.Session) error {
		return sess.ApplyRoutes(gen, from, to, views)
	})
	if err != nil {
		if session.IsStale(err) {
			log.Info("discarding superseded route set", zap.Int("routes", len(views)))
		}
		return nil, err
	}

	log.Info("route set applied",
		zap.Int("routes", len(views)),
		zap.Int("primary", route.PrimaryOf(views)),
	)

	s.publishEvent(ctx, contracts.RouteSetComputed, id.String(), contracts.RouteSetComputedEvent{
		SessionID:  id,
		Generation: gen,
		RouteCount: len(views),
		Signature:  sess.RouteSetSignature(),
		OccurredAt: time.Now().UTC(),
	})

	result := toPlanDTO(sess)
	return &result, nil
}

// mutate loads a session, applies fn and persists it, reloading and retrying
// when a concurrent writer won the optimistic lock.
func (s *PlanningService) mutate(ctx context.Context, id uuid.UUID, fn func(*session.Session) error) (*session.Session, error) {
	return mutateSession(ctx, s.repo, s.cfg.SessionTTL, id, fn)
}

func mutateSession(ctx context.Context, repo session.Repository, ttl time.Duration, id uuid.UUID, fn func(*session.Session) error) (*session.Session, error) {
	var lastErr error
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		sess, err := repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(sess); err != nil {
			return nil, err
		}
		sess.Touch(ttl)
		sess.IncrementVersion()

		err = repo.Update(ctx, sess)
		if err == nil {
			return sess, nil
		}
		var conflict *apperror.ConflictError
		if !errors.As(err, &conflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *PlanningService) publishEvent(ctx context.Context, eventType, key string, data interface{}) {
	publishEvent(ctx, s.publisher, s.logger, eventType, key, data)
}

func publishEvent(ctx context.Context, publisher EventPublisher, logger *zap.Logger, eventType, key string, data interface{}) {
	if publisher == nil {
		return
	}
	cloudEvent, err := kafka.NewCloudEvent(eventSource, eventType, data)
	if err != nil {
		logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := publisher.PublishEventWithKey(ctx, contracts.TopicRoutingEvents, key, cloudEvent); err != nil {
		logger.Error("failed to publish event",
			zap.String("topic", contracts.TopicRoutingEvents),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

func toPlanDTO(sess *session.Session) PlanDTO {
	routes := sess.Routes()
	if routes == nil {
		routes = []route.RouteView{}
	}
	return PlanDTO{
		ID:                 sess.ID(),
		Status:             sess.Status().String(),
		Generation:         sess.Generation(),
		Origin:             sess.Origin(),
		Destination:        sess.Destination(),
		SnappedOrigin:      sess.SnappedFrom(),
		SnappedDestination: sess.SnappedTo(),
		Timezone:           sess.Timezone(),
		Routes:             routes,
		Selection:          sess.Selection(),
		Displays:           sess.Displays(),
		Summary:            sess.Summary(),
		LastError:          sess.LastError(),
		Version:            sess.Version(),
		CreatedAt:          sess.CreatedAt(),
		UpdatedAt:          sess.UpdatedAt(),
		ExpiresAt:          sess.ExpiresAt(),
	}
}
