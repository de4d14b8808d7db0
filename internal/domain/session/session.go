package session

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata" // zone lookups work in images without tzdata

	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/apperror"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/summary"
	"github.com/google/uuid"
)

// Session is the aggregate root for one route comparison. It owns the current
// route set, the selection state and the latest summary, and lives until it
// expires.
type Session struct {
	id     uuid.UUID
	status Status

	origin      route.Coordinate
	destination route.Coordinate
	snappedFrom route.Waypoint
	snappedTo   route.Waypoint
	timezone    string

	routes     []route.RouteView
	selection  route.SelectionState
	generation int64
	lastError  string

	summary          *summary.Result
	summarySignature string

	version   int64
	createdAt time.Time
	updatedAt time.Time
	expiresAt time.Time
}

// NewSession creates a session for the given endpoints.
// timezone is an IANA name used to classify the time of day; empty means UTC.
func NewSession(origin, destination route.Coordinate, timezone string, ttl time.Duration) (*Session, error) {
	if err := validateEndpoints(origin, destination); err != nil {
		return nil, err
	}
	if _, err := LoadLocation(timezone); err != nil {
		return nil, apperror.NewValidationError(fmt.Sprintf("invalid timezone: %s", timezone))
	}
	if ttl <= 0 {
		return nil, apperror.NewValidationError("session ttl must be positive")
	}

	now := time.Now().UTC()
	return &Session{
		id:          uuid.New(),
		status:      StatusCreated,
		origin:      origin,
		destination: destination,
		snappedFrom: route.Waypoint{Location: origin},
		snappedTo:   route.Waypoint{Location: destination},
		timezone:    timezone,
		selection:   route.InitialSelection(),
		version:     1,
		createdAt:   now,
		updatedAt:   now,
		expiresAt:   now.Add(ttl),
	}, nil
}

// ReconstructSession rebuilds a Session from persistence data (no validation).
func ReconstructSession(
	id uuid.UUID,
	status Status,
	origin, destination route.Coordinate,
	snappedFrom, snappedTo route.Waypoint,
	timezone string,
	routes []route.RouteView,
	selection route.SelectionState,
	generation int64,
	lastError string,
	result *summary.Result,
	summarySignature string,
	version int64,
	createdAt, updatedAt, expiresAt time.Time,
) *Session {
	return &Session{
		id:               id,
		status:           status,
		origin:           origin,
		destination:      destination,
		snappedFrom:      snappedFrom,
		snappedTo:        snappedTo,
		timezone:         timezone,
		routes:           routes,
		selection:        selection,
		generation:       generation,
		lastError:        lastError,
		summary:          result,
		summarySignature: summarySignature,
		version:          version,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
		expiresAt:        expiresAt,
	}
}

// --- Getters ---

func (s *Session) ID() uuid.UUID { return s.id }
func (s *Session) Status() Status { return s.status }
func (s *Session) Origin() route.Coordinate { return s.origin }
func (s *Session) Destination() route.Coordinate { return s.destination }
func (s *Session) SnappedFrom() route.Waypoint { return s.snappedFrom }
func (s *Session) SnappedTo() route.Waypoint { return s.snappedTo }
func (s *Session) Timezone() string { return s.timezone }
func (s *Session) Routes() []route.RouteView { return s.routes }
func (s *Session) Selection() route.SelectionState { return s.selection }
func (s *Session) Generation() int64 { return s.generation }
func (s *Session) LastError() string { return s.lastError }
func (s *Session) Summary() *summary.Result { return s.summary }
func (s *Session) SummarySignature() string { return s.summarySignature }
func (s *Session) Version() int64 { return s.version }
func (s *Session) CreatedAt() time.Time { return s.createdAt }
func (s *Session) UpdatedAt() time.Time { return s.updatedAt }
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// IsExpired reports whether the session outlived its ttl.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.expiresAt)
}

// IncrementVersion bumps the optimistic-locking version.
func (s *Session) IncrementVersion() {
	s.version++
}

// Touch extends the expiry after activity.
func (s *Session) Touch(ttl time.Duration) {
	now := time.Now().UTC()
	s.updatedAt = now
	if ttl > 0 {
		s.expiresAt = now.Add(ttl)
	}
}

// Location returns the session's time zone.
func (s *Session) Location() *time.Location {
	loc, err := LoadLocation(s.timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// --- Fetch lifecycle ---

// BeginFetch starts a new fetch for the given endpoints and returns its
// generation. Any fetch still running becomes stale.
func (s *Session) BeginFetch(origin, destination route.Coordinate) (int64, error) {
	if err := validateEndpoints(origin, destination); err != nil {
		return 0, err
	}
	if !s.status.CanTransitionTo(StatusFetching) {
		return 0, apperror.NewConflictError(fmt.Sprintf("cannot fetch routes from status %s", s.status))
	}

	s.status = StatusFetching
	s.origin = origin
	s.destination = destination
	s.generation++
	s.lastError = ""
	s.updatedAt = time.Now().UTC()
	return s.generation, nil
}

// ApplyRoutes installs the result of fetch generation gen, replacing the
// previous route set wholesale and resetting the selection to the primary
// route with every route shown. A summary survives only if the new set has
// the same signature.
func (s *Session) ApplyRoutes(gen int64, from, to route.Waypoint, views []route.RouteView) error {
	if gen != s.generation {
		return route.ErrStaleFetch
	}

	s.status = StatusReady
	s.snappedFrom = from
	s.snappedTo = to
	s.routes = views
	s.selection = s.selection.ResetForPrimary(route.PrimaryOf(views))
	if s.summary != nil && s.summary.Signature != summary.RouteSetSignature(views) {
		s.summary = nil
	}
	s.updatedAt = time.Now().UTC()
	return nil
}

// FailFetch records the failure of fetch generation gen. The previous route
// set, if any, is kept.
func (s *Session) FailFetch(gen int64, cause error) error {
	if gen != s.generation {
		return route.ErrStaleFetch
	}

	s.status = StatusFailed
	if cause != nil {
		s.lastError = cause.Error()
	}
	s.updatedAt = time.Now().UTC()
	return nil
}

// --- Selection ---

// SelectRouteOnly focuses the route at index.
func (s *Session) SelectRouteOnly(index int) error {
	if index < 0 || index >= len(s.routes) {
		return fmt.Errorf("%w: %d (have %d routes)", route.ErrRouteIndexOutOfRange, index, len(s.routes))
	}
	s.selection = s.selection.SelectRouteOnly(index)
	s.updatedAt = time.Now().UTC()
	return nil
}

// ToggleShowAll flips between focus mode and showing every route.
func (s *Session) ToggleShowAll() {
	s.selection = s.selection.ToggleShowAll()
	s.updatedAt = time.Now().UTC()
}

// Displays derives the rendering state of every route.
func (s *Session) Displays() []route.RouteDisplay {
	return s.selection.DeriveAll(s.routes)
}

// --- Summary ---

// RouteSetSignature fingerprints the current route set for the summary.
func (s *Session) RouteSetSignature() string {
	return summary.RouteSetSignature(s.routes)
}

// BeginSummary records that a summary is being generated for the current
// route set and returns its signature. Unless force is set, it fails with
// summary.ErrUnchanged when that set was already summarized. It fails with
// summary.ErrNoRoutes when there is nothing to summarize.
func (s *Session) BeginSummary(force bool) (string, error) {
	if len(s.routes) == 0 {
		return "", summary.ErrNoRoutes
	}
	sig := s.RouteSetSignature()
	if !force && !summary.ShouldInvoke(s.summarySignature, sig) {
		return "", summary.ErrUnchanged
	}
	s.summarySignature = sig
	s.updatedAt = time.Now().UTC()
	return sig, nil
}

// ApplySummary stores a summary if it was computed for the current route set.
func (s *Session) ApplySummary(result summary.Result) error {
	if result.Signature != s.RouteSetSignature() {
		return summary.ErrStale
	}
	if result.SuggestedIndex != nil && (*result.SuggestedIndex < 0 || *result.SuggestedIndex >= len(s.routes)) {
		result.SuggestedIndex = nil
	}
	s.summary = &result
	s.updatedAt = time.Now().UTC()
	return nil
}

// ApplySuggestion focuses the route the summary recommended.
func (s *Session) ApplySuggestion() error {
	if s.summary == nil || s.summary.SuggestedIndex == nil {
		return apperror.NewValidationError("no suggested route available")
	}
	return s.SelectRouteOnly(*s.summary.SuggestedIndex)
}

// LoadLocation resolves an IANA zone name; empty means UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

func validateEndpoints(origin, destination route.Coordinate) error {
	if err := origin.Validate(); err != nil {
		return apperror.NewValidationError("origin: " + err.Error())
	}
	if err := destination.Validate(); err != nil {
		return apperror.NewValidationError("destination: " + err.Error())
	}
	if origin == destination {
		return apperror.NewValidationError("origin and destination must differ")
	}
	return nil
}

// IsStale reports whether err means a newer fetch or route set superseded
// the work that produced it.
func IsStale(err error) bool {
	return errors.Is(err, route.ErrStaleFetch) || errors.Is(err, summary.ErrStale)
}
