package contracts

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicRoutingEvents = "routing.events"
)

// Event types on TopicRoutingEvents.
const (
	RouteSetComputed = "routing.route_set.computed"
	RouteFetchFailed = "routing.route_fetch.failed"
	SummaryGenerated = "routing.summary.generated"
)

// RouteSetComputedEvent is published whenever a fetch installs a new route set.
type RouteSetComputedEvent struct {
	SessionID  uuid.UUID `json:"session_id"`
	Generation int64     `json:"generation"`
	RouteCount int       `json:"route_count"`
	Signature  string    `json:"signature"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RouteFetchFailedEvent is published when every acquisition stage came back empty.
type RouteFetchFailedEvent struct {
	SessionID  uuid.UUID `json:"session_id"`
	Generation int64     `json:"generation"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SummaryGeneratedEvent is published when a summary is stored on a session.
type SummaryGeneratedEvent struct {
	SessionID      uuid.UUID `json:"session_id"`
	Signature      string    `json:"signature"`
	SuggestedIndex *int      `json:"suggested_index,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
