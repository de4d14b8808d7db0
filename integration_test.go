//go:build integration

package main_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/application"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/apperror"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/contracts"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/session"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/summary"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRouteSetComputed_StoresSummary verifies that a created plan publishes
// RouteSetComputedEvent to routing.events, the consumer picks it up and the
// summary, with its suggested route, lands in PostgreSQL.
func TestRouteSetComputed_StoresSummary(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupRoutingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	plan, err := stack.Planning.CreatePlan(ctx, application.PlanRequest{
		Origin:      route.Coordinate{Lat: 3.139, Lng: 101.6869},
		Destination: route.Coordinate{Lat: 3.15, Lng: 101.71},
	})
	require.NoError(t, err)
	require.Equal(t, "ready", plan.Status)
	require.LessOrEqual(t, len(plan.Routes), route.MaxRoutes)
	require.GreaterOrEqual(t, len(plan.Routes), 2)

	// Assert: summary stored on the session.
	model := waitForSummary(t, infra.DB, plan.ID, 20*time.Second)
	var stored summary.Result
	require.NoError(t, json.Unmarshal(model.Summary, &stored))
	assert.Contains(t, stored.Text, "route_index = 1")
	require.NotNil(t, stored.SuggestedIndex)
	assert.Equal(t, 1, *stored.SuggestedIndex)
	assert.Equal(t, model.SummarySignature, stored.Signature)

	// Assert: SummaryGeneratedEvent on routing.events.
	ce := consumeOneEvent(t, infra.KafkaBrokers, contracts.TopicRoutingEvents,
		contracts.SummaryGenerated, 15*time.Second)
	var generated contracts.SummaryGeneratedEvent
	require.NoError(t, ce.ParseData(&generated))
	assert.Equal(t, plan.ID, generated.SessionID)

	// Selecting the suggestion focuses route 1.
	applied, err := stack.Planning.ApplySuggestion(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, applied.Selection.SelectedIndex)
	assert.False(t, applied.Selection.ShowAllRoutes)
}

// TestRouteSetComputed_DuplicateEventIsSuppressed verifies that replaying a
// RouteSetComputedEvent for an unchanged route set does not call the summary
// service again.
func TestRouteSetComputed_DuplicateEventIsSuppressed(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupRoutingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second)

	plan, err := stack.Planning.CreatePlan(ctx, application.PlanRequest{
		Origin:      route.Coordinate{Lat: 52.52, Lng: 13.405},
		Destination: route.Coordinate{Lat: 52.5, Lng: 13.45},
	})
	require.NoError(t, err)
	waitForSummary(t, infra.DB, plan.ID, 20*time.Second)
	require.Equal(t, int32(1), stack.SummaryCalls.Load())

	publishTestEvent(t, infra.KafkaBrokers, contracts.TopicRoutingEvents,
		"service-routing", contracts.RouteSetComputed, plan.ID.String(),
		contracts.RouteSetComputedEvent{
			SessionID:  plan.ID,
			Generation: plan.Generation,
			RouteCount: len(plan.Routes),
			OccurredAt: time.Now().UTC(),
		})

	// Give the consumer time to process the replay.
	time.Sleep(3 * time.Second)
	assert.Equal(t, int32(1), stack.SummaryCalls.Load())

	result, err := stack.Summary.GetSummary(ctx, plan.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
}

// TestSessionRepository_UpdateConflictAndMissing verifies the PostgreSQL store
// tells a stale version apart from a session that does not exist.
func TestSessionRepository_UpdateConflictAndMissing(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	ctx := context.Background()
	repo := repository.NewGormSessionRepository(infra.DB)

	sess, err := session.NewSession(route.Coordinate{Lat: 1, Lng: 1}, route.Coordinate{Lat: 2, Lng: 2}, "", time.Hour)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, sess))

	stale, err := repo.FindByID(ctx, sess.ID())
	require.NoError(t, err)
	fresh, err := repo.FindByID(ctx, sess.ID())
	require.NoError(t, err)

	fresh.IncrementVersion()
	require.NoError(t, repo.Update(ctx, fresh))

	stale.IncrementVersion()
	var conflict *apperror.ConflictError
	assert.ErrorAs(t, repo.Update(ctx, stale), &conflict)

	missing, err := session.NewSession(route.Coordinate{Lat: 1, Lng: 1}, route.Coordinate{Lat: 2, Lng: 2}, "", time.Hour)
	require.NoError(t, err)
	missing.IncrementVersion()
	var nf *apperror.NotFoundError
	assert.ErrorAs(t, repo.Update(ctx, missing), &nf)
}
