package events

import (
	"context"
	"errors"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/apperror"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/kafka"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/contracts"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/session"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/summary"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// SessionSummarizer generates the summary of a session's current route set.
// *application.SummaryService implements it.
type SessionSummarizer interface {
	SummarizeSession(ctx context.Context, id uuid.UUID, force bool) (*summary.Result, error)
}

// RouteSetEventConsumer listens to routing events and requests a summary
// whenever a new route set is computed.
type RouteSetEventConsumer struct {
	consumer   *kafka.Consumer
	summarizer SessionSummarizer
	logger     *zap.Logger
}

// NewRouteSetEventConsumer creates a consumer reading the routing topic.
func NewRouteSetEventConsumer(
	brokers []string,
	groupID string,
	summarizer SessionSummarizer,
	logger *zap.Logger,
) *RouteSetEventConsumer {
	c := NewRouteSetEventHandler(summarizer, logger)
	c.consumer = kafka.NewConsumer(brokers, groupID, contracts.TopicRoutingEvents, logger)
	return c
}

// NewRouteSetEventHandler creates the message handler without a Kafka reader,
// for in-process delivery.
func NewRouteSetEventHandler(summarizer SessionSummarizer, logger *zap.Logger) *RouteSetEventConsumer {
	return &RouteSetEventConsumer{summarizer: summarizer, logger: logger}
}

// Start begins consuming routing events. This blocks until the context is cancelled.
func (c *RouteSetEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.HandleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *RouteSetEventConsumer) Close() error {
	if c.consumer == nil {
		return nil
	}
	return c.consumer.Close()
}

// HandleMessage dispatches one routing event. Malformed messages and events
// that no longer apply are acknowledged; only transient failures are retried.
func (c *RouteSetEventConsumer) HandleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from routing topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil
	}

	switch cloudEvent.Type {
	case contracts.RouteSetComputed:
		return c.handleRouteSetComputed(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled routing event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *RouteSetEventConsumer) handleRouteSetComputed(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt contracts.RouteSetComputedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse RouteSetComputedEvent data", zap.Error(err))
		return nil
	}

	log := c.logger.With(
		zap.String("session_id", evt.SessionID.String()),
		zap.Int64("generation", evt.Generation),
	)
	log.Info("processing route set computed event", zap.Int("routes", evt.RouteCount))

	_, err := c.summarizer.SummarizeSession(ctx, evt.SessionID, false)
	switch {
	case err == nil:
		log.Info("route set summarized")
		return nil
	case errors.Is(err, summary.ErrUnchanged), errors.Is(err, summary.ErrNoRoutes), session.IsStale(err):
		log.Debug("route set event no longer needs a summary", zap.Error(err))
		return nil
	case isNotFound(err):
		log.Debug("session is gone", zap.Error(err))
		return nil
	default:
		log.Error("failed to summarize route set", zap.Error(err))
		return err
	}
}

func isNotFound(err error) bool {
	var nf *apperror.NotFoundError
	return errors.As(err, &nf)
}
