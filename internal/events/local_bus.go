package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// LocalBus delivers published events to a handler in-process when Kafka is
// disabled. Each event is handled on its own goroutine, detached from the
// publishing request.
type LocalBus struct {
	handler kafka.MessageHandler
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewLocalBus creates a bus delivering to handler. timeout bounds each
// delivery; zero means no limit.
func NewLocalBus(handler kafka.MessageHandler, timeout time.Duration, logger *zap.Logger) *LocalBus {
	return &LocalBus{handler: handler, timeout: timeout, logger: logger}
}

// PublishEventWithKey hands the event to the handler asynchronously.
func (b *LocalBus) PublishEventWithKey(_ context.Context, topic, key string, event kafka.CloudEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal cloud event: %w", err)
	}
	msg := kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  event.Time,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("local bus is closed")
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		ctx := context.Background()
		if b.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, b.timeout)
			defer cancel()
		}
		if err := b.handler(ctx, msg); err != nil {
			b.logger.Warn("local event handler failed",
				zap.String("event_type", event.Type),
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}()
	return nil
}

// Close stops accepting events and waits for in-flight deliveries.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
	return nil
}
