package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/pkg/logger"
)

const moduleName = "EVENTS"

// Handler processes one delivered event.
type Handler func(ctx context.Context, event Event) error

// Bus is the typed publish/subscribe surface. Publish must never block on
// subscriber processing.
type Bus interface {
	Publish(event Event)
	Subscribe(ctx context.Context, eventType string, handler Handler) error
	Close() error
}

// WatermillBus carries events over an in-process watermill gochannel pubsub,
// one topic per event type.
type WatermillBus struct {
	pubSub *gochannel.GoChannel
	log    logger.ILogger
}

// NewWatermillBus builds a bus with buffered topics so publishers are
// decoupled from slow subscribers.
func NewWatermillBus(log logger.ILogger) *WatermillBus {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermillAdapter{log: log},
	)
	return &WatermillBus{pubSub: pubSub, log: log}
}

type envelope struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Publish serializes the event and hands it to watermill in a goroutine, so
// the write path never waits on delivery. A failed publish is logged and
// dropped; notifications are advisory.
func (b *WatermillBus) Publish(event Event) {
	data, err := json.Marshal(envelope{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		b.log.Warn(moduleName, "event marshal failed", map[string]interface{}{
			"event_type": event.EventType(), "error": err.Error(),
		})
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	go func() {
		if err := b.pubSub.Publish(event.EventType(), msg); err != nil {
			b.log.Warn(moduleName, "event publish failed", map[string]interface{}{
				"event_type": event.EventType(), "error": err.Error(),
			})
		}
	}()
}

// Subscribe runs handler for every event of the given type until ctx is done.
// Handler errors are logged; delivery is not retried.
func (b *WatermillBus) Subscribe(ctx context.Context, eventType string, handler Handler) error {
	messages, err := b.pubSub.Subscribe(ctx, eventType)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			var env envelope
			if err := json.Unmarshal(msg.Payload, &env); err != nil {
				b.log.Error(moduleName, "unreadable event payload", map[string]interface{}{
					"event_type": eventType, "error": err.Error(),
				})
				msg.Ack()
				continue
			}
			event := GenericEvent{Type: env.Type, Data: env.Data, OccurredAt: env.OccurredAt}
			if err := handler(ctx, event); err != nil {
				b.log.Error(moduleName, "event handler failed", map[string]interface{}{
					"event_type": eventType, "error": err.Error(),
				})
			}
			msg.Ack()
		}
	}()

	return nil
}

// Close shuts the underlying pubsub down, closing subscriber channels.
func (b *WatermillBus) Close() error {
	return b.pubSub.Close()
}

// watermillAdapter bridges watermill's internal logging onto ILogger.
type watermillAdapter struct {
	log    logger.ILogger
	fields watermill.LogFields
}

func (a watermillAdapter) details(fields watermill.LogFields) map[string]interface{} {
	return map[string]interface{}(a.fields.Add(fields))
}

func (a watermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log.Error(moduleName, msg, a.details(fields.Add(watermill.LogFields{"error": err.Error()})))
}

func (a watermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Info(moduleName, msg, a.details(fields))
}

func (a watermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.Debug(moduleName, msg, a.details(fields))
}

func (a watermillAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.Debug(moduleName, msg, a.details(fields))
}

func (a watermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return watermillAdapter{log: a.log, fields: a.fields.Add(fields)}
}

// GenericEvent is the deserialized form delivered to subscribers.
type GenericEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e GenericEvent) EventType() string               { return e.Type }
func (e GenericEvent) Payload() map[string]interface{} { return e.Data }
func (e GenericEvent) Timestamp() time.Time            { return e.OccurredAt }
