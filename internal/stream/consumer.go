// Package stream connects the feature store to the external event bus.
// Producers publish {featureName, entityId, value, timestamp, sourceEvent}
// records (trip completions, location pings, payment events); the consumer
// feeds them into the computation engine. Ingestion is fire-and-forget for
// the producer: the store applies no backpressure.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/compute"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/dto"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/entity"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/pkg/logger"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/pkg/ingest"
)

const (
	moduleName = "STREAM"

	durableName = "feature-store-ingest"
)

// Consumer pulls feature updates off NATS JetStream and applies them through
// the computation engine. Delivery is at-least-once; the engine's writes are
// last-value-wins, so redelivery is harmless.
type Consumer struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	engine compute.IEngine
	log    logger.ILogger
}

// NewConsumer connects to NATS and ensures the FEATURES stream exists.
func NewConsumer(url string, engine compute.IEngine, log logger.ILogger) (*Consumer, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      ingest.StreamName,
		Subjects:  []string{ingest.UpdateSubject + ".>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
	}); err != nil {
		// NATS may not be ready, or the stream may already exist with other
		// settings; the consumer can still attach later.
		log.Warn(moduleName, "could not ensure stream", map[string]interface{}{
			"stream": ingest.StreamName, "error": err.Error(),
		})
	}

	return &Consumer{nc: nc, js: js, engine: engine, log: log}, nil
}

// Run attaches a durable consumer and processes updates until the context is
// cancelled. Malformed and rejected records are acked away; only transient
// write failures are redelivered.
func (c *Consumer) Run(ctx context.Context) error {
	consumer, err := c.js.CreateOrUpdateConsumer(ctx, ingest.StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: ingest.UpdateSubject + ".>",
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		c.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	go func() {
		<-ctx.Done()
		cc.Stop()
	}()

	c.log.Info(moduleName, "ingestion consumer running", map[string]interface{}{
		"stream": ingest.StreamName, "durable": durableName,
	})
	return nil
}

func (c *Consumer) handle(ctx context.Context, msg jetstream.Msg) {
	var update dto.StreamUpdate
	if err := json.Unmarshal(msg.Data(), &update); err != nil {
		c.log.Error(moduleName, "unreadable stream update", map[string]interface{}{
			"subject": msg.Subject(), "error": err.Error(),
		})
		_ = msg.Ack() // poison message, do not redeliver
		return
	}

	if err := c.engine.ProcessStreamUpdate(ctx, &update); err != nil {
		if entity.IsValidation(err) {
			c.log.Warn(moduleName, "stream update rejected by validation", map[string]interface{}{
				"feature": update.FeatureName, "entity_id": update.EntityId, "error": err.Error(),
			})
			_ = msg.Ack()
			return
		}
		c.log.Error(moduleName, "stream update write failed, redelivering", map[string]interface{}{
			"feature": update.FeatureName, "entity_id": update.EntityId, "error": err.Error(),
		})
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()
}

// Close closes the NATS connection.
func (c *Consumer) Close() {
	if c.nc != nil {
		c.nc.Close()
	}
}
