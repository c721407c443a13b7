// Package ingest is the producer-facing client for pushing STREAM-sourced
// feature updates onto the event bus. Platform services (trip lifecycle,
// location pings, payment processors) import this package; it owns the wire
// format and subject layout the feature store's consumer reads from.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// StreamName is the JetStream stream carrying feature updates.
	StreamName = "FEATURES"
	// UpdateSubject is the subject prefix; each update is sharded onto
	// UpdateSubject + "." + feature name.
	UpdateSubject = "features.updates"
)

// Value mirrors the store's tagged value union on the wire. Exactly one
// payload field is meaningful, selected by Kind.
type Value struct {
	Kind  string                 `json:"kind"`
	Null  bool                   `json:"null,omitempty"`
	Int   int64                  `json:"int,omitempty"`
	Float float64                `json:"float,omitempty"`
	Str   string                 `json:"str,omitempty"`
	Bool  bool                   `json:"bool,omitempty"`
	JSON  map[string]interface{} `json:"json,omitempty"`
	Vec   []float64              `json:"vec,omitempty"`
}

// Update is one feature observation for one entity.
type Update struct {
	FeatureName string    `json:"feature_name"`
	EntityId    string    `json:"entity_id"`
	Value       Value     `json:"value"`
	Timestamp   time.Time `json:"timestamp"`
	SourceEvent string    `json:"source_event,omitempty"`
}

// Publisher sends feature updates onto the bus. Ingestion is
// fire-and-forget for the producer: the store applies no backpressure.
type Publisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// NewPublisher connects to NATS for publishing.
func NewPublisher(url string) (*Publisher, error) {
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

	return &Publisher{nc: nc, js: js}, nil
}

// Publish sends one update, subject-sharded by feature name.
func (p *Publisher) Publish(ctx context.Context, update *Update) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal stream update: %w", err)
	}

	if _, err := p.js.Publish(ctx, subjectFor(update.FeatureName), data); err != nil {
		return fmt.Errorf("failed to publish update for %s: %w", update.FeatureName, err)
	}
	return nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

func subjectFor(featureName string) string {
	return UpdateSubject + "." + featureName
}
