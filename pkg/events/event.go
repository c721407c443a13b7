// Package events defines the typed notifications the feature store emits on
// its control and write paths, and the bus they travel on. Publishing never
// blocks the caller; subscribers run asynchronously off the write path.
package events

import "time"

// Event is the contract for all feature-store notifications.
type Event interface {
	// EventType returns the topic code for this event (e.g. "feature.created").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

const (
	TypeFeatureCreated    = "feature.created"
	TypeFeatureDeprecated = "feature.deprecated"
	TypeGroupCreated      = "feature.group.created"
	TypeValueWritten      = "feature.value.written"
)

// FeatureCreated fires when a definition is registered.
type FeatureCreated struct {
	Name       string
	EntityType string
	Source     string
	OccurredAt time.Time
}

func (e FeatureCreated) EventType() string { return TypeFeatureCreated }
func (e FeatureCreated) Payload() map[string]interface{} {
	return map[string]interface{}{
		"name":        e.Name,
		"entity_type": e.EntityType,
		"source":      e.Source,
	}
}
func (e FeatureCreated) Timestamp() time.Time { return e.OccurredAt }

// FeatureDeprecated fires when a definition is retired from the control plane.
type FeatureDeprecated struct {
	Name       string
	OccurredAt time.Time
}

func (e FeatureDeprecated) EventType() string { return TypeFeatureDeprecated }
func (e FeatureDeprecated) Payload() map[string]interface{} {
	return map[string]interface{}{"name": e.Name}
}
func (e FeatureDeprecated) Timestamp() time.Time { return e.OccurredAt }

// GroupCreated fires when a feature group is registered.
type GroupCreated struct {
	Name       string
	EntityType string
	Members    []string
	OccurredAt time.Time
}

func (e GroupCreated) EventType() string { return TypeGroupCreated }
func (e GroupCreated) Payload() map[string]interface{} {
	return map[string]interface{}{
		"name":        e.Name,
		"entity_type": e.EntityType,
		"members":     e.Members,
	}
}
func (e GroupCreated) Timestamp() time.Time { return e.OccurredAt }

// ValueWritten fires after a validated feature value is persisted.
type ValueWritten struct {
	FeatureName string
	EntityType  string
	EntityId    string
	SourceEvent string
	OccurredAt  time.Time
}

func (e ValueWritten) EventType() string { return TypeValueWritten }
func (e ValueWritten) Payload() map[string]interface{} {
	return map[string]interface{}{
		"feature_name": e.FeatureName,
		"entity_type":  e.EntityType,
		"entity_id":    e.EntityId,
		"source_event": e.SourceEvent,
	}
}
func (e ValueWritten) Timestamp() time.Time { return e.OccurredAt }
