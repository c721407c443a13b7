package compute

import (
	"context"
	"time"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/entity"
)

// Warehouse is the external analytical engine that executes a BATCH feature's
// registered aggregation, one value per entity. The store only orchestrates
// invocation and persists results.
type Warehouse interface {
	RunAggregation(ctx context.Context, def *entity.FeatureDefinition, entityId string) (entity.Value, error)

	// ListEntities enumerates the entities a scheduled batch run should
	// compute when the caller gives no explicit ids.
	ListEntities(ctx context.Context, entityType entity.EntityType) ([]string, error)
}

// ExternalLookup fetches an EXTERNAL-sourced feature from a collaborator
// service (traffic conditions, weather, ...).
type ExternalLookup interface {
	Lookup(ctx context.Context, def *entity.FeatureDefinition, entityId string) (entity.Value, error)
}

// RequestTimeFunc derives a REQUEST_TIME feature from the current time and
// the entity id alone; it has no storage dependency.
type RequestTimeFunc func(now time.Time, entityId string) entity.Value

// Transform optionally reshapes a stream value before validation, e.g.
// unit conversion on ingested location pings.
type Transform func(v entity.Value) entity.Value
