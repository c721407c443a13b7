// FILE: internal/dto/feature_dto.go
// DTOs for the registry control plane and the serving plane
package dto

import (
	"time"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/entity"
)

// --- Control plane ---

// CreateFeatureRequest registers a new feature definition.
type CreateFeatureRequest struct {
	Name          string               `json:"name" validate:"required"`
	Description   string               `json:"description,omitempty"`
	EntityType    entity.EntityType    `json:"entity_type" validate:"required"`
	ValueType     entity.ValueType     `json:"value_type" validate:"required"`
	Freshness     entity.FreshnessTier `json:"freshness" validate:"required"`
	Source        entity.FeatureSource `json:"source" validate:"required"`
	DependsOn     []string             `json:"depends_on,omitempty"`
	Default       *entity.Value        `json:"default,omitempty"`
	Min           *float64             `json:"min,omitempty"`
	Max           *float64             `json:"max,omitempty"`
	AllowedValues []string             `json:"allowed_values,omitempty"`
	Nullable      bool                 `json:"nullable"`
	VectorWidth   int                  `json:"vector_width,omitempty"`
}

// CreateFeatureGroupRequest bundles existing features under one name.
type CreateFeatureGroupRequest struct {
	Name         string            `json:"name" validate:"required"`
	EntityType   entity.EntityType `json:"entity_type" validate:"required"`
	FeatureNames []string          `json:"feature_names" validate:"required,min=1"`
	UsedByModels []string          `json:"used_by_models,omitempty"`
}

// --- Serving plane ---

// SetFeatureValueRequest writes one value for one entity.
type SetFeatureValueRequest struct {
	FeatureName string       `json:"feature_name" validate:"required"`
	EntityId    string       `json:"entity_id" validate:"required"`
	Value       entity.Value `json:"value"`
	// TTLSeconds overrides the freshness-tier TTL when > 0.
	TTLSeconds  int    `json:"ttl_seconds,omitempty"`
	SourceEvent string `json:"source_event,omitempty"`
}

// GetFeaturesRequest retrieves vectors for a set of entities.
type GetFeaturesRequest struct {
	EntityType   entity.EntityType `json:"entity_type" validate:"required"`
	EntityIds    []string          `json:"entity_ids" validate:"required,min=1"`
	FeatureNames []string          `json:"feature_names" validate:"required,min=1"`
	// MaxStalenessSeconds marks hits older than this as stale.
	MaxStalenessSeconds *float64 `json:"max_staleness_seconds,omitempty"`
	// AllowStale suppresses stale reporting when the caller tolerates old data.
	AllowStale bool `json:"allow_stale"`
}

// GetFeaturesResponse carries one vector per requested entity plus the
// request-level diagnostics. Registered features never error out of this
// call; problems surface in the missing/stale sets.
type GetFeaturesResponse struct {
	Vectors         []*entity.FeatureVector `json:"vectors"`
	MissingFeatures []string                `json:"missing_features"`
	StaleFeatures   []string                `json:"stale_features"`
	LatencyMs       float64                 `json:"latency_ms"`
}

// ModelVectorRequest asks for a flattened numeric array for one entity.
type ModelVectorRequest struct {
	ModelId      string            `json:"model_id" validate:"required"`
	EntityType   entity.EntityType `json:"entity_type" validate:"required"`
	EntityId     string            `json:"entity_id" validate:"required"`
	FeatureNames []string          `json:"feature_names" validate:"required,min=1"`
}

// ModelVectorResponse is the fixed-order numeric array for direct model input.
type ModelVectorResponse struct {
	ModelId   string    `json:"model_id"`
	EntityId  string    `json:"entity_id"`
	Vector    []float64 `json:"vector"`
	LatencyMs float64   `json:"latency_ms"`
}

// --- Ingestion / batch ---

// StreamUpdate is one record consumed from the event bus.
type StreamUpdate struct {
	FeatureName string       `json:"feature_name"`
	EntityId    string       `json:"entity_id"`
	Value       entity.Value `json:"value"`
	Timestamp   time.Time    `json:"timestamp"`
	SourceEvent string       `json:"source_event,omitempty"`
}

// BatchRunResult summarizes one runBatchComputation invocation.
type BatchRunResult struct {
	Computed   int           `json:"computed"`
	Failed     int           `json:"failed"`
	WallTime   time.Duration `json:"wall_time"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}
