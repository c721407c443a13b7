// Domain entities for the feature registry
package entity

import (
	"time"

	"github.com/google/uuid"
)

// EntityType is the category of subject a feature describes.
type EntityType string

const (
	EntityTypeUser       EntityType = "USER"
	EntityTypeDriver     EntityType = "DRIVER"
	EntityTypeRestaurant EntityType = "RESTAURANT"
	EntityTypeLocation   EntityType = "LOCATION"
	EntityTypeTrip       EntityType = "TRIP"
	EntityTypePayment    EntityType = "PAYMENT"
)

// KnownEntityTypes lists every entity type the store accepts.
var KnownEntityTypes = []EntityType{
	EntityTypeUser, EntityTypeDriver, EntityTypeRestaurant,
	EntityTypeLocation, EntityTypeTrip, EntityTypePayment,
}

// FreshnessTier declares how stale a feature value may get before the store
// lets it expire.
type FreshnessTier string

const (
	TierRealtime     FreshnessTier = "REALTIME"
	TierNearRealtime FreshnessTier = "NEAR_REALTIME"
	TierMinute       FreshnessTier = "MINUTE"
	TierHourly       FreshnessTier = "HOURLY"
	TierDaily        FreshnessTier = "DAILY"
	TierWeekly       FreshnessTier = "WEEKLY"
	TierStatic       FreshnessTier = "STATIC"
)

// TTL maps a freshness tier to the backing-store expiry applied on write.
// STATIC returns 0, meaning no expiry.
func (t FreshnessTier) TTL() time.Duration {
	switch t {
	case TierRealtime:
		return 60 * time.Second
	case TierNearRealtime:
		return 300 * time.Second
	case TierMinute:
		return 120 * time.Second
	case TierHourly:
		return 2 * time.Hour
	case TierDaily:
		return 48 * time.Hour
	case TierWeekly:
		return 14 * 24 * time.Hour
	case TierStatic:
		return 0
	}
	return 60 * time.Second
}

// FeatureSource declares which producer path fills a feature.
type FeatureSource string

const (
	SourceBatch       FeatureSource = "BATCH"
	SourceStream      FeatureSource = "STREAM"
	SourceRequestTime FeatureSource = "REQUEST_TIME"
	SourceExternal    FeatureSource = "EXTERNAL"
	SourceManual      FeatureSource = "MANUAL"
)

// FeatureDefinition is the immutable-after-creation description of one
// feature. EntityType and ValueType never change once registered.
type FeatureDefinition struct {
	Id            uuid.UUID     `json:"id"`
	Name          string        `json:"name"` // Globally unique key: user_total_trips, driver_is_online, ...
	Description   string        `json:"description,omitempty"`
	EntityType    EntityType    `json:"entity_type"`
	ValueType     ValueType     `json:"value_type"`
	Freshness     FreshnessTier `json:"freshness"`
	Source        FeatureSource `json:"source"`
	DependsOn     []string      `json:"depends_on,omitempty"`
	Default       *Value        `json:"default,omitempty"`
	Min           *float64      `json:"min,omitempty"`
	Max           *float64      `json:"max,omitempty"`
	AllowedValues []string      `json:"allowed_values,omitempty"`
	Nullable      bool          `json:"nullable"`
	// VectorWidth is the declared flattening width for VECTOR/EMBEDDING kinds.
	VectorWidth  int        `json:"vector_width,omitempty"`
	Version      int        `json:"version"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	DeprecatedAt *time.Time `json:"deprecated_at,omitempty"`
}

// DefaultValue returns the declared default, or a zero value of the
// definition's kind when none was declared.
func (d *FeatureDefinition) DefaultValue() Value {
	if d.Default != nil {
		return *d.Default
	}
	switch d.ValueType {
	case ValueTypeVector, ValueTypeEmbedding:
		return Value{Kind: d.ValueType, Vec: make([]float64, d.VectorWidth)}
	default:
		return Value{Kind: d.ValueType}
	}
}

// Width is the number of scalar slots this feature occupies in an assembled
// model vector.
func (d *FeatureDefinition) Width() int {
	if d.ValueType == ValueTypeVector || d.ValueType == ValueTypeEmbedding {
		if d.VectorWidth > 0 {
			return d.VectorWidth
		}
	}
	return 1
}

// FeatureGroup is a named, reusable bundle of feature names sharing one
// entity type.
type FeatureGroup struct {
	Id           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	EntityType   EntityType `json:"entity_type"`
	FeatureNames []string   `json:"feature_names"`
	UsedByModels []string   `json:"used_by_models,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// FeatureVector is the per-entity bundle of resolved values returned by one
// retrieval call. It is assembled on read and never persisted.
type FeatureVector struct {
	EntityType EntityType       `json:"entity_type"`
	EntityId   string           `json:"entity_id"`
	Features   map[string]Value `json:"features"`
	Metadata   VectorMetadata   `json:"metadata"`
}

// VectorMetadata carries per-feature provenance for a FeatureVector.
type VectorMetadata struct {
	ComputedAt       map[string]time.Time `json:"computed_at"`
	Version          map[string]int       `json:"version"`
	StalenessSeconds map[string]float64   `json:"staleness_seconds"`
}
