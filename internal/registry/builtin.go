package registry

import (
	"context"
	"errors"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/dto"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/entity"
)

func f64(v float64) *float64           { return &v }
func val(v entity.Value) *entity.Value { return &v }

// BuiltinFeatures are the definitions every deployment starts with. They back
// the rideshare scoring services (surge, fraud, churn, recommendations) and
// are registered in dependency order.
var BuiltinFeatures = []*dto.CreateFeatureRequest{
	{
		Name:        "hour_of_day",
		Description: "Local hour of day at request time",
		EntityType:  entity.EntityTypeLocation,
		ValueType:   entity.ValueTypeInt,
		Freshness:   entity.TierRealtime,
		Source:      entity.SourceRequestTime,
		Default:     val(entity.IntValue(0)),
		Min:         f64(0), Max: f64(23),
	},
	{
		Name:        "day_of_week",
		Description: "Day of week at request time, Sunday = 0",
		EntityType:  entity.EntityTypeLocation,
		ValueType:   entity.ValueTypeInt,
		Freshness:   entity.TierRealtime,
		Source:      entity.SourceRequestTime,
		Default:     val(entity.IntValue(0)),
		Min:         f64(0), Max: f64(6),
	},
	{
		Name:        "is_weekend",
		Description: "Whether the request falls on a weekend",
		EntityType:  entity.EntityTypeLocation,
		ValueType:   entity.ValueTypeBoolean,
		Freshness:   entity.TierRealtime,
		Source:      entity.SourceRequestTime,
		Default:     val(entity.BoolValue(false)),
	},
	{
		Name:        "is_peak_hour",
		Description: "Morning or evening commute window",
		EntityType:  entity.EntityTypeLocation,
		ValueType:   entity.ValueTypeBoolean,
		Freshness:   entity.TierRealtime,
		Source:      entity.SourceRequestTime,
		Default:     val(entity.BoolValue(false)),
	},
	{
		Name:          "traffic_level",
		Description:   "Current congestion bucket for a location cell",
		EntityType:    entity.EntityTypeLocation,
		ValueType:     entity.ValueTypeString,
		Freshness:     entity.TierMinute,
		Source:        entity.SourceExternal,
		Default:       val(entity.StringValue("moderate")),
		AllowedValues: []string{"light", "moderate", "heavy", "severe"},
	},
	{
		Name:        "driver_is_online",
		Description: "Whether the driver is currently accepting trips",
		EntityType:  entity.EntityTypeDriver,
		ValueType:   entity.ValueTypeBoolean,
		Freshness:   entity.TierRealtime,
		Source:      entity.SourceStream,
		Default:     val(entity.BoolValue(false)),
	},
	{
		Name:        "driver_acceptance_rate",
		Description: "Share of dispatch offers accepted over the trailing week",
		EntityType:  entity.EntityTypeDriver,
		ValueType:   entity.ValueTypeFloat,
		Freshness:   entity.TierDaily,
		Source:      entity.SourceBatch,
		Default:     val(entity.FloatValue(1.0)),
		Min:         f64(0), Max: f64(1),
	},
	{
		Name:        "driver_avg_rating",
		Description: "Mean rider rating over the trailing 90 days",
		EntityType:  entity.EntityTypeDriver,
		ValueType:   entity.ValueTypeFloat,
		Freshness:   entity.TierDaily,
		Source:      entity.SourceBatch,
		Default:     val(entity.FloatValue(5.0)),
		Min:         f64(1), Max: f64(5),
	},
	{
		Name:        "user_total_trips",
		Description: "Lifetime completed trips for a rider",
		EntityType:  entity.EntityTypeUser,
		ValueType:   entity.ValueTypeInt,
		Freshness:   entity.TierHourly,
		Source:      entity.SourceBatch,
		Default:     val(entity.IntValue(0)),
		Min:         f64(0),
	},
	{
		Name:        "user_cancel_rate_7d",
		Description: "Share of requested trips cancelled over the trailing week",
		EntityType:  entity.EntityTypeUser,
		ValueType:   entity.ValueTypeFloat,
		Freshness:   entity.TierDaily,
		Source:      entity.SourceBatch,
		Default:     val(entity.FloatValue(0)),
		Min:         f64(0), Max: f64(1),
	},
	{
		Name:        "user_payment_failures_30d",
		Description: "Failed payment attempts in the trailing 30 days",
		EntityType:  entity.EntityTypeUser,
		ValueType:   entity.ValueTypeInt,
		Freshness:   entity.TierDaily,
		Source:      entity.SourceBatch,
		Default:     val(entity.IntValue(0)),
		Min:         f64(0),
	},
	{
		Name:        "user_churn_risk_inputs",
		Description: "Aggregated churn-model inputs, depends on trip history",
		EntityType:  entity.EntityTypeUser,
		ValueType:   entity.ValueTypeJSON,
		Freshness:   entity.TierWeekly,
		Source:      entity.SourceBatch,
		DependsOn:   []string{"user_total_trips", "user_cancel_rate_7d"},
		Nullable:    true,
	},
	{
		Name:        "user_taste_embedding",
		Description: "Recommendation embedding for restaurant ranking",
		EntityType:  entity.EntityTypeUser,
		ValueType:   entity.ValueTypeEmbedding,
		Freshness:   entity.TierWeekly,
		Source:      entity.SourceBatch,
		VectorWidth: 16,
	},
}

// LoadBuiltins registers the built-in catalog, skipping names that already
// exist in the backing store.
func LoadBuiltins(ctx context.Context, reg IRegistry) error {
	for _, req := range BuiltinFeatures {
		if _, err := reg.CreateFeature(ctx, req); err != nil {
			if errors.Is(err, entity.ErrDuplicateFeature) {
				continue
			}
			return err
		}
	}
	return nil
}
