package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/entity"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/pkg/logger"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/registry"
)

func TestCoerce(t *testing.T) {
	fptr := func(v float64) *float64 { return &v }

	cases := []struct {
		name    string
		def     *entity.FeatureDefinition
		raw     interface{}
		want    entity.Value
		wantErr bool
	}{
		{
			name: "int64 to INT",
			def:  &entity.FeatureDefinition{Name: "user_total_trips", ValueType: entity.ValueTypeInt},
			raw:  int64(42),
			want: entity.IntValue(42),
		},
		{
			name: "float64 to INT truncates",
			def:  &entity.FeatureDefinition{Name: "user_total_trips", ValueType: entity.ValueTypeInt},
			raw:  float64(42.9),
			want: entity.IntValue(42),
		},
		{
			name: "int64 to FLOAT",
			def:  &entity.FeatureDefinition{Name: "driver_avg_rating", ValueType: entity.ValueTypeFloat},
			raw:  int64(5),
			want: entity.FloatValue(5),
		},
		{
			name: "bytes to STRING",
			def:  &entity.FeatureDefinition{Name: "traffic_level", ValueType: entity.ValueTypeString},
			raw:  []byte("heavy"),
			want: entity.StringValue("heavy"),
		},
		{
			name: "jsonb bytes to JSON",
			def:  &entity.FeatureDefinition{Name: "user_churn_risk_inputs", ValueType: entity.ValueTypeJSON},
			raw:  []byte(`{"trips_30d": 4, "cancel_rate_7d": 0.5}`),
			want: entity.JSONValue(map[string]interface{}{"trips_30d": float64(4), "cancel_rate_7d": 0.5}),
		},
		{
			name: "json array text to EMBEDDING",
			def:  &entity.FeatureDefinition{Name: "user_taste_embedding", ValueType: entity.ValueTypeEmbedding, VectorWidth: 3},
			raw:  "[0.1, 0.2, 0.3]",
			want: entity.Value{Kind: entity.ValueTypeEmbedding, Vec: []float64{0.1, 0.2, 0.3}},
		},
		{
			name:    "malformed jsonb",
			def:     &entity.FeatureDefinition{Name: "user_churn_risk_inputs", ValueType: entity.ValueTypeJSON},
			raw:     []byte(`{`),
			wantErr: true,
		},
		{
			name: "null for nullable",
			def:  &entity.FeatureDefinition{Name: "user_churn_risk_inputs", ValueType: entity.ValueTypeJSON, Nullable: true},
			raw:  nil,
			want: entity.NullValue(entity.ValueTypeJSON),
		},
		{
			name: "null for non-nullable falls to default",
			def: &entity.FeatureDefinition{
				Name: "driver_avg_rating", ValueType: entity.ValueTypeFloat,
				Default: &entity.Value{Kind: entity.ValueTypeFloat, Float: 5}, Min: fptr(1),
			},
			raw:  nil,
			want: entity.FloatValue(5),
		},
		{
			name:    "kind mismatch",
			def:     &entity.FeatureDefinition{Name: "driver_is_online", ValueType: entity.ValueTypeBoolean},
			raw:     "yes",
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := coerce(tc.def, tc.raw)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// Every built-in BATCH feature must have an aggregation behind it, or the
// cadence that owns it fails by construction on every run.
func TestBuiltinAggregationsCoverBatchFeatures(t *testing.T) {
	w := NewGormWarehouse(nil, logger.NewNopLogger())
	RegisterBuiltins(w)

	for _, req := range registry.BuiltinFeatures {
		if req.Source != entity.SourceBatch {
			continue
		}
		assert.Contains(t, w.aggregations, req.Name)
	}

	assert.Contains(t, w.entityQueries, entity.EntityTypeUser)
	assert.Contains(t, w.entityQueries, entity.EntityTypeDriver)
}
