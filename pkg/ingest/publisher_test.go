package ingest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/dto"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/entity"
)

// The producer package owns its own copy of the wire types so importers do
// not reach into internal/. This pins the two sides to the same JSON shape.
func TestUpdateWireFormatMatchesConsumer(t *testing.T) {
	at := time.Date(2026, 8, 14, 10, 30, 0, 0, time.UTC)

	cases := []struct {
		name string
		sent Update
		want dto.StreamUpdate
	}{
		{
			name: "boolean",
			sent: Update{
				FeatureName: "driver_is_online",
				EntityId:    "drv-42",
				Value:       Value{Kind: "BOOLEAN", Bool: true},
				Timestamp:   at,
				SourceEvent: "driver.status_changed",
			},
			want: dto.StreamUpdate{
				FeatureName: "driver_is_online",
				EntityId:    "drv-42",
				Value:       entity.BoolValue(true),
				Timestamp:   at,
				SourceEvent: "driver.status_changed",
			},
		},
		{
			name: "vector",
			sent: Update{
				FeatureName: "driver_current_location",
				EntityId:    "drv-42",
				Value:       Value{Kind: "VECTOR", Vec: []float64{6.45, 3.39}},
				Timestamp:   at,
			},
			want: dto.StreamUpdate{
				FeatureName: "driver_current_location",
				EntityId:    "drv-42",
				Value:       entity.VectorValue([]float64{6.45, 3.39}),
				Timestamp:   at,
			},
		},
		{
			name: "explicit null",
			sent: Update{
				FeatureName: "user_churn_risk_inputs",
				EntityId:    "usr-7",
				Value:       Value{Kind: "JSON", Null: true},
				Timestamp:   at,
			},
			want: dto.StreamUpdate{
				FeatureName: "user_churn_risk_inputs",
				EntityId:    "usr-7",
				Value:       entity.NullValue(entity.ValueTypeJSON),
				Timestamp:   at,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(&tc.sent)
			require.NoError(t, err)

			var got dto.StreamUpdate
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSubjectShardedByFeatureName(t *testing.T) {
	assert.Equal(t, "features.updates.driver_is_online", subjectFor("driver_is_online"))
}
