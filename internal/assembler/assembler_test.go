package assembler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/backing"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/dto"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/entity"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/pkg/logger"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/registry"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/valuestore"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/pkg/events"
)

type fixture struct {
	registry  registry.IRegistry
	values    valuestore.IValueStore
	assembler IAssembler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bus := events.NewWatermillBus(logger.NewNopLogger())
	t.Cleanup(func() { bus.Close() })

	store := backing.NewMemoryStore()
	log := logger.NewNopLogger()
	reg := registry.NewRegistry(store, bus, log)
	values := valuestore.NewValueStore(reg, store, bus, log)
	return &fixture{
		registry:  reg,
		values:    values,
		assembler: NewAssembler(reg, values, log),
	}
}

func vptr(v entity.Value) *entity.Value { return &v }

func (f *fixture) register(t *testing.T, req *dto.CreateFeatureRequest) {
	t.Helper()
	_, err := f.registry.CreateFeature(context.Background(), req)
	require.NoError(t, err)
}

func (f *fixture) write(t *testing.T, name, entityId string, v entity.Value) {
	t.Helper()
	err := f.values.SetFeatureValue(context.Background(), &dto.SetFeatureValueRequest{
		FeatureName: name,
		EntityId:    entityId,
		Value:       v,
	})
	require.NoError(t, err)
}

func TestVectorPreservesRequestOrder(t *testing.T) {
	f := newFixture(t)
	f.register(t, &dto.CreateFeatureRequest{
		Name: "user_total_trips", EntityType: entity.EntityTypeUser,
		ValueType: entity.ValueTypeInt, Freshness: entity.TierHourly,
		Source: entity.SourceBatch, Default: vptr(entity.IntValue(0)),
	})
	f.register(t, &dto.CreateFeatureRequest{
		Name: "user_cancel_rate_7d", EntityType: entity.EntityTypeUser,
		ValueType: entity.ValueTypeFloat, Freshness: entity.TierDaily,
		Source: entity.SourceBatch, Default: vptr(entity.FloatValue(0)),
	})
	f.register(t, &dto.CreateFeatureRequest{
		Name: "user_is_verified", EntityType: entity.EntityTypeUser,
		ValueType: entity.ValueTypeBoolean, Freshness: entity.TierStatic,
		Source: entity.SourceManual, Default: vptr(entity.BoolValue(false)),
	})

	f.write(t, "user_total_trips", "usr-1", entity.IntValue(42))
	f.write(t, "user_cancel_rate_7d", "usr-1", entity.FloatValue(0.25))
	f.write(t, "user_is_verified", "usr-1", entity.BoolValue(true))

	resp, err := f.assembler.GetFeatureVectorForModel(context.Background(), &dto.ModelVectorRequest{
		ModelId:      "churn-v3",
		EntityType:   entity.EntityTypeUser,
		EntityId:     "usr-1",
		FeatureNames: []string{"user_cancel_rate_7d", "user_is_verified", "user_total_trips"},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 1, 42}, resp.Vector)
	assert.Equal(t, "churn-v3", resp.ModelId)
}

func TestVectorFlattensEmbeddingWithPadding(t *testing.T) {
	f := newFixture(t)
	f.register(t, &dto.CreateFeatureRequest{
		Name: "user_taste_embedding", EntityType: entity.EntityTypeUser,
		ValueType: entity.ValueTypeEmbedding, Freshness: entity.TierWeekly,
		Source: entity.SourceBatch, VectorWidth: 4,
	})
	f.register(t, &dto.CreateFeatureRequest{
		Name: "user_total_trips", EntityType: entity.EntityTypeUser,
		ValueType: entity.ValueTypeInt, Freshness: entity.TierHourly,
		Source: entity.SourceBatch, Default: vptr(entity.IntValue(0)),
	})

	f.write(t, "user_taste_embedding", "usr-1", entity.EmbeddingValue([]float64{0.1, 0.2, 0.3, 0.4}))
	f.write(t, "user_total_trips", "usr-1", entity.IntValue(7))

	resp, err := f.assembler.GetFeatureVectorForModel(context.Background(), &dto.ModelVectorRequest{
		ModelId:      "reco-v1",
		EntityType:   entity.EntityTypeUser,
		EntityId:     "usr-1",
		FeatureNames: []string{"user_taste_embedding", "user_total_trips"},
	})
	require.NoError(t, err)
	// Four embedding slots, then the scalar: width is stable per request shape.
	assert.Equal(t, []float64{0.1, 0.2, 0.3, 0.4, 7}, resp.Vector)
}

func TestVectorZeroFillsAbsentEmbedding(t *testing.T) {
	f := newFixture(t)
	f.register(t, &dto.CreateFeatureRequest{
		Name: "user_taste_embedding", EntityType: entity.EntityTypeUser,
		ValueType: entity.ValueTypeEmbedding, Freshness: entity.TierWeekly,
		Source: entity.SourceBatch, VectorWidth: 4,
	})

	resp, err := f.assembler.GetFeatureVectorForModel(context.Background(), &dto.ModelVectorRequest{
		ModelId:      "reco-v1",
		EntityType:   entity.EntityTypeUser,
		EntityId:     "usr-never-seen",
		FeatureNames: []string{"user_taste_embedding"},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, resp.Vector)
}

func TestVectorUnregisteredNameContributesSingleZero(t *testing.T) {
	f := newFixture(t)
	f.register(t, &dto.CreateFeatureRequest{
		Name: "user_total_trips", EntityType: entity.EntityTypeUser,
		ValueType: entity.ValueTypeInt, Freshness: entity.TierHourly,
		Source: entity.SourceBatch, Default: vptr(entity.IntValue(0)),
	})
	f.write(t, "user_total_trips", "usr-1", entity.IntValue(3))

	resp, err := f.assembler.GetFeatureVectorForModel(context.Background(), &dto.ModelVectorRequest{
		ModelId:      "churn-v3",
		EntityType:   entity.EntityTypeUser,
		EntityId:     "usr-1",
		FeatureNames: []string{"ghost", "user_total_trips"},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 3}, resp.Vector)
}

func TestVectorStringIsPlaceholderZero(t *testing.T) {
	f := newFixture(t)
	f.register(t, &dto.CreateFeatureRequest{
		Name: "traffic_level", EntityType: entity.EntityTypeLocation,
		ValueType: entity.ValueTypeString, Freshness: entity.TierMinute,
		Source:        entity.SourceExternal,
		AllowedValues: []string{"light", "moderate", "heavy"},
	})
	f.write(t, "traffic_level", "cell-1", entity.StringValue("heavy"))

	resp, err := f.assembler.GetFeatureVectorForModel(context.Background(), &dto.ModelVectorRequest{
		ModelId:      "surge-v2",
		EntityType:   entity.EntityTypeLocation,
		EntityId:     "cell-1",
		FeatureNames: []string{"traffic_level"},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, resp.Vector)
}

func TestVectorMalformedRequestErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.assembler.GetFeatureVectorForModel(context.Background(), &dto.ModelVectorRequest{
		ModelId:      "churn-v3",
		EntityType:   "SPACESHIP",
		EntityId:     "usr-1",
		FeatureNames: []string{"user_total_trips"},
	})
	require.Error(t, err)
	assert.True(t, entity.IsValidation(err))
}
