package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/backing"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/dto"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/entity"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/pkg/logger"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/pkg/events"
)

func newTestRegistry(t *testing.T) IRegistry {
	t.Helper()
	bus := events.NewWatermillBus(logger.NewNopLogger())
	t.Cleanup(func() { bus.Close() })
	return NewRegistry(backing.NewMemoryStore(), bus, logger.NewNopLogger())
}

func boolFeature(name string, et entity.EntityType) *dto.CreateFeatureRequest {
	return &dto.CreateFeatureRequest{
		Name:       name,
		EntityType: et,
		ValueType:  entity.ValueTypeBoolean,
		Freshness:  entity.TierRealtime,
		Source:     entity.SourceManual,
	}
}

func TestCreateFeature(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	def, err := reg.CreateFeature(ctx, boolFeature("driver_is_online", entity.EntityTypeDriver))
	require.NoError(t, err)
	assert.Equal(t, 1, def.Version)
	assert.True(t, def.IsActive)
	assert.NotEqual(t, "", def.Id.String())

	got, err := reg.GetFeatureDefinition(ctx, "driver_is_online")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entity.EntityTypeDriver, got.EntityType)
}

func TestCreateFeatureDuplicate(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.CreateFeature(ctx, boolFeature("driver_is_online", entity.EntityTypeDriver))
	require.NoError(t, err)

	_, err = reg.CreateFeature(ctx, boolFeature("driver_is_online", entity.EntityTypeDriver))
	assert.ErrorIs(t, err, entity.ErrDuplicateFeature)
}

func TestGetFeatureDefinitionUnknown(t *testing.T) {
	reg := newTestRegistry(t)

	def, err := reg.GetFeatureDefinition(context.Background(), "never_registered")
	require.NoError(t, err)
	assert.Nil(t, def)
}

func TestListFeaturesFiltersInactive(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.CreateFeature(ctx, boolFeature("driver_is_online", entity.EntityTypeDriver))
	require.NoError(t, err)
	_, err = reg.CreateFeature(ctx, boolFeature("user_is_new", entity.EntityTypeUser))
	require.NoError(t, err)

	require.NoError(t, reg.DeprecateFeature(ctx, "driver_is_online"))

	defs, err := reg.ListFeatures(ctx, nil)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "user_is_new", defs[0].Name)

	driver := entity.EntityTypeDriver
	defs, err = reg.ListFeatures(ctx, &driver)
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestDeprecateFeature(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	err := reg.DeprecateFeature(ctx, "ghost")
	assert.ErrorIs(t, err, entity.ErrUnknownFeature)

	_, err = reg.CreateFeature(ctx, boolFeature("driver_is_online", entity.EntityTypeDriver))
	require.NoError(t, err)
	require.NoError(t, reg.DeprecateFeature(ctx, "driver_is_online"))

	// Still resolvable; the definition survives deprecation.
	def, err := reg.GetFeatureDefinition(ctx, "driver_is_online")
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.False(t, def.IsActive)
	assert.NotNil(t, def.DeprecatedAt)

	// Deprecating twice is harmless.
	assert.NoError(t, reg.DeprecateFeature(ctx, "driver_is_online"))
}

func TestDependencyMustExist(t *testing.T) {
	reg := newTestRegistry(t)

	req := boolFeature("composite", entity.EntityTypeUser)
	req.DependsOn = []string{"missing_dep"}
	_, err := reg.CreateFeature(context.Background(), req)
	require.Error(t, err)
	assert.True(t, entity.IsValidation(err))
}

func TestDependencyCycleRejected(t *testing.T) {
	reg := newTestRegistry(t)

	req := boolFeature("narcissist", entity.EntityTypeUser)
	req.DependsOn = []string{"narcissist"}
	_, err := reg.CreateFeature(context.Background(), req)
	assert.ErrorIs(t, err, entity.ErrDependencyCycle)
}

func TestCreateFeatureGroup(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.CreateFeature(ctx, boolFeature("user_is_new", entity.EntityTypeUser))
	require.NoError(t, err)
	_, err = reg.CreateFeature(ctx, boolFeature("user_has_payment", entity.EntityTypeUser))
	require.NoError(t, err)
	_, err = reg.CreateFeature(ctx, boolFeature("driver_is_online", entity.EntityTypeDriver))
	require.NoError(t, err)

	group, err := reg.CreateFeatureGroup(ctx, &dto.CreateFeatureGroupRequest{
		Name:         "user_base",
		EntityType:   entity.EntityTypeUser,
		FeatureNames: []string{"user_is_new", "user_has_payment"},
	})
	require.NoError(t, err)
	assert.Len(t, group.FeatureNames, 2)

	got, err := reg.GetFeatureGroup(ctx, "user_base")
	require.NoError(t, err)
	assert.Equal(t, entity.EntityTypeUser, got.EntityType)
}

func TestCreateFeatureGroupEntityTypeMismatch(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.CreateFeature(ctx, boolFeature("user_is_new", entity.EntityTypeUser))
	require.NoError(t, err)
	_, err = reg.CreateFeature(ctx, boolFeature("driver_is_online", entity.EntityTypeDriver))
	require.NoError(t, err)

	_, err = reg.CreateFeatureGroup(ctx, &dto.CreateFeatureGroupRequest{
		Name:         "mixed",
		EntityType:   entity.EntityTypeUser,
		FeatureNames: []string{"user_is_new", "driver_is_online"},
	})
	require.Error(t, err)
	assert.True(t, entity.IsValidation(err))

	// Nothing was persisted.
	_, err = reg.GetFeatureGroup(ctx, "mixed")
	assert.True(t, errors.Is(err, entity.ErrUnknownGroup))
}

func TestCreateFeatureGroupRejectsDeprecatedMember(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.CreateFeature(ctx, boolFeature("user_is_new", entity.EntityTypeUser))
	require.NoError(t, err)
	require.NoError(t, reg.DeprecateFeature(ctx, "user_is_new"))

	_, err = reg.CreateFeatureGroup(ctx, &dto.CreateFeatureGroupRequest{
		Name:         "user_base",
		EntityType:   entity.EntityTypeUser,
		FeatureNames: []string{"user_is_new"},
	})
	require.Error(t, err)
	assert.True(t, entity.IsValidation(err))
}

// flakyStore fails Set once for one specific key, then recovers.
type flakyStore struct {
	backing.Store
	failKey string
	failed  bool
}

func (s *flakyStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if !s.failed && key == s.failKey {
		s.failed = true
		return errors.New("connection reset")
	}
	return s.Store.Set(ctx, key, data, ttl)
}

func TestCreateFeatureRetriesAfterPartialWriteFailure(t *testing.T) {
	cases := []struct {
		name    string
		failKey string
	}{
		{"index write fails", indexKey},
		{"definition write fails", defKeyPrefix + "driver_is_online"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bus := events.NewWatermillBus(logger.NewNopLogger())
			t.Cleanup(func() { bus.Close() })

			store := &flakyStore{Store: backing.NewMemoryStore(), failKey: tc.failKey}
			reg := NewRegistry(store, bus, logger.NewNopLogger())
			ctx := context.Background()

			_, err := reg.CreateFeature(ctx, boolFeature("driver_is_online", entity.EntityTypeDriver))
			require.Error(t, err)
			assert.NotErrorIs(t, err, entity.ErrDuplicateFeature)

			// A half-written create must not strand the name.
			def, err := reg.CreateFeature(ctx, boolFeature("driver_is_online", entity.EntityTypeDriver))
			require.NoError(t, err)
			assert.True(t, def.IsActive)

			defs, err := reg.ListFeatures(ctx, nil)
			require.NoError(t, err)
			require.Len(t, defs, 1)
			assert.Equal(t, "driver_is_online", defs[0].Name)
		})
	}
}

func TestLoadBuiltins(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, LoadBuiltins(ctx, reg))
	// Idempotent on restart.
	require.NoError(t, LoadBuiltins(ctx, reg))

	defs, err := reg.ListFeatures(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, defs, len(BuiltinFeatures))
}
