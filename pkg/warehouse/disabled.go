package warehouse

import (
	"context"
	"errors"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/entity"
)

// ErrDisabled is returned when no warehouse is configured.
var ErrDisabled = errors.New("warehouse not configured")

// Disabled is the no-op warehouse used when no DSN is configured. Batch
// computations fail individually and are counted, which keeps the scheduler
// and serving paths alive.
type Disabled struct{}

func (Disabled) RunAggregation(context.Context, *entity.FeatureDefinition, string) (entity.Value, error) {
	return entity.Value{}, ErrDisabled
}

func (Disabled) ListEntities(context.Context, entity.EntityType) ([]string, error) {
	return nil, ErrDisabled
}
