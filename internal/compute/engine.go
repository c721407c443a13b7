// Package compute resolves feature dependencies and computes values according
// to each feature's declared source, persisting results through the value
// store so subsequent reads are cache hits.
package compute

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/dto"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/entity"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/pkg/logger"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/registry"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/valuestore"
)

const moduleName = "COMPUTE"

type IEngine interface {
	ComputeFeature(ctx context.Context, name, entityId string) (entity.Value, error)
	ProcessStreamUpdate(ctx context.Context, update *dto.StreamUpdate) error
	RegisterRequestTimeFunc(name string, fn RequestTimeFunc)
	RegisterTransform(name string, fn Transform)
}

type engine struct {
	registry  registry.IRegistry
	values    valuestore.IValueStore
	warehouse Warehouse
	external  ExternalLookup
	log       logger.ILogger
	now       func() time.Time

	mu          sync.RWMutex
	requestTime map[string]RequestTimeFunc
	transforms  map[string]Transform
}

func NewEngine(
	reg registry.IRegistry,
	values valuestore.IValueStore,
	warehouse Warehouse,
	external ExternalLookup,
	log logger.ILogger,
) IEngine {
	return &engine{
		registry:    reg,
		values:      values,
		warehouse:   warehouse,
		external:    external,
		log:         log,
		now:         time.Now,
		requestTime: make(map[string]RequestTimeFunc),
		transforms:  make(map[string]Transform),
	}
}

// RegisterRequestTimeFunc binds a pure time-derived function to a
// REQUEST_TIME feature name.
func (e *engine) RegisterRequestTimeFunc(name string, fn RequestTimeFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requestTime[name] = fn
}

// RegisterTransform binds an ingestion transform to a feature name.
func (e *engine) RegisterTransform(name string, fn Transform) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transforms[name] = fn
}

// ComputeFeature resolves the feature's dependencies depth-first, computes
// its value per its declared source, persists the result, and returns it.
func (e *engine) ComputeFeature(ctx context.Context, name, entityId string) (entity.Value, error) {
	return e.compute(ctx, name, entityId, map[string]bool{})
}

func (e *engine) compute(ctx context.Context, name, entityId string, visiting map[string]bool) (entity.Value, error) {
	if visiting[name] {
		return entity.Value{}, fmt.Errorf("%w: via %s", entity.ErrDependencyCycle, name)
	}
	visiting[name] = true
	defer delete(visiting, name)

	def, err := e.registry.GetFeatureDefinition(ctx, name)
	if err != nil {
		return entity.Value{}, err
	}
	if def == nil {
		return entity.Value{}, fmt.Errorf("%w: %s", entity.ErrUnknownFeature, name)
	}

	if err := e.resolveDependencies(ctx, def, entityId, visiting); err != nil {
		return entity.Value{}, err
	}

	var value entity.Value
	switch def.Source {
	case entity.SourceBatch:
		value, err = e.warehouse.RunAggregation(ctx, def, entityId)
	case entity.SourceRequestTime:
		value, err = e.computeRequestTime(def, entityId)
	case entity.SourceExternal:
		value, err = e.external.Lookup(ctx, def, entityId)
	case entity.SourceStream, entity.SourceManual:
		// These arrive only by push; nothing to compute here.
		return entity.Value{}, fmt.Errorf("%w: %s (%s)", entity.ErrNotComputable, name, def.Source)
	default:
		return entity.Value{}, fmt.Errorf("%w: %s has unknown source %s", entity.ErrNotComputable, name, def.Source)
	}
	if err != nil {
		return entity.Value{}, fmt.Errorf("compute %s for %s: %w", name, entityId, err)
	}

	if err := e.values.SetFeatureValue(ctx, &dto.SetFeatureValueRequest{
		FeatureName: name,
		EntityId:    entityId,
		Value:       value,
		SourceEvent: "compute:" + string(def.Source),
	}); err != nil {
		return entity.Value{}, err
	}
	return value, nil
}

// resolveDependencies makes sure each declared dependency has a live value
// before the dependent is computed. A dependency that is already fresh is
// left alone; a missing computable one is recomputed per its own policy;
// missing STREAM/MANUAL dependencies fall back to their defaults at read
// time, which is not this function's problem.
func (e *engine) resolveDependencies(ctx context.Context, def *entity.FeatureDefinition, entityId string, visiting map[string]bool) error {
	for _, depName := range def.DependsOn {
		depDef, err := e.registry.GetFeatureDefinition(ctx, depName)
		if err != nil {
			return err
		}
		if depDef == nil {
			return fmt.Errorf("%w: dependency %s of %s", entity.ErrUnknownFeature, depName, def.Name)
		}

		live, err := e.hasLiveValue(ctx, depDef, entityId)
		if err != nil {
			return err
		}
		if live {
			continue
		}

		switch depDef.Source {
		case entity.SourceBatch, entity.SourceRequestTime, entity.SourceExternal:
			if _, err := e.compute(ctx, depName, entityId, visiting); err != nil {
				return err
			}
		default:
			e.log.Debug(moduleName, "push-sourced dependency has no live value", map[string]interface{}{
				"feature": def.Name, "dependency": depName, "entity_id": entityId,
			})
		}
	}
	return nil
}

// hasLiveValue checks whether a stored (non-defaulted) value exists for the
// dependency. The value store marks live hits with a computed-at timestamp.
func (e *engine) hasLiveValue(ctx context.Context, def *entity.FeatureDefinition, entityId string) (bool, error) {
	res, err := e.values.GetFeatures(ctx, &dto.GetFeaturesRequest{
		EntityType:   def.EntityType,
		EntityIds:    []string{entityId},
		FeatureNames: []string{def.Name},
	})
	if err != nil {
		return false, err
	}
	if len(res.Vectors) == 0 {
		return false, nil
	}
	_, live := res.Vectors[0].Metadata.ComputedAt[def.Name]
	return live, nil
}

func (e *engine) computeRequestTime(def *entity.FeatureDefinition, entityId string) (entity.Value, error) {
	e.mu.RLock()
	fn, ok := e.requestTime[def.Name]
	e.mu.RUnlock()
	if !ok {
		return entity.Value{}, fmt.Errorf("no request-time function registered for %s", def.Name)
	}
	return fn(e.now(), entityId), nil
}

// ProcessStreamUpdate applies one record from the event bus. Updates for
// unregistered names are dropped and logged rather than failing the ingestion
// pipeline. Writes are last-value-wins, so redelivery of the same source
// event is idempotent.
func (e *engine) ProcessStreamUpdate(ctx context.Context, update *dto.StreamUpdate) error {
	def, err := e.registry.GetFeatureDefinition(ctx, update.FeatureName)
	if err != nil {
		e.log.Warn(moduleName, "stream update dropped, registry unavailable", map[string]interface{}{
			"feature": update.FeatureName, "entity_id": update.EntityId, "error": err.Error(),
		})
		return nil
	}
	if def == nil {
		e.log.Warn(moduleName, "stream update dropped, feature not registered", map[string]interface{}{
			"feature": update.FeatureName, "entity_id": update.EntityId, "source_event": update.SourceEvent,
		})
		return nil
	}

	value := update.Value
	e.mu.RLock()
	transform, ok := e.transforms[update.FeatureName]
	e.mu.RUnlock()
	if ok {
		value = transform(value)
	}

	return e.values.SetFeatureValue(ctx, &dto.SetFeatureValueRequest{
		FeatureName: update.FeatureName,
		EntityId:    update.EntityId,
		Value:       value,
		SourceEvent: update.SourceEvent,
	})
}
