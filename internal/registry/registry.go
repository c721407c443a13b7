// Package registry holds the immutable-after-creation feature definitions and
// feature groups. It is constructed once at process start, loaded from the
// persisted index plus built-in definitions, and passed by reference to every
// component that needs it.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/backing"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/dto"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/entity"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/pkg/logger"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/pkg/events"
)

const (
	defKeyPrefix   = "feature:def:"
	groupKeyPrefix = "feature:group:"
	indexKey       = "feature:index"

	// Definitions rarely change; a short cache bounds registry round-trips
	// on the hot read path.
	cacheTTL   = 60 * time.Second
	cacheSweep = 5 * time.Minute
	moduleName = "REGISTRY"
)

type IRegistry interface {
	CreateFeature(ctx context.Context, req *dto.CreateFeatureRequest) (*entity.FeatureDefinition, error)
	GetFeatureDefinition(ctx context.Context, name string) (*entity.FeatureDefinition, error)
	ListFeatures(ctx context.Context, entityType *entity.EntityType) ([]*entity.FeatureDefinition, error)
	DeprecateFeature(ctx context.Context, name string) error
	CreateFeatureGroup(ctx context.Context, req *dto.CreateFeatureGroupRequest) (*entity.FeatureGroup, error)
	GetFeatureGroup(ctx context.Context, name string) (*entity.FeatureGroup, error)
}

type registry struct {
	store backing.Store
	cache *cache.Cache
	bus   events.Bus
	log   logger.ILogger

	// mu serializes create/deprecate so the persisted name index stays a
	// superset of stored definitions under concurrent control-plane calls.
	mu sync.Mutex
}

func NewRegistry(store backing.Store, bus events.Bus, log logger.ILogger) IRegistry {
	return &registry{
		store: store,
		cache: cache.New(cacheTTL, cacheSweep),
		bus:   bus,
		log:   log,
	}
}

// CreateFeature registers a definition. Names are globally unique; a
// duplicate aborts with entity.ErrDuplicateFeature and writes nothing.
func (r *registry) CreateFeature(ctx context.Context, req *dto.CreateFeatureRequest) (*entity.FeatureDefinition, error) {
	def := &entity.FeatureDefinition{
		Id:            uuid.New(),
		Name:          req.Name,
		Description:   req.Description,
		EntityType:    req.EntityType,
		ValueType:     req.ValueType,
		Freshness:     req.Freshness,
		Source:        req.Source,
		DependsOn:     req.DependsOn,
		Default:       req.Default,
		Min:           req.Min,
		Max:           req.Max,
		AllowedValues: req.AllowedValues,
		Nullable:      req.Nullable,
		VectorWidth:   req.VectorWidth,
		Version:       1,
		IsActive:      true,
		CreatedAt:     time.Now().UTC(),
	}

	if err := entity.ValidateDefinition(def); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.loadDefinition(ctx, def.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", entity.ErrDuplicateFeature, def.Name)
	}

	// Dependencies must already be registered; with that rule in place a new
	// node cannot close a cycle, but the walk also catches self-references
	// and graphs rebuilt from a corrupted index.
	if err := r.checkDependencies(ctx, def); err != nil {
		return nil, err
	}

	// Index first. A name in the index without a definition is skipped by
	// ListFeatures and the create can be retried; a definition without an
	// index entry would serve reads but never be listed or scheduled, and the
	// duplicate check would block every retry.
	if err := r.addToIndex(ctx, def.Name); err != nil {
		return nil, err
	}
	if err := r.persistDefinition(ctx, def); err != nil {
		return nil, err
	}

	r.log.Info(moduleName, "feature created", map[string]interface{}{
		"name": def.Name, "entity_type": string(def.EntityType), "source": string(def.Source),
	})
	r.bus.Publish(events.FeatureCreated{
		Name:       def.Name,
		EntityType: string(def.EntityType),
		Source:     string(def.Source),
		OccurredAt: time.Now(),
	})

	return def, nil
}

// GetFeatureDefinition looks the definition up cache-first, then the backing
// store. Returns (nil, nil) if the name was never registered.
func (r *registry) GetFeatureDefinition(ctx context.Context, name string) (*entity.FeatureDefinition, error) {
	if cached, found := r.cache.Get(defKeyPrefix + name); found {
		return cached.(*entity.FeatureDefinition), nil
	}
	return r.loadDefinition(ctx, name)
}

// ListFeatures returns active definitions, optionally filtered by entity type.
func (r *registry) ListFeatures(ctx context.Context, entityType *entity.EntityType) ([]*entity.FeatureDefinition, error) {
	names, err := r.loadIndex(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(names))
	for _, name := range names {
		keys = append(keys, defKeyPrefix+name)
	}
	raw, err := r.store.MultiGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}

	result := make([]*entity.FeatureDefinition, 0, len(raw))
	for _, name := range names {
		data, ok := raw[defKeyPrefix+name]
		if !ok {
			continue
		}
		var def entity.FeatureDefinition
		if err := json.Unmarshal(data, &def); err != nil {
			r.log.Warn(moduleName, "skipping unreadable definition", map[string]interface{}{"name": name, "error": err.Error()})
			continue
		}
		if !def.IsActive {
			continue
		}
		if entityType != nil && def.EntityType != *entityType {
			continue
		}
		result = append(result, &def)
	}
	return result, nil
}

// DeprecateFeature flips isActive off. Values already written decay via TTL;
// nothing is purged.
func (r *registry) DeprecateFeature(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	def, err := r.loadDefinition(ctx, name)
	if err != nil {
		return err
	}
	if def == nil {
		return fmt.Errorf("%w: %s", entity.ErrUnknownFeature, name)
	}
	if !def.IsActive {
		return nil
	}

	now := time.Now().UTC()
	def.IsActive = false
	def.DeprecatedAt = &now

	if err := r.persistDefinition(ctx, def); err != nil {
		return err
	}

	r.log.Info(moduleName, "feature deprecated", map[string]interface{}{"name": name})
	r.bus.Publish(events.FeatureDeprecated{Name: name, OccurredAt: time.Now()})
	return nil
}

// CreateFeatureGroup validates that every member exists, is active, and
// matches the group's entity type before persisting.
func (r *registry) CreateFeatureGroup(ctx context.Context, req *dto.CreateFeatureGroupRequest) (*entity.FeatureGroup, error) {
	for _, name := range req.FeatureNames {
		def, err := r.GetFeatureDefinition(ctx, name)
		if err != nil {
			return nil, err
		}
		if def == nil {
			return nil, entity.NewValidationError(req.Name, "member feature %q is not registered", name)
		}
		if !def.IsActive {
			return nil, entity.NewValidationError(req.Name, "member feature %q is deprecated", name)
		}
		if def.EntityType != req.EntityType {
			return nil, entity.NewValidationError(req.Name, "member feature %q has entity type %s, group expects %s", name, def.EntityType, req.EntityType)
		}
	}

	group := &entity.FeatureGroup{
		Id:           uuid.New(),
		Name:         req.Name,
		EntityType:   req.EntityType,
		FeatureNames: req.FeatureNames,
		UsedByModels: req.UsedByModels,
		CreatedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(group)
	if err != nil {
		return nil, fmt.Errorf("marshal group %s: %w", group.Name, err)
	}
	if err := r.store.Set(ctx, groupKeyPrefix+group.Name, data, 0); err != nil {
		return nil, fmt.Errorf("persist group %s: %w", group.Name, err)
	}
	r.cache.Set(groupKeyPrefix+group.Name, group, cache.DefaultExpiration)

	r.log.Info(moduleName, "feature group created", map[string]interface{}{
		"name": group.Name, "members": len(group.FeatureNames),
	})
	r.bus.Publish(events.GroupCreated{
		Name:       group.Name,
		EntityType: string(group.EntityType),
		Members:    group.FeatureNames,
		OccurredAt: time.Now(),
	})
	return group, nil
}

// GetFeatureGroup is a cache-then-store lookup, same discipline as
// definitions.
func (r *registry) GetFeatureGroup(ctx context.Context, name string) (*entity.FeatureGroup, error) {
	if cached, found := r.cache.Get(groupKeyPrefix + name); found {
		return cached.(*entity.FeatureGroup), nil
	}

	data, err := r.store.Get(ctx, groupKeyPrefix+name)
	if errors.Is(err, backing.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", entity.ErrUnknownGroup, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load group %s: %w", name, err)
	}

	var group entity.FeatureGroup
	if err := json.Unmarshal(data, &group); err != nil {
		return nil, fmt.Errorf("decode group %s: %w", name, err)
	}
	r.cache.Set(groupKeyPrefix+name, &group, cache.DefaultExpiration)
	return &group, nil
}

// --- internals ---

func (r *registry) loadDefinition(ctx context.Context, name string) (*entity.FeatureDefinition, error) {
	data, err := r.store.Get(ctx, defKeyPrefix+name)
	if errors.Is(err, backing.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load definition %s: %w", name, err)
	}

	var def entity.FeatureDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode definition %s: %w", name, err)
	}
	r.cache.Set(defKeyPrefix+name, &def, cache.DefaultExpiration)
	return &def, nil
}

func (r *registry) persistDefinition(ctx context.Context, def *entity.FeatureDefinition) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal definition %s: %w", def.Name, err)
	}
	// Definitions never expire.
	if err := r.store.Set(ctx, defKeyPrefix+def.Name, data, 0); err != nil {
		return fmt.Errorf("persist definition %s: %w", def.Name, err)
	}
	r.cache.Set(defKeyPrefix+def.Name, def, cache.DefaultExpiration)
	return nil
}

func (r *registry) loadIndex(ctx context.Context) ([]string, error) {
	data, err := r.store.Get(ctx, indexKey)
	if errors.Is(err, backing.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	return names, nil
}

func (r *registry) addToIndex(ctx context.Context, name string) error {
	names, err := r.loadIndex(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		if n == name {
			return nil
		}
	}
	names = append(names, name)
	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	if err := r.store.Set(ctx, indexKey, data, 0); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	return nil
}

// checkDependencies requires every declared dependency to exist and rejects
// graphs that would close a cycle.
func (r *registry) checkDependencies(ctx context.Context, def *entity.FeatureDefinition) error {
	for _, dep := range def.DependsOn {
		if dep == def.Name {
			return fmt.Errorf("%w: %s depends on itself", entity.ErrDependencyCycle, def.Name)
		}
		depDef, err := r.loadDefinition(ctx, dep)
		if err != nil {
			return err
		}
		if depDef == nil {
			return entity.NewValidationError(def.Name, "dependency %q is not registered", dep)
		}
	}

	// Walk the existing closure from each declared dependency; seeing the new
	// name again means the stored graph already references it.
	seen := map[string]bool{def.Name: true}
	var walk func(name string) error
	walk = func(name string) error {
		depDef, err := r.GetFeatureDefinition(ctx, name)
		if err != nil || depDef == nil {
			return err
		}
		for _, dep := range depDef.DependsOn {
			if seen[dep] {
				return fmt.Errorf("%w: via %s", entity.ErrDependencyCycle, dep)
			}
			seen[dep] = true
			if err := walk(dep); err != nil {
				return err
			}
			delete(seen, dep)
		}
		return nil
	}
	for _, dep := range def.DependsOn {
		if err := walk(dep); err != nil {
			return err
		}
	}
	return nil
}
