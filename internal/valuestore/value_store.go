// Package valuestore is the read/write layer over the backing store. It
// derives TTLs from freshness tiers, validates writes against the registry,
// and assembles read-time vectors with staleness metadata.
package valuestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/backing"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/dto"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/entity"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/pkg/logger"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/registry"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/pkg/events"
)

const moduleName = "VALUE_STORE"

type IValueStore interface {
	SetFeatureValue(ctx context.Context, req *dto.SetFeatureValueRequest) error
	GetFeatures(ctx context.Context, req *dto.GetFeaturesRequest) (*dto.GetFeaturesResponse, error)
}

type valueStore struct {
	registry registry.IRegistry
	store    backing.Store
	bus      events.Bus
	log      logger.ILogger
	now      func() time.Time
}

func NewValueStore(reg registry.IRegistry, store backing.Store, bus events.Bus, log logger.ILogger) IValueStore {
	return &valueStore{
		registry: reg,
		store:    store,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

// valueKey builds the backing-store key for one observation. Writes to the
// same key are last-write-wins; there is no cross-feature transaction.
func valueKey(entityType entity.EntityType, entityId, featureName string) string {
	return fmt.Sprintf("feature:value:%s:%s:%s", entityType, entityId, featureName)
}

// SetFeatureValue validates and persists one value. Unlike reads, this path
// requires a definite target: an unregistered name is an error. Write
// failures propagate to the caller; they are never swallowed.
func (s *valueStore) SetFeatureValue(ctx context.Context, req *dto.SetFeatureValueRequest) error {
	def, err := s.registry.GetFeatureDefinition(ctx, req.FeatureName)
	if err != nil {
		return err
	}
	if def == nil {
		return fmt.Errorf("%w: %s", entity.ErrUnknownFeature, req.FeatureName)
	}

	if err := entity.ValidateValue(def, req.Value); err != nil {
		return err
	}

	ttl := def.Freshness.TTL()
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}

	stored := entity.StoredValue{
		Value:       req.Value,
		ComputedAt:  s.now().UTC(),
		Version:     def.Version,
		SourceEvent: req.SourceEvent,
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal value for %s: %w", req.FeatureName, err)
	}

	key := valueKey(def.EntityType, req.EntityId, def.Name)
	if err := s.store.Set(ctx, key, data, ttl); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}

	s.bus.Publish(events.ValueWritten{
		FeatureName: def.Name,
		EntityType:  string(def.EntityType),
		EntityId:    req.EntityId,
		SourceEvent: req.SourceEvent,
		OccurredAt:  s.now(),
	})
	return nil
}

// GetFeatures assembles one vector per requested entity. Every requested,
// registered feature appears in each vector, live or default; unknown and
// inactive names land in MissingFeatures instead of failing the call. Only a
// malformed request errors.
func (s *valueStore) GetFeatures(ctx context.Context, req *dto.GetFeaturesRequest) (*dto.GetFeaturesResponse, error) {
	start := s.now()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	missing := newNameSet()
	stale := newNameSet()

	// Resolve definitions once for the whole request.
	defs := make([]*entity.FeatureDefinition, 0, len(req.FeatureNames))
	for _, name := range req.FeatureNames {
		def, err := s.registry.GetFeatureDefinition(ctx, name)
		if err != nil {
			// Registry trouble on the read path degrades to a miss.
			s.log.Warn(moduleName, "definition lookup failed, reporting missing", map[string]interface{}{
				"feature": name, "error": err.Error(),
			})
			missing.add(name)
			continue
		}
		if def == nil || !def.IsActive || def.EntityType != req.EntityType {
			missing.add(name)
			continue
		}
		defs = append(defs, def)
	}

	vectors := make([]*entity.FeatureVector, 0, len(req.EntityIds))
	for _, entityId := range req.EntityIds {
		vectors = append(vectors, s.assembleVector(ctx, req, entityId, defs, missing, stale))
	}

	return &dto.GetFeaturesResponse{
		Vectors:         vectors,
		MissingFeatures: missing.values(),
		StaleFeatures:   stale.values(),
		LatencyMs:       float64(s.now().Sub(start).Microseconds()) / 1000.0,
	}, nil
}

func (s *valueStore) assembleVector(
	ctx context.Context,
	req *dto.GetFeaturesRequest,
	entityId string,
	defs []*entity.FeatureDefinition,
	missing, stale *nameSet,
) *entity.FeatureVector {
	vector := &entity.FeatureVector{
		EntityType: req.EntityType,
		EntityId:   entityId,
		Features:   make(map[string]entity.Value, len(defs)),
		Metadata: entity.VectorMetadata{
			ComputedAt:       make(map[string]time.Time, len(defs)),
			Version:          make(map[string]int, len(defs)),
			StalenessSeconds: make(map[string]float64, len(defs)),
		},
	}

	keys := make([]string, len(defs))
	for i, def := range defs {
		keys[i] = valueKey(req.EntityType, entityId, def.Name)
	}

	var hits map[string][]byte
	if ctx.Err() != nil {
		// Deadline already spent: report everything unresolved rather than
		// stalling a latency-sensitive caller.
		for _, def := range defs {
			missing.add(def.Name)
		}
		hits = map[string][]byte{}
	} else if raw, err := s.store.MultiGet(ctx, keys); err != nil {
		// Backing-store read failures are treated as misses, never as call
		// failures.
		s.log.Warn(moduleName, "multi-get failed, serving defaults", map[string]interface{}{
			"entity_id": entityId, "error": err.Error(),
		})
		hits = map[string][]byte{}
	} else {
		hits = raw
	}

	now := s.now()
	for i, def := range defs {
		data, ok := hits[keys[i]]
		if !ok {
			s.applyDefault(vector, def)
			continue
		}

		var stored entity.StoredValue
		if err := json.Unmarshal(data, &stored); err != nil {
			s.log.Warn(moduleName, "unreadable stored value, serving default", map[string]interface{}{
				"key": keys[i], "error": err.Error(),
			})
			s.applyDefault(vector, def)
			continue
		}

		staleness := now.Sub(stored.ComputedAt).Seconds()
		if staleness < 0 {
			staleness = 0
		}
		if req.MaxStalenessSeconds != nil && staleness > *req.MaxStalenessSeconds && !req.AllowStale {
			stale.add(def.Name)
		}

		vector.Features[def.Name] = stored.Value
		vector.Metadata.ComputedAt[def.Name] = stored.ComputedAt
		vector.Metadata.Version[def.Name] = stored.Version
		vector.Metadata.StalenessSeconds[def.Name] = staleness
	}

	return vector
}

// applyDefault substitutes the definition's default with staleness 0. A
// defaulted feature is present in the vector, not missing.
func (s *valueStore) applyDefault(vector *entity.FeatureVector, def *entity.FeatureDefinition) {
	vector.Features[def.Name] = def.DefaultValue()
	vector.Metadata.Version[def.Name] = def.Version
	vector.Metadata.StalenessSeconds[def.Name] = 0
}

func validateRequest(req *dto.GetFeaturesRequest) error {
	known := false
	for _, et := range entity.KnownEntityTypes {
		if et == req.EntityType {
			known = true
			break
		}
	}
	if !known {
		return entity.NewValidationError("request", "unknown entity type %q", req.EntityType)
	}
	if len(req.EntityIds) == 0 {
		return entity.NewValidationError("request", "entity_ids must not be empty")
	}
	if len(req.FeatureNames) == 0 {
		return entity.NewValidationError("request", "feature_names must not be empty")
	}
	return nil
}

// nameSet is an insertion-ordered string set for the missing/stale lists.
type nameSet struct {
	seen  map[string]bool
	order []string
}

func newNameSet() *nameSet {
	return &nameSet{seen: map[string]bool{}}
}

func (s *nameSet) add(name string) {
	if !s.seen[name] {
		s.seen[name] = true
		s.order = append(s.order, name)
	}
}

func (s *nameSet) values() []string {
	if s.order == nil {
		return []string{}
	}
	return s.order
}
