// Package warehouse adapts the analytical Postgres warehouse to the
// computation engine's collaborator contract. Each BATCH feature registers
// one aggregation query that yields a single value for a single entity; the
// feature store never authors or reshapes that SQL, it only runs it.
package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/entity"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/pkg/logger"
)

const moduleName = "WAREHOUSE"

// GormWarehouse implements compute.Warehouse over a gorm connection.
type GormWarehouse struct {
	db  *gorm.DB
	log logger.ILogger

	mu            sync.RWMutex
	aggregations  map[string]string
	entityQueries map[entity.EntityType]string
}

func NewGormWarehouse(db *gorm.DB, log logger.ILogger) *GormWarehouse {
	return &GormWarehouse{
		db:            db,
		log:           log,
		aggregations:  make(map[string]string),
		entityQueries: make(map[entity.EntityType]string),
	}
}

// RegisterAggregation binds a feature name to its aggregation SQL. The query
// must return one row with one column and take the entity id as its only
// parameter.
func (w *GormWarehouse) RegisterAggregation(featureName, sql string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.aggregations[featureName] = sql
}

// RegisterEntityQuery binds an entity type to the query that enumerates its
// ids for scheduled batch runs.
func (w *GormWarehouse) RegisterEntityQuery(entityType entity.EntityType, sql string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entityQueries[entityType] = sql
}

// RunAggregation executes the feature's registered query for one entity and
// coerces the scalar result to the feature's declared kind.
func (w *GormWarehouse) RunAggregation(ctx context.Context, def *entity.FeatureDefinition, entityId string) (entity.Value, error) {
	w.mu.RLock()
	sql, ok := w.aggregations[def.Name]
	w.mu.RUnlock()
	if !ok {
		return entity.Value{}, fmt.Errorf("no aggregation registered for feature %s", def.Name)
	}

	var raw interface{}
	row := w.db.WithContext(ctx).Raw(sql, entityId).Row()
	if err := row.Scan(&raw); err != nil {
		return entity.Value{}, fmt.Errorf("aggregation for %s (%s): %w", def.Name, entityId, err)
	}

	return coerce(def, raw)
}

// ListEntities enumerates the entities of a type known to the warehouse.
func (w *GormWarehouse) ListEntities(ctx context.Context, entityType entity.EntityType) ([]string, error) {
	w.mu.RLock()
	sql, ok := w.entityQueries[entityType]
	w.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no entity query registered for %s", entityType)
	}

	var ids []string
	if err := w.db.WithContext(ctx).Raw(sql).Scan(&ids).Error; err != nil {
		return nil, fmt.Errorf("list %s entities: %w", entityType, err)
	}
	return ids, nil
}

// coerce maps a scanned scalar onto the definition's value kind.
func coerce(def *entity.FeatureDefinition, raw interface{}) (entity.Value, error) {
	if raw == nil {
		if def.Nullable {
			return entity.NullValue(def.ValueType), nil
		}
		return def.DefaultValue(), nil
	}

	switch def.ValueType {
	case entity.ValueTypeInt:
		switch v := raw.(type) {
		case int64:
			return entity.IntValue(v), nil
		case float64:
			return entity.IntValue(int64(v)), nil
		}
	case entity.ValueTypeFloat:
		switch v := raw.(type) {
		case float64:
			return entity.FloatValue(v), nil
		case int64:
			return entity.FloatValue(float64(v)), nil
		}
	case entity.ValueTypeBoolean:
		if v, ok := raw.(bool); ok {
			return entity.BoolValue(v), nil
		}
	case entity.ValueTypeString:
		switch v := raw.(type) {
		case string:
			return entity.StringValue(v), nil
		case []byte:
			return entity.StringValue(string(v)), nil
		}
	case entity.ValueTypeJSON:
		// json/jsonb results arrive as bytes (or text, driver-dependent).
		if data, ok := rawBytes(raw); ok {
			var payload map[string]interface{}
			if err := json.Unmarshal(data, &payload); err != nil {
				return entity.Value{}, fmt.Errorf("aggregation for %s returned unreadable json: %w", def.Name, err)
			}
			return entity.JSONValue(payload), nil
		}
	case entity.ValueTypeVector, entity.ValueTypeEmbedding:
		// Queries yield json arrays (to_json over a float array column).
		if data, ok := rawBytes(raw); ok {
			var vec []float64
			if err := json.Unmarshal(data, &vec); err != nil {
				return entity.Value{}, fmt.Errorf("aggregation for %s returned unreadable array: %w", def.Name, err)
			}
			return entity.Value{Kind: def.ValueType, Vec: vec}, nil
		}
	}
	return entity.Value{}, fmt.Errorf("aggregation for %s returned %T, want %s", def.Name, raw, def.ValueType)
}

func rawBytes(raw interface{}) ([]byte, bool) {
	switch v := raw.(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	}
	return nil, false
}
