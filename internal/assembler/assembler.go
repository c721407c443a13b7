// Package assembler flattens retrieved feature vectors into fixed-order
// numeric arrays for direct model consumption. This is the single integration
// surface used by the downstream scoring services.
package assembler

import (
	"context"
	"time"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/dto"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/entity"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/pkg/logger"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/registry"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/valuestore"
)

const moduleName = "ASSEMBLER"

type IAssembler interface {
	GetFeatureVectorForModel(ctx context.Context, req *dto.ModelVectorRequest) (*dto.ModelVectorResponse, error)
}

type assembler struct {
	registry registry.IRegistry
	values   valuestore.IValueStore
	log      logger.ILogger
}

func NewAssembler(reg registry.IRegistry, values valuestore.IValueStore, log logger.ILogger) IAssembler {
	return &assembler{registry: reg, values: values, log: log}
}

// GetFeatureVectorForModel retrieves the requested features and flattens them
// in the exact requested order: one slot per scalar, VectorWidth slots per
// VECTOR/EMBEDDING (zero-filled when absent), BOOLEAN as 0/1, STRING as a
// placeholder scalar. A name with no definition at all contributes a single
// zero.
func (a *assembler) GetFeatureVectorForModel(ctx context.Context, req *dto.ModelVectorRequest) (*dto.ModelVectorResponse, error) {
	start := time.Now()

	res, err := a.values.GetFeatures(ctx, &dto.GetFeaturesRequest{
		EntityType:   req.EntityType,
		EntityIds:    []string{req.EntityId},
		FeatureNames: req.FeatureNames,
	})
	if err != nil {
		return nil, err
	}

	var features map[string]entity.Value
	if len(res.Vectors) > 0 {
		features = res.Vectors[0].Features
	}

	out := make([]float64, 0, len(req.FeatureNames))
	for _, name := range req.FeatureNames {
		def, err := a.registry.GetFeatureDefinition(ctx, name)
		if err != nil || def == nil {
			if err != nil {
				a.log.Warn(moduleName, "definition lookup failed during assembly", map[string]interface{}{
					"model_id": req.ModelId, "feature": name, "error": err.Error(),
				})
			}
			out = append(out, 0)
			continue
		}

		value, ok := features[name]
		if !ok {
			value = def.DefaultValue()
		}
		out = appendFlattened(out, def, value)
	}

	return &dto.ModelVectorResponse{
		ModelId:   req.ModelId,
		EntityId:  req.EntityId,
		Vector:    out,
		LatencyMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}

func appendFlattened(out []float64, def *entity.FeatureDefinition, v entity.Value) []float64 {
	switch def.ValueType {
	case entity.ValueTypeVector, entity.ValueTypeEmbedding:
		width := def.Width()
		for i := 0; i < width; i++ {
			if i < len(v.Vec) && !v.Null {
				out = append(out, v.Vec[i])
			} else {
				out = append(out, 0)
			}
		}
		return out
	default:
		return append(out, v.AsFloat())
	}
}
