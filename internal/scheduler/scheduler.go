// Package scheduler periodically triggers batch computation for
// cadence-grouped feature sets. Cadences run on independent timers and a
// still-running cadence skips its next tick instead of overlapping itself.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/compute"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/dto"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/entity"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/pkg/logger"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/registry"
)

const moduleName = "SCHEDULER"

// Cadence names one of the three batch timers.
type Cadence string

const (
	CadenceHourly Cadence = "hourly"
	CadenceDaily  Cadence = "daily"
	CadenceWeekly Cadence = "weekly"
)

// tierForCadence maps a cadence to the freshness tier whose BATCH features it
// recomputes.
var tierForCadence = map[Cadence]entity.FreshnessTier{
	CadenceHourly: entity.TierHourly,
	CadenceDaily:  entity.TierDaily,
	CadenceWeekly: entity.TierWeekly,
}

var defaultIntervals = map[Cadence]time.Duration{
	CadenceHourly: time.Hour,
	CadenceDaily:  24 * time.Hour,
	CadenceWeekly: 7 * 24 * time.Hour,
}

type IScheduler interface {
	RunBatchComputation(ctx context.Context, featureNames []string, entityIds []string) *dto.BatchRunResult
	Start(cadence Cadence)
	Stop(cadence Cadence)
	StartAll()
	StopAll()
}

type cadenceState struct {
	running atomic.Bool // reentrancy guard: skip tick while a run is live
	stop    chan struct{}
	active  bool
}

type scheduler struct {
	engine    compute.IEngine
	registry  registry.IRegistry
	warehouse compute.Warehouse
	log       logger.ILogger
	intervals map[Cadence]time.Duration

	mu     sync.Mutex
	states map[Cadence]*cadenceState
}

func NewScheduler(
	engine compute.IEngine,
	reg registry.IRegistry,
	warehouse compute.Warehouse,
	log logger.ILogger,
) IScheduler {
	return newSchedulerWithIntervals(engine, reg, warehouse, log, defaultIntervals)
}

func newSchedulerWithIntervals(
	engine compute.IEngine,
	reg registry.IRegistry,
	warehouse compute.Warehouse,
	log logger.ILogger,
	intervals map[Cadence]time.Duration,
) *scheduler {
	states := make(map[Cadence]*cadenceState, len(tierForCadence))
	for cadence := range tierForCadence {
		states[cadence] = &cadenceState{}
	}
	return &scheduler{
		engine:    engine,
		registry:  reg,
		warehouse: warehouse,
		log:       log,
		intervals: intervals,
		states:    states,
	}
}

// RunBatchComputation computes every requested BATCH-sourced feature for the
// given entities (or for the warehouse's full entity list when none are
// given). A single feature/entity failure is logged and counted; remaining
// work continues.
func (s *scheduler) RunBatchComputation(ctx context.Context, featureNames []string, entityIds []string) *dto.BatchRunResult {
	result := &dto.BatchRunResult{StartedAt: time.Now().UTC()}

	for _, name := range featureNames {
		def, err := s.registry.GetFeatureDefinition(ctx, name)
		if err != nil || def == nil {
			s.log.Warn(moduleName, "skipping unknown feature in batch run", map[string]interface{}{"feature": name})
			result.Failed++
			continue
		}
		if def.Source != entity.SourceBatch {
			s.log.Warn(moduleName, "skipping non-batch feature in batch run", map[string]interface{}{
				"feature": name, "source": string(def.Source),
			})
			continue
		}

		ids := entityIds
		if len(ids) == 0 {
			ids, err = s.warehouse.ListEntities(ctx, def.EntityType)
			if err != nil {
				s.log.Error(moduleName, "entity enumeration failed", map[string]interface{}{
					"feature": name, "error": err.Error(),
				})
				result.Failed++
				continue
			}
		}

		for _, entityId := range ids {
			if _, err := s.engine.ComputeFeature(ctx, name, entityId); err != nil {
				result.Failed++
				s.log.Error(moduleName, "batch computation failed", map[string]interface{}{
					"feature": name, "entity_id": entityId, "error": err.Error(),
				})
				continue
			}
			result.Computed++
		}
	}

	result.FinishedAt = time.Now().UTC()
	result.WallTime = result.FinishedAt.Sub(result.StartedAt)
	s.log.Info(moduleName, "batch run finished", map[string]interface{}{
		"computed": result.Computed, "failed": result.Failed, "wall_time": result.WallTime.String(),
	})
	return result
}

// Start launches the cadence's timer loop. Starting an already-running
// cadence is a no-op. Cadences never block one another.
func (s *scheduler) Start(cadence Cadence) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[cadence]
	if !ok || state.active {
		return
	}
	state.active = true
	state.stop = make(chan struct{})

	// The loop gets its stop channel by value; a later Stop/Start pair must
	// not hand a still-running loop the replacement channel.
	go s.loop(cadence, state, state.stop)
	s.log.Info(moduleName, "cadence started", map[string]interface{}{
		"cadence": string(cadence), "interval": s.intervals[cadence].String(),
	})
}

// Stop halts the cadence's timer. An in-flight run finishes on its own.
func (s *scheduler) Stop(cadence Cadence) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[cadence]
	if !ok || !state.active {
		return
	}
	close(state.stop)
	state.active = false
	s.log.Info(moduleName, "cadence stopped", map[string]interface{}{"cadence": string(cadence)})
}

func (s *scheduler) StartAll() {
	for cadence := range s.states {
		s.Start(cadence)
	}
}

func (s *scheduler) StopAll() {
	for cadence := range s.states {
		s.Stop(cadence)
	}
}

func (s *scheduler) loop(cadence Cadence, state *cadenceState, stop <-chan struct{}) {
	ticker := time.NewTicker(s.intervals[cadence])
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.tick(cadence, state)
		}
	}
}

func (s *scheduler) tick(cadence Cadence, state *cadenceState) {
	if !state.running.CompareAndSwap(false, true) {
		s.log.Warn(moduleName, "previous run still executing, skipping tick", map[string]interface{}{
			"cadence": string(cadence),
		})
		return
	}
	defer state.running.Store(false)

	ctx := context.Background()
	names, err := s.featuresForCadence(ctx, cadence)
	if err != nil {
		s.log.Error(moduleName, "cadence feature enumeration failed", map[string]interface{}{
			"cadence": string(cadence), "error": err.Error(),
		})
		return
	}
	if len(names) == 0 {
		return
	}
	s.RunBatchComputation(ctx, names, nil)
}

// featuresForCadence enumerates the active BATCH features whose freshness
// tier belongs to this cadence.
func (s *scheduler) featuresForCadence(ctx context.Context, cadence Cadence) ([]string, error) {
	defs, err := s.registry.ListFeatures(ctx, nil)
	if err != nil {
		return nil, err
	}
	tier := tierForCadence[cadence]
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		if def.Source == entity.SourceBatch && def.Freshness == tier {
			names = append(names, def.Name)
		}
	}
	return names, nil
}
