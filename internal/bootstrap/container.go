package bootstrap

import (
	"context"
	"log"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/assembler"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/backing"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/compute"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/config"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/controller"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/pkg/logger"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/registry"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/scheduler"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/service"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/stream"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/valuestore"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/pkg/database"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/pkg/events"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/pkg/external"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/pkg/warehouse"
)

// Container wires the store together once at process start. The registry is
// built first and passed by reference to every component that needs it.
type Container struct {
	Logger logger.ILogger
	Bus    events.Bus

	Registry   registry.IRegistry
	ValueStore valuestore.IValueStore
	Engine     compute.IEngine
	Scheduler  scheduler.IScheduler

	FeatureController controller.IFeatureController
	ServingController controller.IServingController
	BatchController   controller.IBatchController

	StreamConsumer *stream.Consumer
	AuditService   service.IAuditService
}

func NewContainer(cfg *config.Config) *Container {
	ctx := context.Background()

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// Event bus for lifecycle/write notifications.
	bus := events.NewWatermillBus(sysLogger)

	// Backing store: Redis in deployment, memory when no Redis is configured
	// (local development, CI).
	var store backing.Store
	redisStore, err := backing.NewRedisStoreFromURL(ctx, cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Redis unavailable (%v), falling back to in-memory backing store", err)
		store = backing.NewMemoryStore()
	} else {
		store = redisStore
	}

	reg := registry.NewRegistry(store, bus, sysLogger)
	if err := registry.LoadBuiltins(ctx, reg); err != nil {
		log.Fatalf("[FATAL] Failed to load built-in features: %v", err)
	}

	values := valuestore.NewValueStore(reg, store, bus, sysLogger)

	// Analytical warehouse collaborator. Without a DSN the BATCH path is
	// disabled; stream/request-time/external features still serve.
	var wh compute.Warehouse
	if cfg.Warehouse.DSN != "" {
		db, err := database.NewGormDBFromDSN(cfg.Warehouse.DSN)
		if err != nil {
			log.Fatalf("[FATAL] Failed to connect to warehouse: %v", err)
		}
		gw := warehouse.NewGormWarehouse(db, sysLogger)
		warehouse.RegisterBuiltins(gw)
		wh = gw
	} else {
		log.Printf("[WARN] No warehouse DSN configured, batch computation disabled")
		wh = warehouse.Disabled{}
	}

	traffic := external.NewTrafficClient(cfg.App.TrafficServiceURL)

	engine := compute.NewEngine(reg, values, wh, traffic, sysLogger)
	compute.RegisterBuiltinRequestTimeFuncs(engine)

	sched := scheduler.NewScheduler(engine, reg, wh, sysLogger)

	var consumer *stream.Consumer
	consumer, err = stream.NewConsumer(cfg.App.NatsURL, engine, sysLogger)
	if err != nil {
		log.Printf("[WARN] Failed to connect stream consumer: %v", err)
		consumer = nil
	}

	audit := service.NewAuditService(bus, sysLogger)

	return &Container{
		Logger:            sysLogger,
		Bus:               bus,
		Registry:          reg,
		ValueStore:        values,
		Engine:            engine,
		Scheduler:         sched,
		FeatureController: controller.NewFeatureController(reg),
		ServingController: controller.NewServingController(values, assembler.NewAssembler(reg, values, sysLogger)),
		BatchController:   controller.NewBatchController(sched),
		StreamConsumer:    consumer,
		AuditService:      audit,
	}
}
