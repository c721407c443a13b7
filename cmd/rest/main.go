package main

import (
	"context"
	"log"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/bootstrap"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/config"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/server"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/tracer"
)

func main() {
	// 0. Tracing (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer container.Logger.Sync()

	ctx := context.Background()

	// 3. Start Background Services
	if err := container.AuditService.Start(ctx); err != nil {
		log.Printf("Background Audit Error: %v", err)
	}

	if container.StreamConsumer != nil {
		go func() {
			log.Println("Background: Starting stream ingestion...")
			if err := container.StreamConsumer.Run(ctx); err != nil {
				log.Printf("Background Ingestion Error: %v", err)
			}
		}()
	}

	if cfg.App.SchedulerEnabled {
		container.Scheduler.StartAll()
		defer container.Scheduler.StopAll()
	}

	// 4. Run Server
	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}
