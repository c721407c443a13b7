// FILE: internal/service/audit_service.go
package service

import (
	"context"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/pkg/logger"
	"github.com/ubi-africa/ubi-monorepo/services/feature-store/pkg/events"
)

const auditModule = "AUDIT"

// IAuditService records every feature lifecycle and write notification.
// It runs entirely off the write path: publishers never wait on it.
type IAuditService interface {
	Start(ctx context.Context) error
}

type auditService struct {
	bus events.Bus
	log logger.ILogger
}

func NewAuditService(bus events.Bus, log logger.ILogger) IAuditService {
	return &auditService{bus: bus, log: log}
}

func (s *auditService) Start(ctx context.Context) error {
	topics := []string{
		events.TypeFeatureCreated,
		events.TypeFeatureDeprecated,
		events.TypeGroupCreated,
		events.TypeValueWritten,
	}
	for _, topic := range topics {
		if err := s.bus.Subscribe(ctx, topic, s.record); err != nil {
			return err
		}
	}
	return nil
}

func (s *auditService) record(_ context.Context, event events.Event) error {
	s.log.Info(auditModule, event.EventType(), event.Payload())
	return nil
}
