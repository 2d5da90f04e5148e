package core

import (
	"context"
	"time"

	"bookcore/internal/infra/persistence/memory"
	"bookcore/pkg/domain"
)

// Service exposes the transactional booking operations: directory CRUD,
// availability management, and the appointment engine. All derived views are
// recomputed per call against the service clock.
type Service struct {
	store   PersistentStore
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	nowFn   func() time.Time
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		audit:   noopAudit{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given
// rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// Now returns the service's reference instant.
func (s *Service) Now() time.Time {
	return s.nowFn()
}

// begin starts instrumentation for one operation. The returned finish func
// records the span, metrics, audit entry, and failure log.
func (s *Service) begin(ctx context.Context, op string, entity EntityType) (context.Context, func(entityID string, err error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	return ctx, func(entityID string, err error) {
		span.End(err)
		s.metrics.Observe(ctx, op, err == nil, time.Since(start))
		status := AuditStatusSuccess
		if err != nil {
			status = AuditStatusError
			s.logger.Error("operation failed", "operation", op, "entity_id", entityID, "error", err)
		}
		s.audit.Record(ctx, AuditEntry{
			Operation: op,
			Status:    status,
			Entity:    entity,
			EntityID:  entityID,
			At:        s.nowFn(),
		})
	}
}

// warnOnViolations logs non-blocking rule findings attached to a commit.
func (s *Service) warnOnViolations(op string, res Result) {
	for _, v := range res.Violations {
		if v.Severity == domain.SeverityBlock {
			continue
		}
		s.logger.Warn("rule violation", "operation", op, "rule", v.Rule, "message", v.Message)
	}
}
