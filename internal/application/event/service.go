package event

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/orderhub/backend/internal/domain/shared"
	"github.com/orderhub/backend/internal/infrastructure/event"
	"go.uber.org/zap"
)

// Service exposes the operator surface over the outbox and dead letter
// stores: inspection, manual retry, manual processing, deletion and stats.
type Service struct {
	outboxRepo     shared.OutboxRepository
	deadLetterRepo shared.DeadLetterRepository
	publisher      shared.MessagePublisher
	registry       *event.Registry
	deadLetters    *event.DeadLetterHandler
	maxRetryCount  int
	logger         *zap.Logger
}

// NewService creates an event operator service
func NewService(
	outboxRepo shared.OutboxRepository,
	deadLetterRepo shared.DeadLetterRepository,
	publisher shared.MessagePublisher,
	registry *event.Registry,
	deadLetters *event.DeadLetterHandler,
	maxRetryCount int,
	logger *zap.Logger,
) *Service {
	return &Service{
		outboxRepo:     outboxRepo,
		deadLetterRepo: deadLetterRepo,
		publisher:      publisher,
		registry:       registry,
		deadLetters:    deadLetters,
		maxRetryCount:  maxRetryCount,
		logger:         logger,
	}
}

// ListOutbox retrieves outbox records matching the filter
func (s *Service) ListOutbox(ctx context.Context, filter shared.OutboxFilter) ([]*shared.OutboxRecord, int64, error) {
	return s.outboxRepo.List(ctx, filter)
}

// OutboxStats summarizes the outbox table
func (s *Service) OutboxStats(ctx context.Context) (*shared.OutboxStats, error) {
	return s.outboxRepo.Stats(ctx, s.maxRetryCount)
}

// RetryOutboxRecord re-arms a record so the publishing loop picks it up again
func (s *Service) RetryOutboxRecord(ctx context.Context, id uuid.UUID) error {
	record, err := s.outboxRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load outbox record: %w", err)
	}
	if record == nil {
		return shared.NewDomainError("NOT_FOUND", "outbox record not found")
	}

	record.ResetForRetry()
	if err := s.outboxRepo.Update(ctx, record); err != nil {
		return fmt.Errorf("failed to reset outbox record: %w", err)
	}

	s.logger.Info("outbox record re-armed for retry",
		zap.String("record_id", id.String()))
	return nil
}

// ProcessOutboxRecord publishes a record immediately, outside the publishing
// loop. The payload must still decode; operators cannot force poison through.
func (s *Service) ProcessOutboxRecord(ctx context.Context, id uuid.UUID) error {
	record, err := s.outboxRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load outbox record: %w", err)
	}
	if record == nil {
		return shared.NewDomainError("NOT_FOUND", "outbox record not found")
	}
	if record.Processed {
		return shared.NewDomainError("INVALID_STATE", "outbox record already processed")
	}

	if _, err := s.registry.Decode(record.EventType, record.Payload); err != nil {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("outbox record payload cannot be decoded: %v", err))
	}

	if err := s.publisher.Publish(ctx, record.EventType, record.Payload); err != nil {
		return fmt.Errorf("failed to publish outbox record: %w", err)
	}

	record.MarkProcessed()
	if err := s.outboxRepo.Update(ctx, record); err != nil {
		return fmt.Errorf("failed to mark outbox record processed: %w", err)
	}

	s.logger.Info("outbox record processed manually",
		zap.String("record_id", id.String()),
		zap.String("event_type", record.EventType),
	)
	return nil
}

// DeleteOutboxRecord removes a record permanently
func (s *Service) DeleteOutboxRecord(ctx context.Context, id uuid.UUID) error {
	record, err := s.outboxRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load outbox record: %w", err)
	}
	if record == nil {
		return shared.NewDomainError("NOT_FOUND", "outbox record not found")
	}

	if err := s.outboxRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete outbox record: %w", err)
	}

	s.logger.Info("outbox record deleted",
		zap.String("record_id", id.String()),
		zap.String("event_type", record.EventType),
	)
	return nil
}

// ListDeadLetters retrieves dead letter records, optionally filtered by status
func (s *Service) ListDeadLetters(ctx context.Context, status *shared.DeadLetterStatus, page, pageSize int) ([]*shared.DeadLetterRecord, int64, error) {
	return s.deadLetterRepo.List(ctx, status, page, pageSize)
}

// RecordDeadLetter stores a broker-rejected message for replay. Inbound
// contract for the DLQ consumer.
func (s *Service) RecordDeadLetter(ctx context.Context, messageContent []byte, errMsg, source string) error {
	if len(messageContent) == 0 {
		return shared.NewDomainError("INVALID_INPUT", "message content is required")
	}
	if source == "" {
		return shared.NewDomainError("INVALID_INPUT", "source is required")
	}
	return s.deadLetters.RecordFailure(ctx, messageContent, errMsg, source)
}
