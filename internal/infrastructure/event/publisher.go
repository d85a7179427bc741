package event

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/orderhub/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// globalPassLockKey serializes whole publish passes across instances
const globalPassLockKey = "outbox:publisher:lock"

// PublisherConfig tunes the outbox publish loop
type PublisherConfig struct {
	PollInterval   time.Duration
	BatchSize      int
	MaxRetryCount  int
	AlertThreshold int
	GlobalLockTTL  time.Duration
	RecordLockTTL  time.Duration
}

// DefaultPublisherConfig returns the production defaults
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		PollInterval:   5 * time.Second,
		BatchSize:      100,
		MaxRetryCount:  5,
		AlertThreshold: 3,
		GlobalLockTTL:  30 * time.Second,
		RecordLockTTL:  5 * time.Minute,
	}
}

// NewInstanceID builds a process-unique owner identity for lock values
func NewInstanceID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%s", hostname, uuid.New().String())
}

// OutboxPublisher drains pending outbox records to the message broker in the
// background. Passes are serialized across instances by a global lock, and
// each record is additionally guarded by a per-record lock so a pass whose
// global lock expired mid-flight cannot double-publish against a newer pass.
type OutboxPublisher struct {
	repo       shared.OutboxRepository
	locks      shared.LockService
	publisher  shared.MessagePublisher
	registry   *Registry
	notifier   shared.AlertNotifier
	cfg        PublisherConfig
	instanceID string
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutboxPublisher creates an outbox publisher
func NewOutboxPublisher(
	repo shared.OutboxRepository,
	locks shared.LockService,
	publisher shared.MessagePublisher,
	registry *Registry,
	notifier shared.AlertNotifier,
	cfg PublisherConfig,
	instanceID string,
	logger *zap.Logger,
) *OutboxPublisher {
	return &OutboxPublisher{
		repo:       repo,
		locks:      locks,
		publisher:  publisher,
		registry:   registry,
		notifier:   notifier,
		cfg:        cfg,
		instanceID: instanceID,
		logger:     logger,
	}
}

// Start begins the background publish loop
func (p *OutboxPublisher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.run(ctx)

	p.logger.Info("outbox publisher started",
		zap.String("instance_id", p.instanceID),
		zap.Duration("poll_interval", p.cfg.PollInterval),
		zap.Int("batch_size", p.cfg.BatchSize),
	)
}

// Stop signals the loop to exit and waits for the in-flight pass to finish
func (p *OutboxPublisher) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("outbox publisher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxPublisher) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.RunPass(ctx)
		}
	}
}

// RunPass executes one publish pass. When the global lock is held elsewhere,
// or the lock service itself fails, the pass is skipped without touching any
// record: a missed pass is harmless, a double-published batch is not.
func (p *OutboxPublisher) RunPass(ctx context.Context) {
	acquired, err := p.locks.TryAcquire(ctx, globalPassLockKey, p.instanceID, p.cfg.GlobalLockTTL)
	if err != nil {
		p.logger.Warn("lock service unavailable, skipping publish pass", zap.Error(err))
		return
	}
	if !acquired {
		p.logger.Debug("publish pass already running on another instance")
		return
	}
	defer func() {
		if err := p.locks.Release(ctx, globalPassLockKey, p.instanceID); err != nil {
			p.logger.Warn("failed to release publish pass lock", zap.Error(err))
		}
	}()

	records, err := p.repo.FindEligible(ctx, p.cfg.MaxRetryCount, p.cfg.BatchSize)
	if err != nil {
		p.logger.Error("failed to load pending outbox records", zap.Error(err))
		return
	}
	if len(records) == 0 {
		return
	}

	p.logger.Debug("processing outbox batch", zap.Int("count", len(records)))

	for _, record := range records {
		select {
		case <-ctx.Done():
			return
		default:
		}
		p.processRecord(ctx, record)
	}
}

func (p *OutboxPublisher) processRecord(ctx context.Context, record *shared.OutboxRecord) {
	lockKey := recordLockKey(record.ID)

	acquired, err := p.locks.TryAcquire(ctx, lockKey, p.instanceID, p.cfg.RecordLockTTL)
	if err != nil {
		p.logger.Warn("lock service unavailable, skipping record",
			zap.String("record_id", record.ID.String()),
			zap.Error(err),
		)
		return
	}
	if !acquired {
		p.logger.Debug("outbox record in flight elsewhere, skipping",
			zap.String("record_id", record.ID.String()))
		return
	}
	defer func() {
		if err := p.locks.Release(ctx, lockKey, p.instanceID); err != nil {
			p.logger.Warn("failed to release record lock",
				zap.String("record_id", record.ID.String()),
				zap.Error(err),
			)
		}
	}()

	// A record whose payload can never be decoded will never publish, so it
	// must not burn retries or page anyone. Park it as processed and move on.
	if _, err := p.registry.Decode(record.EventType, record.Payload); err != nil {
		p.logger.Error("dropping unprocessable outbox record",
			zap.String("record_id", record.ID.String()),
			zap.String("event_type", record.EventType),
			zap.Error(err),
		)
		record.Processed = true // parked, not delivered: ProcessedAt stays nil
		if err := p.repo.Update(ctx, record); err != nil {
			p.logger.Error("failed to park unprocessable outbox record",
				zap.String("record_id", record.ID.String()),
				zap.Error(err),
			)
		}
		return
	}

	if err := p.publisher.Publish(ctx, record.EventType, record.Payload); err != nil {
		p.handlePublishFailure(ctx, record, err)
		return
	}

	record.MarkProcessed()
	if err := p.repo.Update(ctx, record); err != nil {
		p.logger.Error("failed to mark outbox record processed",
			zap.String("record_id", record.ID.String()),
			zap.Error(err),
		)
		return
	}

	p.logger.Debug("outbox record published",
		zap.String("record_id", record.ID.String()),
		zap.String("event_type", record.EventType),
	)
}

func (p *OutboxPublisher) handlePublishFailure(ctx context.Context, record *shared.OutboxRecord, pubErr error) {
	record.MarkFailed(p.cfg.MaxRetryCount)

	if err := p.repo.Update(ctx, record); err != nil {
		p.logger.Error("failed to persist outbox retry state",
			zap.String("record_id", record.ID.String()),
			zap.Error(err),
		)
		return
	}

	p.logger.Warn("failed to publish outbox record",
		zap.String("record_id", record.ID.String()),
		zap.String("event_type", record.EventType),
		zap.Int("retry_count", record.RetryCount),
		zap.Bool("exhausted", record.Processed),
		zap.Error(pubErr),
	)

	if record.RetryCount >= p.cfg.AlertThreshold {
		p.notifier.NotifyLow(ctx, record.EventType, pubErr.Error(), record.ID.String())
	}
	if record.RetryCount >= p.cfg.MaxRetryCount-1 {
		p.notifier.NotifyHigh(ctx, record.EventType, pubErr.Error(), record.ID.String())
	}
}

func recordLockKey(id uuid.UUID) string {
	return "outbox:record:" + id.String()
}
