package event

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/orderhub/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DeadLetterConfig tunes the replay loop
type DeadLetterConfig struct {
	ReplayInterval time.Duration
	ReplayCeiling  int
}

// DefaultDeadLetterConfig returns the production defaults
func DefaultDeadLetterConfig() DeadLetterConfig {
	return DeadLetterConfig{
		ReplayInterval: 5 * time.Minute,
		ReplayCeiling:  3,
	}
}

// DeadLetterHandler captures messages the broker could not deliver and
// periodically replays the pending ones. Records that exhaust the replay
// ceiling become terminal and require operator intervention.
type DeadLetterHandler struct {
	repo      shared.DeadLetterRepository
	publisher shared.MessagePublisher
	registry  *Registry
	notifier  shared.AlertNotifier
	cfg       DeadLetterConfig
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDeadLetterHandler creates a dead letter handler
func NewDeadLetterHandler(
	repo shared.DeadLetterRepository,
	publisher shared.MessagePublisher,
	registry *Registry,
	notifier shared.AlertNotifier,
	cfg DeadLetterConfig,
	logger *zap.Logger,
) *DeadLetterHandler {
	return &DeadLetterHandler{
		repo:      repo,
		publisher: publisher,
		registry:  registry,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
	}
}

// RecordFailure stores a failed message for later replay and raises a
// low-severity alert so the failure is visible before the first replay runs
func (h *DeadLetterHandler) RecordFailure(ctx context.Context, messageContent []byte, errMsg, source string) error {
	record := shared.NewDeadLetterRecord(messageContent, errMsg, source)

	if err := h.repo.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to save dead letter record: %w", err)
	}

	h.logger.Warn("message moved to dead letter store",
		zap.Uint("record_id", record.ID),
		zap.String("source", source),
		zap.String("error", errMsg),
	)

	h.notifier.NotifyLow(ctx, source, errMsg, deadLetterCorrelationID(record))
	return nil
}

// Start begins the background replay loop
func (h *DeadLetterHandler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel

	h.wg.Add(1)
	go h.run(ctx)

	h.logger.Info("dead letter replay loop started",
		zap.Duration("replay_interval", h.cfg.ReplayInterval),
		zap.Int("replay_ceiling", h.cfg.ReplayCeiling),
	)
}

// Stop signals the loop to exit and waits for the in-flight replay to finish
func (h *DeadLetterHandler) Stop(ctx context.Context) error {
	if h.cancel != nil {
		h.cancel()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("dead letter replay loop stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *DeadLetterHandler) run(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.cfg.ReplayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.ReplayPending(ctx); err != nil {
				h.logger.Error("dead letter replay pass failed", zap.Error(err))
			}
		}
	}
}

// ReplayPending attempts to republish every pending record below the replay
// ceiling, oldest first
func (h *DeadLetterHandler) ReplayPending(ctx context.Context) error {
	records, err := h.repo.FindReplayable(ctx, h.cfg.ReplayCeiling)
	if err != nil {
		return fmt.Errorf("failed to load replayable dead letters: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	h.logger.Info("replaying dead letter records", zap.Int("count", len(records)))

	for _, record := range records {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		h.replayRecord(ctx, record)
	}

	return nil
}

func (h *DeadLetterHandler) replayRecord(ctx context.Context, record *shared.DeadLetterRecord) {
	// An unrecognized source tag is a configuration gap, not a transient
	// failure. Skipping without an attempt keeps the record replayable once
	// the tag is registered.
	if !h.registry.IsRegistered(record.Source) {
		h.logger.Warn("unknown dead letter source, skipping replay",
			zap.Uint("record_id", record.ID),
			zap.String("source", record.Source),
		)
		return
	}

	if _, err := h.registry.Decode(record.Source, record.MessageContent); err != nil {
		h.handleReplayFailure(ctx, record, err)
		return
	}

	if err := h.publisher.Publish(ctx, record.Source, record.MessageContent); err != nil {
		h.handleReplayFailure(ctx, record, err)
		return
	}

	record.MarkProcessed()
	if err := h.repo.Update(ctx, record); err != nil {
		h.logger.Error("failed to mark dead letter record processed",
			zap.Uint("record_id", record.ID),
			zap.Error(err),
		)
		return
	}

	h.logger.Info("dead letter record replayed",
		zap.Uint("record_id", record.ID),
		zap.String("source", record.Source),
	)
}

func (h *DeadLetterHandler) handleReplayFailure(ctx context.Context, record *shared.DeadLetterRecord, replayErr error) {
	record.MarkRetryFailed(h.cfg.ReplayCeiling)

	if err := h.repo.Update(ctx, record); err != nil {
		h.logger.Error("failed to persist dead letter retry state",
			zap.Uint("record_id", record.ID),
			zap.Error(err),
		)
		return
	}

	h.logger.Warn("dead letter replay attempt failed",
		zap.Uint("record_id", record.ID),
		zap.String("source", record.Source),
		zap.Int("retry_count", record.RetryCount),
		zap.Bool("terminal", record.IsFailed()),
		zap.Error(replayErr),
	)

	if record.IsFailed() {
		h.notifier.NotifyLow(ctx, record.Source,
			fmt.Sprintf("dead letter replay exhausted after %d attempts: %s", record.RetryCount, replayErr.Error()),
			deadLetterCorrelationID(record),
		)
	}
}

func deadLetterCorrelationID(record *shared.DeadLetterRecord) string {
	return strconv.FormatUint(uint64(record.ID), 10)
}
