package event

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/orderhub/backend/internal/domain/order"
	"github.com/orderhub/backend/internal/domain/shared"
	infraevent "github.com/orderhub/backend/internal/infrastructure/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeOutboxRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*shared.OutboxRecord
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{records: make(map[uuid.UUID]*shared.OutboxRecord)}
}

func (r *fakeOutboxRepo) Save(ctx context.Context, record *shared.OutboxRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
	return nil
}

func (r *fakeOutboxRepo) FindEligible(ctx context.Context, maxRetryCount, limit int) ([]*shared.OutboxRecord, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[id], nil
}

func (r *fakeOutboxRepo) Update(ctx context.Context, record *shared.OutboxRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
	return nil
}

func (r *fakeOutboxRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
	return nil
}

func (r *fakeOutboxRepo) List(ctx context.Context, filter shared.OutboxFilter) ([]*shared.OutboxRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*shared.OutboxRecord
	for _, rec := range r.records {
		if filter.Processed != nil && rec.Processed != *filter.Processed {
			continue
		}
		if filter.MinRetryCount != nil && rec.RetryCount < *filter.MinRetryCount {
			continue
		}
		result = append(result, rec)
	}
	return result, int64(len(result)), nil
}

func (r *fakeOutboxRepo) Stats(ctx context.Context, maxRetryCount int) (*shared.OutboxStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &shared.OutboxStats{}
	for _, rec := range r.records {
		if rec.Processed {
			stats.Processed++
		} else {
			stats.Pending++
		}
		if rec.RetryCount >= maxRetryCount {
			stats.Exhausted++
		}
	}
	return stats, nil
}

type fakeDeadLetterRepo struct {
	mu      sync.Mutex
	nextID  uint
	records []*shared.DeadLetterRecord
}

func (r *fakeDeadLetterRepo) Save(ctx context.Context, record *shared.DeadLetterRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	record.ID = r.nextID
	r.records = append(r.records, record)
	return nil
}

func (r *fakeDeadLetterRepo) FindReplayable(ctx context.Context, replayCeiling int) ([]*shared.DeadLetterRecord, error) {
	return nil, nil
}

func (r *fakeDeadLetterRepo) Update(ctx context.Context, record *shared.DeadLetterRecord) error {
	return nil
}

func (r *fakeDeadLetterRepo) List(ctx context.Context, status *shared.DeadLetterStatus, page, pageSize int) ([]*shared.DeadLetterRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*shared.DeadLetterRecord
	for _, rec := range r.records {
		if status != nil && rec.Status != *status {
			continue
		}
		result = append(result, rec)
	}
	return result, int64(len(result)), nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []string
	failWith  error
}

func (p *fakePublisher) Publish(ctx context.Context, eventType string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	p.published = append(p.published, eventType)
	return nil
}

type fakeNotifier struct {
	mu  sync.Mutex
	low int
}

func (n *fakeNotifier) NotifyLow(ctx context.Context, category, errMsg, correlationID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.low++
}

func (n *fakeNotifier) NotifyHigh(ctx context.Context, category, errMsg, correlationID string) {}

func setupService(t *testing.T) (*Service, *fakeOutboxRepo, *fakeDeadLetterRepo, *fakePublisher, *fakeNotifier) {
	t.Helper()

	outboxRepo := newFakeOutboxRepo()
	deadLetterRepo := &fakeDeadLetterRepo{}
	publisher := &fakePublisher{}
	notifier := &fakeNotifier{}
	registry := infraevent.NewOrderEventRegistry()

	handler := infraevent.NewDeadLetterHandler(
		deadLetterRepo, publisher, registry, notifier,
		infraevent.DeadLetterConfig{ReplayInterval: time.Minute, ReplayCeiling: 3},
		zap.NewNop(),
	)

	svc := NewService(outboxRepo, deadLetterRepo, publisher, registry, handler, 5, zap.NewNop())
	return svc, outboxRepo, deadLetterRepo, publisher, notifier
}

func pendingRecord(t *testing.T) *shared.OutboxRecord {
	t.Helper()
	payload, err := json.Marshal(order.CreatedEvent{CorrelationID: uuid.New(), OrderID: uuid.New()})
	require.NoError(t, err)
	return shared.NewOutboxRecord(order.EventTypeOrderCreated, payload)
}

func TestRetryOutboxRecordResetsState(t *testing.T) {
	svc, repo, _, _, _ := setupService(t)

	ctx := context.Background()
	rec := pendingRecord(t)
	rec.RetryCount = 5
	rec.MarkProcessed()
	require.NoError(t, repo.Save(ctx, rec))

	require.NoError(t, svc.RetryOutboxRecord(ctx, rec.ID))

	got, _ := repo.FindByID(ctx, rec.ID)
	assert.False(t, got.Processed)
	assert.Nil(t, got.ProcessedAt)
	assert.Equal(t, 0, got.RetryCount)
}

func TestRetryOutboxRecordNotFound(t *testing.T) {
	svc, _, _, _, _ := setupService(t)

	err := svc.RetryOutboxRecord(context.Background(), uuid.New())
	require.Error(t, err)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestProcessOutboxRecordPublishesAndMarks(t *testing.T) {
	svc, repo, _, publisher, _ := setupService(t)

	ctx := context.Background()
	rec := pendingRecord(t)
	require.NoError(t, repo.Save(ctx, rec))

	require.NoError(t, svc.ProcessOutboxRecord(ctx, rec.ID))

	got, _ := repo.FindByID(ctx, rec.ID)
	assert.True(t, got.Processed)
	assert.NotNil(t, got.ProcessedAt)
	assert.Equal(t, []string{order.EventTypeOrderCreated}, publisher.published)
}

func TestProcessOutboxRecordRejectsAlreadyProcessed(t *testing.T) {
	svc, repo, _, publisher, _ := setupService(t)

	ctx := context.Background()
	rec := pendingRecord(t)
	rec.MarkProcessed()
	require.NoError(t, repo.Save(ctx, rec))

	err := svc.ProcessOutboxRecord(ctx, rec.ID)
	require.Error(t, err)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)
	assert.Empty(t, publisher.published)
}

func TestProcessOutboxRecordRejectsUndecodablePayload(t *testing.T) {
	svc, repo, _, publisher, _ := setupService(t)

	ctx := context.Background()
	rec := shared.NewOutboxRecord("RetiredEventType", []byte(`{}`))
	require.NoError(t, repo.Save(ctx, rec))

	err := svc.ProcessOutboxRecord(ctx, rec.ID)
	require.Error(t, err)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)
	assert.Empty(t, publisher.published)
}

func TestProcessOutboxRecordLeavesStateOnPublishFailure(t *testing.T) {
	svc, repo, _, publisher, _ := setupService(t)
	publisher.failWith = errors.New("broker down")

	ctx := context.Background()
	rec := pendingRecord(t)
	require.NoError(t, repo.Save(ctx, rec))

	err := svc.ProcessOutboxRecord(ctx, rec.ID)
	require.Error(t, err)

	got, _ := repo.FindByID(ctx, rec.ID)
	assert.False(t, got.Processed)
}

func TestDeleteOutboxRecord(t *testing.T) {
	svc, repo, _, _, _ := setupService(t)

	ctx := context.Background()
	rec := pendingRecord(t)
	require.NoError(t, repo.Save(ctx, rec))

	require.NoError(t, svc.DeleteOutboxRecord(ctx, rec.ID))

	got, _ := repo.FindByID(ctx, rec.ID)
	assert.Nil(t, got)

	err := svc.DeleteOutboxRecord(ctx, rec.ID)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestRecordDeadLetterValidation(t *testing.T) {
	svc, _, dlRepo, _, notifier := setupService(t)
	ctx := context.Background()

	err := svc.RecordDeadLetter(ctx, nil, "boom", "CompensateOrder")
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_INPUT", domainErr.Code)

	err = svc.RecordDeadLetter(ctx, []byte(`{}`), "boom", "")
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_INPUT", domainErr.Code)

	require.NoError(t, svc.RecordDeadLetter(ctx, []byte(`{}`), "boom", "CompensateOrder"))
	assert.Len(t, dlRepo.records, 1)
	assert.Equal(t, shared.DeadLetterStatusPending, dlRepo.records[0].Status)
	assert.Equal(t, 1, notifier.low)
}

func TestOutboxStatsCountsByState(t *testing.T) {
	svc, repo, _, _, _ := setupService(t)
	ctx := context.Background()

	pending := pendingRecord(t)
	require.NoError(t, repo.Save(ctx, pending))

	done := pendingRecord(t)
	done.MarkProcessed()
	require.NoError(t, repo.Save(ctx, done))

	exhausted := pendingRecord(t)
	exhausted.RetryCount = 5
	exhausted.Processed = true
	require.NoError(t, repo.Save(ctx, exhausted))

	stats, err := svc.OutboxStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(2), stats.Processed)
	assert.Equal(t, int64(1), stats.Exhausted)
}
