package event

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/orderhub/backend/internal/domain/shared"
)

// mockOutboxRepository is an in-memory outbox store for testing
type mockOutboxRepository struct {
	mu             sync.Mutex
	records        map[uuid.UUID]*shared.OutboxRecord
	order          []uuid.UUID
	findEligibleFn func(ctx context.Context, maxRetryCount, limit int) ([]*shared.OutboxRecord, error)
	updateFn       func(ctx context.Context, record *shared.OutboxRecord) error
	updateCalls    int
}

func newMockOutboxRepository() *mockOutboxRepository {
	return &mockOutboxRepository{
		records: make(map[uuid.UUID]*shared.OutboxRecord),
	}
}

func (r *mockOutboxRepository) Save(ctx context.Context, record *shared.OutboxRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.ID]; !ok {
		r.order = append(r.order, record.ID)
	}
	r.records[record.ID] = record
	return nil
}

func (r *mockOutboxRepository) FindEligible(ctx context.Context, maxRetryCount, limit int) ([]*shared.OutboxRecord, error) {
	if r.findEligibleFn != nil {
		return r.findEligibleFn(ctx, maxRetryCount, limit)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*shared.OutboxRecord
	for _, id := range r.order {
		rec := r.records[id]
		if !rec.Processed && rec.RetryCount < maxRetryCount {
			result = append(result, rec)
			if len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

func (r *mockOutboxRepository) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[id], nil
}

func (r *mockOutboxRepository) Update(ctx context.Context, record *shared.OutboxRecord) error {
	r.mu.Lock()
	r.updateCalls++
	r.mu.Unlock()
	if r.updateFn != nil {
		return r.updateFn(ctx, record)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
	return nil
}

func (r *mockOutboxRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
	return nil
}

func (r *mockOutboxRepository) List(ctx context.Context, filter shared.OutboxFilter) ([]*shared.OutboxRecord, int64, error) {
	return nil, 0, nil
}

func (r *mockOutboxRepository) Stats(ctx context.Context, maxRetryCount int) (*shared.OutboxStats, error) {
	return &shared.OutboxStats{}, nil
}

// mockLockService implements LockService on an in-memory map with real
// set-if-absent semantics so concurrent passes contend like they would
// against Redis
type mockLockService struct {
	mu        sync.Mutex
	locks     map[string]string
	acquireFn func(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	acquired  []string
	released  []string
}

func newMockLockService() *mockLockService {
	return &mockLockService{locks: make(map[string]string)}
}

func (s *mockLockService) TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if s.acquireFn != nil {
		return s.acquireFn(ctx, key, owner, ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.locks[key]; held {
		return false, nil
	}
	s.locks[key] = owner
	s.acquired = append(s.acquired, key)
	return true, nil
}

func (s *mockLockService) Release(ctx context.Context, key, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks[key] == owner {
		delete(s.locks, key)
		s.released = append(s.released, key)
	}
	return nil
}

func (s *mockLockService) heldKeys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

// mockPublisher records published messages and can fail on demand
type mockPublisher struct {
	mu        sync.Mutex
	published []publishedMessage
	failWith  error
	publishFn func(ctx context.Context, eventType string, payload []byte) error
}

type publishedMessage struct {
	eventType string
	payload   []byte
}

func (p *mockPublisher) Publish(ctx context.Context, eventType string, payload []byte) error {
	if p.publishFn != nil {
		return p.publishFn(ctx, eventType, payload)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	p.published = append(p.published, publishedMessage{eventType: eventType, payload: payload})
	return nil
}

func (p *mockPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

// mockNotifier counts alerts per severity
type mockNotifier struct {
	mu   sync.Mutex
	low  []string
	high []string
}

func (n *mockNotifier) NotifyLow(ctx context.Context, category, errMsg, correlationID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.low = append(n.low, correlationID)
}

func (n *mockNotifier) NotifyHigh(ctx context.Context, category, errMsg, correlationID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.high = append(n.high, correlationID)
}

func (n *mockNotifier) lowCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.low)
}

func (n *mockNotifier) highCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.high)
}

// mockDeadLetterRepository is an in-memory dead letter store for testing
type mockDeadLetterRepository struct {
	mu      sync.Mutex
	nextID  uint
	records map[uint]*shared.DeadLetterRecord
	order   []uint
}

func newMockDeadLetterRepository() *mockDeadLetterRepository {
	return &mockDeadLetterRepository{records: make(map[uint]*shared.DeadLetterRecord)}
}

func (r *mockDeadLetterRepository) Save(ctx context.Context, record *shared.DeadLetterRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	record.ID = r.nextID
	r.records[record.ID] = record
	r.order = append(r.order, record.ID)
	return nil
}

func (r *mockDeadLetterRepository) FindReplayable(ctx context.Context, replayCeiling int) ([]*shared.DeadLetterRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*shared.DeadLetterRecord
	for _, id := range r.order {
		rec := r.records[id]
		if rec.Status == shared.DeadLetterStatusPending && rec.RetryCount < replayCeiling {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (r *mockDeadLetterRepository) Update(ctx context.Context, record *shared.DeadLetterRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
	return nil
}

func (r *mockDeadLetterRepository) List(ctx context.Context, status *shared.DeadLetterStatus, page, pageSize int) ([]*shared.DeadLetterRecord, int64, error) {
	return nil, 0, nil
}

var errBrokerDown = errors.New("broker unavailable")
