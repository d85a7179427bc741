package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxRecord represents a domain event stored for reliable delivery to the
// message broker. Records are written in the same local transaction as the
// business change they report and later drained by the outbox publisher.
type OutboxRecord struct {
	ID          uuid.UUID
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	Processed   bool
	ProcessedAt *time.Time
	RetryCount  int
}

// TableName overrides the GORM table name
func (OutboxRecord) TableName() string {
	return "outbox_records"
}

// NewOutboxRecord creates a new pending outbox record for the given event type
func NewOutboxRecord(eventType string, payload []byte) *OutboxRecord {
	return &OutboxRecord{
		ID:         uuid.New(),
		EventType:  eventType,
		Payload:    payload,
		CreatedAt:  time.Now().UTC(),
		Processed:  false,
		RetryCount: 0,
	}
}

// MarkProcessed marks the record as successfully forwarded to the broker.
// Processed records are never picked up by the publishing loop again.
func (r *OutboxRecord) MarkProcessed() {
	now := time.Now().UTC()
	r.Processed = true
	r.ProcessedAt = &now
}

// MarkFailed records one failed publish attempt. Once the retry ceiling is
// reached the record is marked processed anyway so it cannot block the queue
// forever; the caller is responsible for pairing this with an alert.
func (r *OutboxRecord) MarkFailed(maxRetryCount int) {
	r.RetryCount++
	if r.RetryCount >= maxRetryCount {
		r.Processed = true
	}
}

// ResetForRetry re-arms the record for the publishing loop. Operator action.
func (r *OutboxRecord) ResetForRetry() {
	r.Processed = false
	r.ProcessedAt = nil
	r.RetryCount = 0
}

// OutboxFilter narrows operator listing queries
type OutboxFilter struct {
	Processed     *bool
	MinRetryCount *int
	Page          int
	PageSize      int
}

// OutboxStats summarizes the outbox table for the monitoring surface
type OutboxStats struct {
	Pending       int64
	Processed     int64
	Exhausted     int64
	OldestPending *time.Time
}

// OutboxRepository defines the interface for outbox persistence
type OutboxRepository interface {
	// Save persists a new outbox record using the repository's connection
	Save(ctx context.Context, record *OutboxRecord) error
	// FindEligible retrieves unprocessed records below the retry ceiling,
	// oldest first, up to limit
	FindEligible(ctx context.Context, maxRetryCount, limit int) ([]*OutboxRecord, error)
	// FindByID retrieves a single record by ID
	FindByID(ctx context.Context, id uuid.UUID) (*OutboxRecord, error)
	// Update persists mutations to an existing record
	Update(ctx context.Context, record *OutboxRecord) error
	// Delete removes a record. Operator action only.
	Delete(ctx context.Context, id uuid.UUID) error
	// List retrieves records matching the filter with a total count
	List(ctx context.Context, filter OutboxFilter) ([]*OutboxRecord, int64, error)
	// Stats returns counts for the monitoring surface
	Stats(ctx context.Context, maxRetryCount int) (*OutboxStats, error)
}
