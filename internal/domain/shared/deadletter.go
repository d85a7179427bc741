package shared

import (
	"context"
	"time"
)

// DeadLetterStatus represents the lifecycle state of a dead letter record
type DeadLetterStatus string

const (
	DeadLetterStatusPending   DeadLetterStatus = "PENDING"
	DeadLetterStatusProcessed DeadLetterStatus = "PROCESSED"
	DeadLetterStatusFailed    DeadLetterStatus = "FAILED"
)

// DeadLetterRecord holds a raw message the broker could not deliver to any
// consumer, kept for periodic replay. Failed is terminal: a record that
// exhausted its replay attempts is never processed automatically again.
type DeadLetterRecord struct {
	ID             uint `gorm:"primaryKey;autoIncrement"`
	MessageContent []byte
	Error          string
	Source         string
	CreatedAt      time.Time
	LastRetryAt    *time.Time
	RetryCount     int
	Status         DeadLetterStatus
}

// TableName overrides the GORM table name
func (DeadLetterRecord) TableName() string {
	return "dead_letter_records"
}

// NewDeadLetterRecord creates a pending dead letter record from a failed message
func NewDeadLetterRecord(messageContent []byte, errMsg, source string) *DeadLetterRecord {
	return &DeadLetterRecord{
		MessageContent: messageContent,
		Error:          errMsg,
		Source:         source,
		CreatedAt:      time.Now().UTC(),
		RetryCount:     0,
		Status:         DeadLetterStatusPending,
	}
}

// MarkProcessed transitions the record to its success state after a republish
func (r *DeadLetterRecord) MarkProcessed() {
	now := time.Now().UTC()
	r.Status = DeadLetterStatusProcessed
	r.LastRetryAt = &now
}

// MarkRetryFailed records one failed replay attempt. Reaching the ceiling
// transitions the record to the terminal Failed state.
func (r *DeadLetterRecord) MarkRetryFailed(replayCeiling int) {
	now := time.Now().UTC()
	r.RetryCount++
	r.LastRetryAt = &now
	if r.RetryCount >= replayCeiling {
		r.Status = DeadLetterStatusFailed
	}
}

// IsFailed returns true once the record is terminal
func (r *DeadLetterRecord) IsFailed() bool {
	return r.Status == DeadLetterStatusFailed
}

// DeadLetterRepository defines the interface for dead letter persistence
type DeadLetterRepository interface {
	// Save persists a new dead letter record
	Save(ctx context.Context, record *DeadLetterRecord) error
	// FindReplayable retrieves pending records below the replay ceiling
	FindReplayable(ctx context.Context, replayCeiling int) ([]*DeadLetterRecord, error)
	// Update persists mutations to an existing record
	Update(ctx context.Context, record *DeadLetterRecord) error
	// List retrieves records by status with pagination
	List(ctx context.Context, status *DeadLetterStatus, page, pageSize int) ([]*DeadLetterRecord, int64, error)
}
