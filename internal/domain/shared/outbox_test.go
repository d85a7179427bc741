package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOutboxRecord(t *testing.T) {
	record := NewOutboxRecord("OrderCreated", []byte(`{"a":1}`))

	assert.False(t, record.Processed)
	assert.Nil(t, record.ProcessedAt)
	assert.Equal(t, 0, record.RetryCount)
	assert.Equal(t, "OrderCreated", record.EventType)
	assert.False(t, record.CreatedAt.IsZero())
}

func TestOutboxRecordMarkProcessed(t *testing.T) {
	record := NewOutboxRecord("OrderCreated", nil)

	record.MarkProcessed()

	assert.True(t, record.Processed)
	require.NotNil(t, record.ProcessedAt)
}

func TestOutboxRecordMarkFailedBelowCeiling(t *testing.T) {
	record := NewOutboxRecord("OrderCreated", nil)

	record.MarkFailed(5)

	assert.Equal(t, 1, record.RetryCount)
	assert.False(t, record.Processed)
}

func TestOutboxRecordMarkFailedAtCeiling(t *testing.T) {
	record := NewOutboxRecord("OrderCreated", nil)
	record.RetryCount = 4

	record.MarkFailed(5)

	assert.Equal(t, 5, record.RetryCount)
	assert.True(t, record.Processed)
	// processedAt stays nil: the record was parked, not delivered
	assert.Nil(t, record.ProcessedAt)
}

func TestOutboxRecordResetForRetry(t *testing.T) {
	record := NewOutboxRecord("OrderCreated", nil)
	record.RetryCount = 5
	record.MarkProcessed()

	record.ResetForRetry()

	assert.False(t, record.Processed)
	assert.Nil(t, record.ProcessedAt)
	assert.Equal(t, 0, record.RetryCount)
}
