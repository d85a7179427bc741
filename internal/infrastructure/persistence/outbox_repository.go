package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/orderhub/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormOutboxRepository implements OutboxRepository using GORM
type GormOutboxRepository struct {
	db *gorm.DB
}

// NewGormOutboxRepository creates a new GORM-based outbox repository
func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

// WithTx returns a new repository instance bound to the given transaction.
// Enqueueing an event inside the caller's transaction is what makes the
// outbox write atomic with the business change.
func (r *GormOutboxRepository) WithTx(tx *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: tx}
}

// Save persists a new outbox record
func (r *GormOutboxRepository) Save(ctx context.Context, record *shared.OutboxRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindEligible retrieves unprocessed records below the retry ceiling, oldest first
func (r *GormOutboxRepository) FindEligible(ctx context.Context, maxRetryCount, limit int) ([]*shared.OutboxRecord, error) {
	var records []*shared.OutboxRecord
	err := r.db.WithContext(ctx).
		Where("processed = ? AND retry_count < ?", false, maxRetryCount).
		Order("created_at ASC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// FindByID retrieves a single record by ID
func (r *GormOutboxRepository) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxRecord, error) {
	var record shared.OutboxRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Update persists mutations to an existing record
func (r *GormOutboxRepository) Update(ctx context.Context, record *shared.OutboxRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// Delete removes a record
func (r *GormOutboxRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&shared.OutboxRecord{}).Error
}

// List retrieves records matching the filter with a total count, newest first
func (r *GormOutboxRepository) List(ctx context.Context, filter shared.OutboxFilter) ([]*shared.OutboxRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&shared.OutboxRecord{})

	if filter.Processed != nil {
		query = query.Where("processed = ?", *filter.Processed)
	}
	if filter.MinRetryCount != nil {
		query = query.Where("retry_count >= ?", *filter.MinRetryCount)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	var records []*shared.OutboxRecord
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// Stats returns counts for the monitoring surface
func (r *GormOutboxRepository) Stats(ctx context.Context, maxRetryCount int) (*shared.OutboxStats, error) {
	stats := &shared.OutboxStats{}

	if err := r.db.WithContext(ctx).Model(&shared.OutboxRecord{}).
		Where("processed = ?", false).
		Count(&stats.Pending).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Model(&shared.OutboxRecord{}).
		Where("processed = ?", true).
		Count(&stats.Processed).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Model(&shared.OutboxRecord{}).
		Where("retry_count >= ?", maxRetryCount).
		Count(&stats.Exhausted).Error; err != nil {
		return nil, err
	}

	var oldest shared.OutboxRecord
	err := r.db.WithContext(ctx).
		Where("processed = ?", false).
		Order("created_at ASC").
		First(&oldest).Error
	if err == nil {
		t := oldest.CreatedAt
		stats.OldestPending = &t
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return stats, nil
}

// Ensure GormOutboxRepository implements OutboxRepository
var _ shared.OutboxRepository = (*GormOutboxRepository)(nil)
