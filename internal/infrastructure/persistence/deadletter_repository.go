package persistence

import (
	"context"

	"github.com/orderhub/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormDeadLetterRepository implements DeadLetterRepository using GORM
type GormDeadLetterRepository struct {
	db *gorm.DB
}

// NewGormDeadLetterRepository creates a new GORM-based dead letter repository
func NewGormDeadLetterRepository(db *gorm.DB) *GormDeadLetterRepository {
	return &GormDeadLetterRepository{db: db}
}

// Save persists a new dead letter record
func (r *GormDeadLetterRepository) Save(ctx context.Context, record *shared.DeadLetterRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindReplayable retrieves pending records below the replay ceiling, oldest first
func (r *GormDeadLetterRepository) FindReplayable(ctx context.Context, replayCeiling int) ([]*shared.DeadLetterRecord, error) {
	var records []*shared.DeadLetterRecord
	err := r.db.WithContext(ctx).
		Where("status = ? AND retry_count < ?", shared.DeadLetterStatusPending, replayCeiling).
		Order("created_at ASC").
		Find(&records).Error
	return records, err
}

// Update persists mutations to an existing record
func (r *GormDeadLetterRepository) Update(ctx context.Context, record *shared.DeadLetterRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// List retrieves records by status with pagination, newest first
func (r *GormDeadLetterRepository) List(ctx context.Context, status *shared.DeadLetterStatus, page, pageSize int) ([]*shared.DeadLetterRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&shared.DeadLetterRecord{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var records []*shared.DeadLetterRecord
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// Ensure GormDeadLetterRepository implements DeadLetterRepository
var _ shared.DeadLetterRepository = (*GormDeadLetterRepository)(nil)
