package persistence

import (
	"fmt"

	"github.com/orderhub/backend/internal/domain/order"
	"github.com/orderhub/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates the tables this service owns
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&order.Order{},
		&shared.OutboxRecord{},
		&shared.DeadLetterRecord{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// The eligibility query filters on processed + retry_count and sorts by
	// created_at; without this index every publisher pass scans the table.
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec(
			`CREATE INDEX IF NOT EXISTS idx_outbox_records_eligible
			 ON outbox_records (created_at) WHERE processed = false`,
		).Error; err != nil {
			return fmt.Errorf("failed to create outbox index: %w", err)
		}
	}

	return nil
}
