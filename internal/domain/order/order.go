package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of an order
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusConfirmed   Status = "CONFIRMED"
	StatusFulfilled   Status = "FULFILLED"
	StatusCompensated Status = "COMPENSATED"
)

// Order is the business aggregate whose changes are reported through the outbox
type Order struct {
	ID        uuid.UUID
	ProductID string
	Quantity  int
	Amount    decimal.Decimal
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the GORM table name
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates a pending order
func NewOrder(productID string, quantity int, amount decimal.Decimal) *Order {
	now := time.Now().UTC()
	return &Order{
		ID:        uuid.New(),
		ProductID: productID,
		Quantity:  quantity,
		Amount:    amount,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Repository defines the interface for order persistence
type Repository interface {
	Save(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, page, pageSize int) ([]*Order, int64, error)
}
