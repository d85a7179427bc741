package order

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/orderhub/backend/internal/domain/order"
	"github.com/orderhub/backend/internal/domain/shared"
	"github.com/orderhub/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentPort is the downstream collaborator charged during order creation.
// Its failure triggers the compensation path.
type PaymentPort interface {
	Charge(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal) error
}

// Service handles order creation and the compensation trigger. Every domain
// event rides the outbox: the event record is written in the same transaction
// as the business change it reports, so either both commit or neither does.
type Service struct {
	db         *persistence.Database
	orderRepo  *persistence.GormOrderRepository
	outboxRepo *persistence.GormOutboxRepository
	payment    PaymentPort
	logger     *zap.Logger
}

// NewService creates an order service
func NewService(
	db *persistence.Database,
	orderRepo *persistence.GormOrderRepository,
	outboxRepo *persistence.GormOutboxRepository,
	payment PaymentPort,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:         db,
		orderRepo:  orderRepo,
		outboxRepo: outboxRepo,
		payment:    payment,
		logger:     logger,
	}
}

// CreateOrderInput carries validated order creation parameters
type CreateOrderInput struct {
	ProductID string
	Quantity  int
	Amount    decimal.Decimal
}

func (in CreateOrderInput) validate() error {
	if in.ProductID == "" {
		return shared.NewDomainError("INVALID_INPUT", "product_id is required")
	}
	if in.Quantity <= 0 {
		return shared.NewDomainError("INVALID_INPUT", "quantity must be positive")
	}
	if in.Amount.IsNegative() || in.Amount.IsZero() {
		return shared.NewDomainError("INVALID_INPUT", "amount must be positive")
	}
	return nil
}

// CreateOrder persists a new order and enqueues OrderCreated in the same
// transaction. When the payment call fails afterwards, a follow-up
// transaction enqueues CompensateOrder so the cancellation is delivered with
// the same reliability as the creation itself.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*order.Order, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	o := order.NewOrder(input.ProductID, input.Quantity, input.Amount)
	correlationID := uuid.New()

	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.orderRepo.WithTx(tx).Save(ctx, o); err != nil {
			return fmt.Errorf("failed to save order: %w", err)
		}
		return s.enqueueEvent(ctx, tx, order.EventTypeOrderCreated, order.CreatedEvent{
			CorrelationID: correlationID,
			OrderID:       o.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", o.ID.String()),
		zap.String("correlation_id", correlationID.String()),
	)

	if err := s.payment.Charge(ctx, o.ID, o.Amount); err != nil {
		s.logger.Warn("payment failed, scheduling compensation",
			zap.String("order_id", o.ID.String()),
			zap.Error(err),
		)
		if compErr := s.triggerCompensation(ctx, correlationID, o.ID); compErr != nil {
			return nil, compErr
		}
		return nil, shared.NewDomainError("PAYMENT_FAILED", "payment failed, order will be compensated")
	}

	return o, nil
}

// triggerCompensation enqueues CompensateOrder in its own transaction
func (s *Service) triggerCompensation(ctx context.Context, correlationID, orderID uuid.UUID) error {
	return s.db.Transaction(ctx, func(tx *gorm.DB) error {
		return s.enqueueEvent(ctx, tx, order.EventTypeCompensateOrder, order.CompensateEvent{
			CorrelationID: correlationID,
			OrderID:       orderID,
		})
	})
}

// GetOrder retrieves a single order
func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	o, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if o == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "order not found")
	}
	return o, nil
}

// ListOrders retrieves orders with pagination
func (s *Service) ListOrders(ctx context.Context, page, pageSize int) ([]*order.Order, int64, error) {
	return s.orderRepo.List(ctx, page, pageSize)
}

func (s *Service) enqueueEvent(ctx context.Context, tx *gorm.DB, eventType string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}
	record := shared.NewOutboxRecord(eventType, payload)
	if err := s.outboxRepo.WithTx(tx).Save(ctx, record); err != nil {
		return fmt.Errorf("failed to enqueue %s event: %w", eventType, err)
	}
	return nil
}
