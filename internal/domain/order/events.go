package order

import "github.com/google/uuid"

// Event type tags form the closed set understood by the decode registry.
// Tags are stable wire identifiers; renaming one breaks replay of stored
// records carrying the old tag.
const (
	EventTypeOrderCreated     = "OrderCreated"
	EventTypeOrderFulfilled   = "OrderFulfilled"
	EventTypeCompensateOrder  = "CompensateOrder"
	EventTypeOrderCompensated = "OrderCompensated"
)

// CreatedEvent is published when a new order is created
type CreatedEvent struct {
	CorrelationID uuid.UUID `json:"correlation_id"`
	OrderID       uuid.UUID `json:"order_id"`
}

// FulfilledEvent is published when an order completes all its steps
type FulfilledEvent struct {
	CorrelationID uuid.UUID `json:"correlation_id"`
	OrderID       uuid.UUID `json:"order_id"`
}

// CompensateEvent requests cancellation of an order whose creation failed
type CompensateEvent struct {
	CorrelationID uuid.UUID `json:"correlation_id"`
	OrderID       uuid.UUID `json:"order_id"`
}

// CompensatedEvent is published once an order has been compensated
type CompensatedEvent struct {
	CorrelationID uuid.UUID `json:"correlation_id"`
	OrderID       uuid.UUID `json:"order_id"`
}
