package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/orderhub/backend/internal/domain/order"
)

// ErrUnknownEventType is returned when no decoder is registered for a type tag.
// Callers treat it as the poison branch: such records can never be processed.
var ErrUnknownEventType = errors.New("unknown event type")

// DecodeFunc turns a raw payload into its typed event
type DecodeFunc func(data []byte) (any, error)

// Registry maps event type tags to decode functions. The tag set is closed
// and populated at startup; an unresolved tag is a first-class poison case,
// not a reflection failure.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]DecodeFunc
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		decoders: make(map[string]DecodeFunc),
	}
}

// Register registers a decode function for an event type tag
func (r *Registry) Register(eventType string, decode DecodeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[eventType] = decode
}

// Decode resolves the decoder for eventType and applies it to data
func (r *Registry) Decode(eventType string, data []byte) (any, error) {
	r.mu.RLock()
	decode, ok := r.decoders[eventType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}

	return decode(data)
}

// IsRegistered checks if an event type tag has a decoder
func (r *Registry) IsRegistered(eventType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.decoders[eventType]
	return ok
}

// RegisteredTypes returns all registered event type tags
func (r *Registry) RegisteredTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.decoders))
	for t := range r.decoders {
		types = append(types, t)
	}
	return types
}

// jsonDecoder builds a DecodeFunc that unmarshals into T
func jsonDecoder[T any]() DecodeFunc {
	return func(data []byte) (any, error) {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		return &v, nil
	}
}

// NewOrderEventRegistry returns a registry populated with the closed set of
// order event types this service publishes and replays
func NewOrderEventRegistry() *Registry {
	r := NewRegistry()
	r.Register(order.EventTypeOrderCreated, jsonDecoder[order.CreatedEvent]())
	r.Register(order.EventTypeOrderFulfilled, jsonDecoder[order.FulfilledEvent]())
	r.Register(order.EventTypeCompensateOrder, jsonDecoder[order.CompensateEvent]())
	r.Register(order.EventTypeOrderCompensated, jsonDecoder[order.CompensatedEvent]())
	return r
}
