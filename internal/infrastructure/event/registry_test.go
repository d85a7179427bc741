package event

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/orderhub/backend/internal/domain/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDecodeRegisteredType(t *testing.T) {
	registry := NewOrderEventRegistry()

	want := order.CreatedEvent{CorrelationID: uuid.New(), OrderID: uuid.New()}
	payload, err := json.Marshal(want)
	require.NoError(t, err)

	decoded, err := registry.Decode(order.EventTypeOrderCreated, payload)
	require.NoError(t, err)

	got, ok := decoded.(*order.CreatedEvent)
	require.True(t, ok)
	assert.Equal(t, want.CorrelationID, got.CorrelationID)
	assert.Equal(t, want.OrderID, got.OrderID)
}

func TestRegistryDecodeUnknownType(t *testing.T) {
	registry := NewOrderEventRegistry()

	_, err := registry.Decode("SomethingElse", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownEventType)
}

func TestRegistryDecodeMalformedPayload(t *testing.T) {
	registry := NewOrderEventRegistry()

	_, err := registry.Decode(order.EventTypeOrderCreated, []byte(`not json`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownEventType)
}

func TestRegistryIsRegistered(t *testing.T) {
	registry := NewOrderEventRegistry()

	assert.True(t, registry.IsRegistered(order.EventTypeOrderCreated))
	assert.True(t, registry.IsRegistered(order.EventTypeOrderFulfilled))
	assert.True(t, registry.IsRegistered(order.EventTypeCompensateOrder))
	assert.True(t, registry.IsRegistered(order.EventTypeOrderCompensated))
	assert.False(t, registry.IsRegistered("Unknown"))
}

func TestRegistryRegisteredTypes(t *testing.T) {
	registry := NewOrderEventRegistry()
	assert.Len(t, registry.RegisteredTypes(), 4)
}
