package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bozor/internal/models"
)

// shipOrder walks a fresh order to SHIPPED and returns it with tracking set.
func shipOrder(t *testing.T, env *testEnv) models.Order {
	t.Helper()

	order := env.placeOrder(t)
	ctx := context.Background()
	for _, target := range []models.OrderStatus{models.StatusConfirmed, models.StatusPacked, models.StatusShipped} {
		_, err := env.orders.UpdateFulfillmentStatus(ctx, order.ID, target, env.sellerActor())
		require.NoError(t, err)
	}
	return env.reload(t, order.ID)
}

func TestCreateShipmentIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order := env.placeOrder(t)

	first, err := env.ships.CreateShipment(ctx, order)
	require.NoError(t, err)
	assert.NotEmpty(t, first.AWB)
	assert.Equal(t, models.ShipmentShipped, first.Status)
	require.Len(t, first.Events, 1)

	second, err := env.ships.CreateShipment(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, first.AWB, second.AWB)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, env.db.Model(&models.Shipment{}).
		Where("order_id = ?", order.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpdateShipmentStatusFanOut(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order := shipOrder(t, env)
	timelineBefore := env.timelineLen(t, order.ID)

	shipment, updated, err := env.ships.UpdateShipmentStatus(ctx, order.TrackingID,
		models.ShipmentOutForDelivery, "Distribution Hub")
	require.NoError(t, err)
	assert.Equal(t, models.ShipmentOutForDelivery, shipment.Status)
	assert.Equal(t, models.StatusOutForDelivery, updated.Status)
	assert.False(t, updated.IsDelivered)

	shipment, updated, err = env.ships.UpdateShipmentStatus(ctx, order.TrackingID,
		models.ShipmentDelivered, "Customer Address")
	require.NoError(t, err)
	assert.Equal(t, models.ShipmentDelivered, shipment.Status)
	assert.Equal(t, models.StatusDelivered, updated.Status)
	assert.True(t, updated.IsDelivered)
	require.NotNil(t, updated.DeliveredAt)

	// Each push appends one carrier event and mirrors one timeline entry.
	var events int64
	require.NoError(t, env.db.Model(&models.ShipmentEvent{}).
		Where("shipment_id = ?", shipment.ID).Count(&events).Error)
	assert.Equal(t, int64(3), events) // creation + two pushes
	assert.Equal(t, timelineBefore+2, env.timelineLen(t, order.ID))
}

func TestUpdateShipmentStatusRejectsNonCourierStatus(t *testing.T) {
	env := newTestEnv(t)

	order := shipOrder(t, env)

	var validationErr *ValidationError
	_, _, err := env.ships.UpdateShipmentStatus(context.Background(), order.TrackingID,
		models.ShipmentShipped, "Warehouse")
	require.ErrorAs(t, err, &validationErr)
}

func TestUpdateShipmentStatusUnknownAWB(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.ships.UpdateShipmentStatus(context.Background(), "AWB0000000000",
		models.ShipmentDelivered, "Nowhere")
	require.ErrorIs(t, err, ErrShipmentNotFound)
}

func TestUpdateShipmentStatusOutOfOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order := shipOrder(t, env)

	// Skipping OUT_FOR_DELIVERY is not a table edge.
	var transitionErr *InvalidTransitionError
	_, _, err := env.ships.UpdateShipmentStatus(ctx, order.TrackingID,
		models.ShipmentDelivered, "Customer Address")
	require.ErrorAs(t, err, &transitionErr)

	got := env.reload(t, order.ID)
	assert.Equal(t, models.StatusShipped, got.Status)
	assert.False(t, got.IsDelivered)

	// A rejected push leaves no carrier event behind either.
	var events int64
	require.NoError(t, env.db.Model(&models.ShipmentEvent{}).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestGetShipment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order := shipOrder(t, env)

	shipment, err := env.ships.GetShipment(ctx, order.TrackingID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, shipment.OrderID)
	assert.Equal(t, "Bozor Express", shipment.CarrierName)
	require.Len(t, shipment.Events, 1)

	_, err = env.ships.GetShipment(ctx, "AWB9999999999")
	require.ErrorIs(t, err, ErrShipmentNotFound)
}
