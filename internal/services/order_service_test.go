package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bozor/internal/models"
	"github.com/example/bozor/internal/utils"
)

func TestCreateOrder(t *testing.T) {
	env := newTestEnv(t)

	order := env.placeOrder(t)

	assert.Equal(t, models.StatusPlaced, order.Status)
	assert.False(t, order.IsPaid)
	assert.Equal(t, 100.00, order.ItemsTotal)
	assert.Equal(t, 100.00, order.GrandTotal)
	assert.NotEmpty(t, order.OrderNumber)

	require.Len(t, order.Items, 1)
	item := order.Items[0]
	assert.Equal(t, "Ceramic Teapot", item.ProductName)
	assert.Equal(t, 100.00, item.UnitPrice)
	assert.Equal(t, 1, item.Quantity)

	// Address is a snapshot, not a reference.
	assert.Equal(t, "12 Navoi Street", order.ShippingAddressLine)
	assert.Equal(t, "Tashkent", order.ShippingCity)

	assert.Equal(t, 1, env.timelineLen(t, order.ID))
}

func TestCreateOrderSnapshotSurvivesProductEdit(t *testing.T) {
	env := newTestEnv(t)

	order := env.placeOrder(t)

	require.NoError(t, env.db.Model(&models.Product{}).
		Where("id = ?", env.product.ID).
		Updates(map[string]any{"name": "Renamed", "price": 999.0}).Error)

	got := env.reload(t, order.ID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Ceramic Teapot", got.Items[0].ProductName)
	assert.Equal(t, 100.00, got.Items[0].UnitPrice)
}

func TestCreateOrderValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var validationErr *ValidationError

	_, err := env.orders.CreateOrder(ctx, env.buyer.ID, CreateOrderInput{
		AddressID: env.address.ID.String(),
	})
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "items", validationErr.Field)

	_, err = env.orders.CreateOrder(ctx, env.buyer.ID, CreateOrderInput{
		Items:     []CreateOrderItemInput{{ProductID: env.product.ID.String(), Quantity: 0}},
		AddressID: env.address.ID.String(),
	})
	require.ErrorAs(t, err, &validationErr)

	_, err = env.orders.CreateOrder(ctx, env.buyer.ID, CreateOrderInput{
		Items:     []CreateOrderItemInput{{ProductID: uuid.NewString(), Quantity: 1}},
		AddressID: env.address.ID.String(),
	})
	require.ErrorAs(t, err, &validationErr)

	_, err = env.orders.CreateOrder(ctx, env.buyer.ID, CreateOrderInput{
		Items:     []CreateOrderItemInput{{ProductID: env.product.ID.String(), Quantity: 1}},
		AddressID: env.address.ID.String(),
		Tax:       -1,
	})
	require.ErrorAs(t, err, &validationErr)

	// A stale client total is rejected; a matching one within a cent passes.
	staleTotal := 90.00
	_, err = env.orders.CreateOrder(ctx, env.buyer.ID, CreateOrderInput{
		Items:      []CreateOrderItemInput{{ProductID: env.product.ID.String(), Quantity: 1}},
		AddressID:  env.address.ID.String(),
		GrandTotal: &staleTotal,
	})
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "grand_total", validationErr.Field)

	okTotal := 100.004
	order, err := env.orders.CreateOrder(ctx, env.buyer.ID, CreateOrderInput{
		Items:      []CreateOrderItemInput{{ProductID: env.product.ID.String(), Quantity: 1}},
		AddressID:  env.address.ID.String(),
		GrandTotal: &okTotal,
	})
	require.NoError(t, err)
	assert.Equal(t, 100.00, order.GrandTotal)
}

func TestVerifyPaymentMarksPaidOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order := env.placeOrder(t)
	sig := env.gateway.Sign("order_abc", "pay_123")

	got, err := env.orders.VerifyPayment(ctx, order.ID, "order_abc", "pay_123", sig, "buyer@example.com")
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	require.NotNil(t, got.PaidAt)
	assert.Equal(t, "captured", got.PaymentStatus)
	assert.Equal(t, "pay_123", got.GatewayPaymentID)
	assert.Equal(t, "buyer@example.com", got.PayerEmail)

	// Duplicate verification (deep-link callback plus polling check) is a
	// successful no-op: still one PAID timeline entry.
	got, err = env.orders.VerifyPayment(ctx, order.ID, "order_abc", "pay_123", sig, "buyer@example.com")
	require.NoError(t, err)
	assert.True(t, got.IsPaid)

	var paidEntries int64
	require.NoError(t, env.db.Model(&models.OrderTimelineEntry{}).
		Where("order_id = ? AND status = ?", order.ID, models.TimelinePaid).
		Count(&paidEntries).Error)
	assert.Equal(t, int64(1), paidEntries)
}

func TestVerifyPaymentTamperedSignature(t *testing.T) {
	env := newTestEnv(t)

	order := env.placeOrder(t)
	before := env.timelineLen(t, order.ID)

	_, err := env.orders.VerifyPayment(context.Background(), order.ID,
		"order_abc", "pay_123", "deadbeef", "")
	require.ErrorIs(t, err, ErrInvalidSignature)

	got := env.reload(t, order.ID)
	assert.False(t, got.IsPaid)
	assert.Equal(t, before, env.timelineLen(t, order.ID))
}

func TestVerifyPaymentUnknownOrder(t *testing.T) {
	env := newTestEnv(t)

	sig := env.gateway.Sign("order_abc", "pay_123")
	_, err := env.orders.VerifyPayment(context.Background(), uuid.New(),
		"order_abc", "pay_123", sig, "")
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCheckPaymentStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order := env.placeOrder(t)

	status, err := env.orders.CheckPaymentStatus(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, status.IsPaid)
	assert.Equal(t, models.StatusPlaced, status.Status)

	sig := env.gateway.Sign("order_abc", "pay_123")
	_, err = env.orders.VerifyPayment(ctx, order.ID, "order_abc", "pay_123", sig, "")
	require.NoError(t, err)

	status, err = env.orders.CheckPaymentStatus(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, status.IsPaid)
	assert.NotNil(t, status.PaidAt)

	_, err = env.orders.CheckPaymentStatus(ctx, uuid.New())
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCreatePaymentIntent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order := env.placeOrder(t)

	intent, err := env.orders.CreatePaymentIntent(ctx, order.ID, env.buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), intent.Amount)

	got := env.reload(t, order.ID)
	assert.Equal(t, intent.GatewayOrderID, got.GatewayOrderID)
	assert.Equal(t, "created", got.PaymentStatus)

	// Someone else's order is invisible to this buyer.
	_, err = env.orders.CreatePaymentIntent(ctx, order.ID, env.seller.ID)
	require.ErrorIs(t, err, ErrOrderNotFound)

	sig := env.gateway.Sign("order_abc", "pay_123")
	_, err = env.orders.VerifyPayment(ctx, order.ID, "order_abc", "pay_123", sig, "")
	require.NoError(t, err)

	_, err = env.orders.CreatePaymentIntent(ctx, order.ID, env.buyer.ID)
	require.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestUpdateFulfillmentStatusUnauthorized(t *testing.T) {
	env := newTestEnv(t)

	order := env.placeOrder(t)
	stranger := seedUser(t, env.db, models.RoleSeller)

	_, err := env.orders.UpdateFulfillmentStatus(context.Background(), order.ID,
		models.StatusConfirmed, Actor{ID: stranger.ID, Role: models.RoleSeller})
	require.ErrorIs(t, err, ErrUnauthorized)

	got := env.reload(t, order.ID)
	assert.Equal(t, models.StatusPlaced, got.Status)
	assert.Equal(t, 1, env.timelineLen(t, order.ID))
}

func TestUpdateFulfillmentStatusAdminBypassesOwnership(t *testing.T) {
	env := newTestEnv(t)

	order := env.placeOrder(t)
	admin := seedUser(t, env.db, models.RoleAdmin)

	got, err := env.orders.UpdateFulfillmentStatus(context.Background(), order.ID,
		models.StatusConfirmed, Actor{ID: admin.ID, Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
}

func TestUpdateFulfillmentStatusInvalidTransition(t *testing.T) {
	env := newTestEnv(t)

	order := env.placeOrder(t)
	before := env.timelineLen(t, order.ID)

	var transitionErr *InvalidTransitionError
	_, err := env.orders.UpdateFulfillmentStatus(context.Background(), order.ID,
		models.StatusShipped, env.sellerActor())
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, models.StatusPlaced, transitionErr.From)
	assert.Equal(t, models.StatusShipped, transitionErr.To)

	got := env.reload(t, order.ID)
	assert.Equal(t, models.StatusPlaced, got.Status)
	assert.Equal(t, before, env.timelineLen(t, order.ID))
}

func TestUpdateFulfillmentStatusRejectsCourierStates(t *testing.T) {
	env := newTestEnv(t)

	order := env.placeOrder(t)

	var validationErr *ValidationError
	for _, target := range []models.OrderStatus{models.StatusOutForDelivery, models.StatusDelivered} {
		_, err := env.orders.UpdateFulfillmentStatus(context.Background(), order.ID, target, env.sellerActor())
		require.ErrorAs(t, err, &validationErr, "seller must not set %s", target)
	}

	_, err := env.orders.UpdateFulfillmentStatus(context.Background(), order.ID,
		models.OrderStatus("BOGUS"), env.sellerActor())
	require.ErrorAs(t, err, &validationErr)
}

func TestSellerFlowThroughShipped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order := env.placeOrder(t)
	before := env.timelineLen(t, order.ID)

	for _, target := range []models.OrderStatus{models.StatusConfirmed, models.StatusPacked, models.StatusShipped} {
		got, err := env.orders.UpdateFulfillmentStatus(ctx, order.ID, target, env.sellerActor())
		require.NoError(t, err)
		assert.Equal(t, target, got.Status)
	}

	// One timeline entry per transition, no more, no less.
	assert.Equal(t, before+3, env.timelineLen(t, order.ID))

	got := env.reload(t, order.ID)
	assert.Equal(t, models.StatusShipped, got.Status)
	assert.NotEmpty(t, got.TrackingID)
	assert.Equal(t, "Bozor Express", got.CarrierName)

	var shipment models.Shipment
	require.NoError(t, env.db.First(&shipment, "order_id = ?", order.ID).Error)
	assert.Equal(t, got.TrackingID, shipment.AWB)
	assert.Equal(t, models.ShipmentShipped, shipment.Status)
}

func TestShippedTransitionFailOpenOnAdapterFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	orders := NewOrderService(env.db, env.gateway, failingShipments{}, nil, nil)

	order := env.placeOrder(t)
	for _, target := range []models.OrderStatus{models.StatusConfirmed, models.StatusPacked} {
		_, err := orders.UpdateFulfillmentStatus(ctx, order.ID, target, env.sellerActor())
		require.NoError(t, err)
	}

	// The seller's declaration of shipment stands even when the tracking
	// call fails; the order just has no tracking id yet.
	got, err := orders.UpdateFulfillmentStatus(ctx, order.ID, models.StatusShipped, env.sellerActor())
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, got.Status)

	reloaded := env.reload(t, order.ID)
	assert.Equal(t, models.StatusShipped, reloaded.Status)
	assert.Empty(t, reloaded.TrackingID)
}

func TestCancelPaidOrderRetainsPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order := env.placeOrder(t)
	sig := env.gateway.Sign("order_abc", "pay_123")
	_, err := env.orders.VerifyPayment(ctx, order.ID, "order_abc", "pay_123", sig, "")
	require.NoError(t, err)

	got, err := env.orders.UpdateFulfillmentStatus(ctx, order.ID, models.StatusCancelled, env.sellerActor())
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.True(t, got.IsPaid, "cancellation keeps the payment flag; no refund semantics")

	var entry models.OrderTimelineEntry
	require.NoError(t, env.db.Where("order_id = ? AND status = ?", order.ID, models.StatusCancelled).
		First(&entry).Error)
	assert.Contains(t, entry.Description, "payment retained")
}

func TestDeliveredOrderRejectsAllTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order := env.placeOrder(t)
	for _, target := range []models.OrderStatus{models.StatusConfirmed, models.StatusPacked, models.StatusShipped} {
		_, err := env.orders.UpdateFulfillmentStatus(ctx, order.ID, target, env.sellerActor())
		require.NoError(t, err)
	}

	got := env.reload(t, order.ID)
	_, _, err := env.ships.UpdateShipmentStatus(ctx, got.TrackingID, models.ShipmentOutForDelivery, "Hub")
	require.NoError(t, err)
	_, _, err = env.ships.UpdateShipmentStatus(ctx, got.TrackingID, models.ShipmentDelivered, "Customer Address")
	require.NoError(t, err)

	var transitionErr *InvalidTransitionError
	for _, target := range []models.OrderStatus{models.StatusConfirmed, models.StatusPacked, models.StatusShipped, models.StatusCancelled} {
		_, err := env.orders.UpdateFulfillmentStatus(ctx, order.ID, target, env.sellerActor())
		require.Error(t, err, "DELIVERED order accepted %s", target)
		if !errors.As(err, &transitionErr) {
			t.Fatalf("expected InvalidTransitionError for %s, got %v", target, err)
		}
	}
}

func TestGetOrdersForSeller(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	otherSeller := seedUser(t, env.db, models.RoleSeller)
	otherProduct := seedProduct(t, env.db, otherSeller.ID, 55.00)

	mine := env.placeOrder(t)

	theirs, err := env.orders.CreateOrder(ctx, env.buyer.ID, CreateOrderInput{
		Items:     []CreateOrderItemInput{{ProductID: otherProduct.ID.String(), Quantity: 2}},
		AddressID: env.address.ID.String(),
	})
	require.NoError(t, err)

	pg := utils.Pagination{Page: 1, Limit: 20}

	orders, total, err := env.orders.GetOrdersForSeller(ctx, env.seller.ID, pg)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, orders, 1)
	assert.Equal(t, mine.ID, orders[0].ID)

	orders, total, err = env.orders.GetOrdersForSeller(ctx, otherSeller.ID, pg)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, orders, 1)
	assert.Equal(t, theirs.ID, orders[0].ID)
}

func TestUpdateFulfillmentStatusUnknownOrder(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orders.UpdateFulfillmentStatus(context.Background(), uuid.New(),
		models.StatusConfirmed, env.sellerActor())
	require.ErrorIs(t, err, ErrOrderNotFound)
}
