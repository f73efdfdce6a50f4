package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/bozor/internal/models"
	"github.com/example/bozor/internal/utils"
)

// TransitionOrigin tags who is driving a status change. Seller-initiated
// transitions pass the ownership check in UpdateFulfillmentStatus;
// courier-initiated ones arrive through the shipment fan-out and bypass it.
type TransitionOrigin int

const (
	SellerInitiated TransitionOrigin = iota
	CourierInitiated
)

// Actor is the authenticated principal supplied by the auth layer. The
// service trusts it without re-validating credentials.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// IsAdmin reports whether the actor may bypass the seller-ownership check.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// ShipmentCreator is the slice of the shipment adapter the order service
// needs for the SHIPPED side effect.
type ShipmentCreator interface {
	CreateShipment(ctx context.Context, order *models.Order) (*models.Shipment, error)
}

// OrderService orchestrates order creation, fulfillment transitions and the
// payment verification protocol. All collaborators are injected so tests can
// substitute fakes.
type OrderService struct {
	db        *gorm.DB
	gateway   PaymentGateway
	shipments ShipmentCreator
	events    *EventPublisher
	telegram  *TelegramService
}

// NewOrderService constructs an OrderService.
func NewOrderService(db *gorm.DB, gateway PaymentGateway, shipments ShipmentCreator, events *EventPublisher, telegram *TelegramService) *OrderService {
	return &OrderService{
		db:        db,
		gateway:   gateway,
		shipments: shipments,
		events:    events,
		telegram:  telegram,
	}
}

// CreateOrderItemInput selects a product and quantity at checkout.
type CreateOrderItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CreateOrderInput is the checkout submission payload. GrandTotal, when
// present, is the total the client displayed; it is checked against the
// server-computed total so a stale cart cannot be charged a different amount.
type CreateOrderInput struct {
	Items         []CreateOrderItemInput `json:"items"`
	AddressID     string                 `json:"address_id"`
	PaymentMethod string                 `json:"payment_method"`
	Currency      string                 `json:"currency"`
	Tax           float64                `json:"tax"`
	Shipping      float64                `json:"shipping"`
	GrandTotal    *float64               `json:"grand_total"`
}

// CreateOrder validates the submission, snapshots product and address data
// and persists the order in PLACED with its first timeline entry.
func (s *OrderService) CreateOrder(ctx context.Context, buyerID uuid.UUID, in CreateOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, &ValidationError{Field: "items", Reason: "order must contain at least one item"}
	}
	if in.Tax < 0 {
		return nil, &ValidationError{Field: "tax", Reason: "must not be negative"}
	}
	if in.Shipping < 0 {
		return nil, &ValidationError{Field: "shipping", Reason: "must not be negative"}
	}

	addressID, err := uuid.Parse(in.AddressID)
	if err != nil {
		return nil, &ValidationError{Field: "address_id", Reason: "invalid id"}
	}

	var address models.UserAddress
	if err := s.db.WithContext(ctx).
		First(&address, "id = ? AND user_id = ?", addressID, buyerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Field: "address_id", Reason: "address not found"}
		}
		return nil, err
	}

	order := models.Order{
		BuyerID:       buyerID,
		OrderNumber:   generateOrderNumber(),
		Status:        models.StatusPlaced,
		PlacedAt:      time.Now(),
		Tax:           in.Tax,
		Shipping:      in.Shipping,
		Currency:      in.Currency,
		PaymentMethod: in.PaymentMethod,

		ShippingAddressLine: address.AddressLine,
		ShippingApartment:   address.Apartment,
		ShippingCity:        address.City,
		ShippingDistrict:    address.District,
		ShippingPostalCode:  address.PostalCode,
	}

	if order.Currency == "" {
		order.Currency = "USD"
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = "gateway"
	}

	var itemsTotal float64
	for i, it := range in.Items {
		if it.Quantity < 1 {
			return nil, &ValidationError{
				Field:  "items",
				Reason: fmt.Sprintf("item %d: quantity must be at least 1", i),
			}
		}

		productID, err := uuid.Parse(it.ProductID)
		if err != nil {
			return nil, &ValidationError{
				Field:  "items",
				Reason: fmt.Sprintf("item %d: invalid product id", i),
			}
		}

		var product models.Product
		if err := s.db.WithContext(ctx).
			First(&product, "id = ? AND is_active = ?", productID, true).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &ValidationError{
					Field:  "items",
					Reason: fmt.Sprintf("item %d: product unavailable", i),
				}
			}
			return nil, err
		}

		lineTotal := round2(product.Price * float64(it.Quantity))
		itemsTotal += lineTotal

		order.Items = append(order.Items, models.OrderItem{
			ProductID:   &product.ID,
			ProductName: product.Name,
			ImageURL:    product.ImageURL,
			Quantity:    it.Quantity,
			UnitPrice:   product.Price,
			LineTotal:   lineTotal,
		})
	}

	order.ItemsTotal = round2(itemsTotal)
	order.GrandTotal = round2(order.ItemsTotal + order.Tax + order.Shipping)

	if in.GrandTotal != nil && math.Abs(*in.GrandTotal-order.GrandTotal) > 0.01 {
		return nil, &ValidationError{
			Field:  "grand_total",
			Reason: fmt.Sprintf("submitted total %.2f does not match computed total %.2f", *in.GrandTotal, order.GrandTotal),
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		entry := models.OrderTimelineEntry{
			OrderID:     order.ID,
			Status:      models.StatusPlaced,
			Description: "Order placed",
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, OrderEvent{
		Event:   "placed",
		OrderID: order.ID.String(),
		Status:  order.Status,
	})

	if s.telegram != nil {
		go s.notifyNewOrder(order)
	}

	return &order, nil
}

// UpdateFulfillmentStatus applies a seller-initiated transition. The actor
// must own at least one product on the order or be an admin, and the target
// must be a legal edge from the order's current status. For SHIPPED the
// shipment adapter is invoked after the transition commits; adapter failure
// is logged and swallowed, so the seller's declaration stands even when the
// tracking call fails.
func (s *OrderService) UpdateFulfillmentStatus(ctx context.Context, orderID uuid.UUID, target models.OrderStatus, actor Actor) (*models.Order, error) {
	if !target.IsValid() {
		return nil, &ValidationError{Field: "status", Reason: "unknown status"}
	}
	if !target.SellerAssignable() {
		return nil, &ValidationError{Field: "status", Reason: "status is courier controlled"}
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		if !actor.IsAdmin() {
			owns, err := sellerOwnsOrderItem(tx, orderID, actor.ID)
			if err != nil {
				return err
			}
			if !owns {
				return ErrUnauthorized
			}
		}

		return applyTransition(tx, &order, target, SellerInitiated, statusDescription(&order, target))
	})
	if err != nil {
		return nil, err
	}

	if target == models.StatusShipped {
		s.attachShipment(ctx, &order)
	}

	s.events.Publish(ctx, OrderEvent{
		Event:   "status_changed",
		OrderID: order.ID.String(),
		Status:  order.Status,
		IsPaid:  order.IsPaid,
	})

	return &order, nil
}

// attachShipment runs the SHIPPED side effect. Failures do not roll the
// transition back; they are logged under [Shipment] and published as a
// shipment_create_failed event so reconciliation can pick them up.
func (s *OrderService) attachShipment(ctx context.Context, order *models.Order) {
	shipment, err := s.shipments.CreateShipment(ctx, order)
	if err != nil {
		failure := &AdapterFailureError{Adapter: "shipment", Err: err}
		log.Printf("[Shipment] create failed for order %s: %v", order.ID, failure)
		s.events.Publish(ctx, OrderEvent{
			Event:   "shipment_create_failed",
			OrderID: order.ID.String(),
			Status:  order.Status,
			IsPaid:  order.IsPaid,
			Detail:  err.Error(),
		})
		return
	}

	if err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"tracking_id":  shipment.AWB,
			"carrier_name": shipment.CarrierName,
		}).Error; err != nil {
		log.Printf("[Shipment] failed to record tracking for order %s: %v", order.ID, err)
		return
	}

	order.TrackingID = shipment.AWB
	order.CarrierName = shipment.CarrierName
}

// CreatePaymentIntent registers a gateway payment session for an unpaid
// order owned by the buyer and stamps the gateway order id onto the order.
func (s *OrderService) CreatePaymentIntent(ctx context.Context, orderID, buyerID uuid.UUID) (*PaymentIntent, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).
		First(&order, "id = ? AND buyer_id = ?", orderID, buyerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if order.IsPaid {
		return nil, ErrAlreadyPaid
	}

	intent, err := s.gateway.CreateIntent(&order)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"gateway_order_id": intent.GatewayOrderID,
			"payment_status":   "created",
		}).Error; err != nil {
		return nil, err
	}

	return intent, nil
}

// VerifyPayment proves that a claimed payment completion was authorized by
// the gateway and atomically marks the order paid. Calling it again for an
// already paid order is a successful no-op; both a redirect callback and a
// polling check may fire for the same payment.
func (s *OrderService) VerifyPayment(ctx context.Context, orderID uuid.UUID, gatewayOrderID, gatewayPaymentID, signature, payerEmail string) (*models.Order, error) {
	if !s.gateway.VerifySignature(gatewayOrderID, gatewayPaymentID, signature) {
		return nil, ErrInvalidSignature
	}

	var order models.Order
	var flipped bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		if order.IsPaid {
			return nil
		}

		now := time.Now()
		// Guarded update: flips is_paid exactly once even under concurrent
		// duplicate callbacks.
		res := tx.Model(&models.Order{}).
			Where("id = ? AND is_paid = ?", order.ID, false).
			Updates(map[string]any{
				"is_paid":            true,
				"paid_at":            now,
				"gateway_order_id":   gatewayOrderID,
				"gateway_payment_id": gatewayPaymentID,
				"payment_status":     "captured",
				"settled_at":         now,
				"payer_email":        payerEmail,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return tx.First(&order, "id = ?", order.ID).Error
		}

		order.IsPaid = true
		order.PaidAt = &now
		order.GatewayOrderID = gatewayOrderID
		order.GatewayPaymentID = gatewayPaymentID
		order.PaymentStatus = "captured"
		order.SettledAt = &now
		order.PayerEmail = payerEmail
		flipped = true

		entry := models.OrderTimelineEntry{
			OrderID:     order.ID,
			Status:      models.TimelinePaid,
			Description: "Payment received and verified",
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}

	if flipped {
		s.events.Publish(ctx, OrderEvent{
			Event:   "paid",
			OrderID: order.ID.String(),
			Status:  order.Status,
			IsPaid:  true,
		})
		if s.telegram != nil {
			go s.notifyPaymentSuccess(order)
		}
	}

	return &order, nil
}

// PaymentStatus is the polling view a client reads after returning from the
// external payment page.
type PaymentStatus struct {
	OrderID string             `json:"order_id"`
	IsPaid  bool               `json:"is_paid"`
	Status  models.OrderStatus `json:"status"`
	PaidAt  *time.Time         `json:"paid_at"`
}

// CheckPaymentStatus reports whether the order has been marked paid. Read
// only; re-proving the signature is not required here.
func (s *OrderService) CheckPaymentStatus(ctx context.Context, orderID uuid.UUID) (*PaymentStatus, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	return &PaymentStatus{
		OrderID: order.ID.String(),
		IsPaid:  order.IsPaid,
		Status:  order.Status,
		PaidAt:  order.PaidAt,
	}, nil
}

// GetOrdersForSeller returns every order containing at least one line item
// whose product belongs to the seller. Derived join, not a stored relation.
func (s *OrderService) GetOrdersForSeller(ctx context.Context, sellerID uuid.UUID, pg utils.Pagination) ([]models.Order, int64, error) {
	sellerOrderIDs := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.OrderItem{}).
			Select("order_items.order_id").
			Joins("JOIN products ON products.id = order_items.product_id").
			Where("products.seller_id = ?", sellerID)
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id IN (?)", sellerOrderIDs()).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := s.db.WithContext(ctx).
		Preload("Items").
		Where("id IN (?)", sellerOrderIDs()).
		Order("placed_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// applyTransition is the single code path for fulfillment status changes,
// shared by the seller and courier flows. It enforces the transition table,
// performs a compare-and-set on the current status and appends the timeline
// entry in the same transaction. Losing a concurrent race re-reads the row
// and re-evaluates against the updated status.
func applyTransition(tx *gorm.DB, order *models.Order, target models.OrderStatus, origin TransitionOrigin, description string) error {
	if target.CourierOnly() && origin != CourierInitiated {
		return ErrUnauthorized
	}

	for attempt := 0; attempt < 3; attempt++ {
		if !order.Status.CanTransitionTo(target) {
			return &InvalidTransitionError{From: order.Status, To: target}
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, order.Status).
			Update("status", target)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			order.Status = target
			entry := models.OrderTimelineEntry{
				OrderID:     order.ID,
				Status:      target,
				Description: description,
			}
			return tx.Create(&entry).Error
		}

		if err := tx.First(order, "id = ?", order.ID).Error; err != nil {
			return err
		}
	}

	return &InvalidTransitionError{From: order.Status, To: target}
}

func sellerOwnsOrderItem(tx *gorm.DB, orderID, sellerID uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(&models.OrderItem{}).
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("order_items.order_id = ? AND products.seller_id = ?", orderID, sellerID).
		Count(&count).Error
	return count > 0, err
}

func statusDescription(order *models.Order, target models.OrderStatus) string {
	switch target {
	case models.StatusConfirmed:
		return "Order confirmed by seller"
	case models.StatusPacked:
		return "Order packed and ready for dispatch"
	case models.StatusShipped:
		return "Order handed over for delivery"
	case models.StatusOutForDelivery:
		return "Courier is out for delivery"
	case models.StatusDelivered:
		return "Order delivered"
	case models.StatusCancelled:
		if order.IsPaid {
			// No refund trigger exists; flag for manual follow-up.
			return "Order cancelled; payment retained for manual review"
		}
		return "Order cancelled"
	}
	return string(target)
}

func (s *OrderService) notifyNewOrder(order models.Order) {
	items := make([]OrderItemNotification, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, OrderItemNotification{
			Name:     it.ProductName,
			Quantity: it.Quantity,
			Price:    it.UnitPrice,
			Currency: order.Currency,
		})
	}

	if err := s.telegram.NotifyNewOrder(OrderNotification{
		OrderID:       order.ID.String(),
		OrderNumber:   order.OrderNumber,
		Items:         items,
		GrandTotal:    order.GrandTotal,
		Currency:      order.Currency,
		PaymentMethod: order.PaymentMethod,
		Status:        string(order.Status),
	}); err != nil {
		log.Printf("[Order] Telegram notification failed for order %s: %v", order.OrderNumber, err)
	}
}

func (s *OrderService) notifyPaymentSuccess(order models.Order) {
	if err := s.telegram.NotifyPaymentSuccess(PaymentSuccessNotification{
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		Amount:      order.GrandTotal,
		Currency:    order.Currency,
	}); err != nil {
		log.Printf("[Payment] Telegram notification failed for order %s: %v", order.OrderNumber, err)
	}
}

func generateOrderNumber() string {
	return fmt.Sprintf("BZ-%09d", time.Now().UnixNano()%1_000_000_000)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
