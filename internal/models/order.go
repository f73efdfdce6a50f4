package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the order's position in the fulfillment pipeline.
// Payment state is tracked separately on the order and never moves backwards.
type OrderStatus string

const (
	StatusPlaced         OrderStatus = "PLACED"
	StatusConfirmed      OrderStatus = "CONFIRMED"
	StatusPacked         OrderStatus = "PACKED"
	StatusShipped        OrderStatus = "SHIPPED"
	StatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	StatusDelivered      OrderStatus = "DELIVERED"
	StatusCancelled      OrderStatus = "CANCELLED"

	// TimelinePaid marks the payment audit entry on the timeline. It is not
	// a fulfillment state and never appears in the transition table.
	TimelinePaid OrderStatus = "PAID"
)

// orderTransitions lists the allowed targets for each status.
// DELIVERED and CANCELLED are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPlaced:         {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusPacked, StatusCancelled},
	StatusPacked:         {StatusShipped, StatusCancelled},
	StatusShipped:        {StatusOutForDelivery},
	StatusOutForDelivery: {StatusDelivered},
	StatusDelivered:      {},
	StatusCancelled:      {},
}

// CanTransitionTo reports whether target is a legal next status.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status has no outgoing transitions.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// IsValid reports whether s is a known status value.
func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// CourierOnly reports whether the status may only be set by the courier
// integration. Sellers hand off control once an order is shipped.
func (s OrderStatus) CourierOnly() bool {
	return s == StatusOutForDelivery || s == StatusDelivered
}

// SellerAssignable reports whether a seller may request this status directly.
func (s OrderStatus) SellerAssignable() bool {
	switch s {
	case StatusConfirmed, StatusPacked, StatusShipped, StatusCancelled:
		return true
	}
	return false
}

// Order is the aggregate root for a purchase. Line items and the shipping
// address are snapshots taken at checkout; later product or address edits
// must not change past orders. Orders are never hard-deleted.
type Order struct {
	BaseModel
	BuyerID     uuid.UUID   `gorm:"type:uuid;index" json:"buyer_id"`
	Buyer       *User       `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	OrderNumber string      `gorm:"uniqueIndex" json:"order_number"`
	Status      OrderStatus `gorm:"index" json:"status"`
	PlacedAt    time.Time   `json:"placed_at"`

	ItemsTotal float64 `json:"items_total"`
	Tax        float64 `json:"tax"`
	Shipping   float64 `json:"shipping"`
	GrandTotal float64 `json:"grand_total"`
	Currency   string  `json:"currency"`

	IsPaid           bool       `json:"is_paid"`
	PaidAt           *time.Time `json:"paid_at"`
	PaymentMethod    string     `json:"payment_method"`
	GatewayOrderID   string     `gorm:"index" json:"gateway_order_id"`
	GatewayPaymentID string     `json:"gateway_payment_id"`
	PaymentStatus    string     `json:"payment_status"`
	SettledAt        *time.Time `json:"settled_at"`
	PayerEmail       string     `json:"payer_email"`

	ShippingAddressLine string `json:"shipping_address_line"`
	ShippingApartment   string `json:"shipping_apartment"`
	ShippingCity        string `json:"shipping_city"`
	ShippingDistrict    string `json:"shipping_district"`
	ShippingPostalCode  string `json:"shipping_postal_code"`

	TrackingID  string     `json:"tracking_id"`
	CarrierName string     `json:"carrier_name"`
	IsDelivered bool       `json:"is_delivered"`
	DeliveredAt *time.Time `json:"delivered_at"`

	Items    []OrderItem          `json:"items,omitempty"`
	Timeline []OrderTimelineEntry `json:"timeline,omitempty"`
}

// OrderItem is a line item snapshot. ProductID is kept as a soft reference
// for the seller-ownership check; the display fields are frozen copies.
type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID  `gorm:"type:uuid;index" json:"order_id"`
	ProductID   *uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	ProductName string     `json:"product_name"`
	ImageURL    string     `json:"image_url"`
	Quantity    int        `json:"quantity"`
	UnitPrice   float64    `json:"unit_price"`
	LineTotal   float64    `json:"line_total"`
}

// OrderTimelineEntry is one line of the order's append-only audit log.
// Entries are written in the same transaction as the status change and are
// never edited or removed.
type OrderTimelineEntry struct {
	BaseModel
	OrderID     uuid.UUID   `gorm:"type:uuid;index" json:"order_id"`
	Status      OrderStatus `json:"status"`
	Description string      `json:"description"`
}
