package models

import (
	"github.com/google/uuid"
)

// ShipmentStatus mirrors the courier-side view of a parcel.
type ShipmentStatus string

const (
	ShipmentShipped        ShipmentStatus = "SHIPPED"
	ShipmentOutForDelivery ShipmentStatus = "OUT_FOR_DELIVERY"
	ShipmentDelivered      ShipmentStatus = "DELIVERED"
)

// Shipment is the carrier record for an order. The AWB is generated once and
// never changes; the unique index on OrderID guarantees at most one shipment
// per order.
type Shipment struct {
	BaseModel
	AWB         string         `gorm:"column:awb;uniqueIndex" json:"awb"`
	OrderID     uuid.UUID      `gorm:"type:uuid;uniqueIndex" json:"order_id"`
	CarrierName string         `json:"carrier_name"`
	Status      ShipmentStatus `json:"status"`
	Events      []ShipmentEvent `json:"events,omitempty"`
}

// ShipmentEvent is one line of the shipment's append-only carrier history.
type ShipmentEvent struct {
	BaseModel
	ShipmentID uuid.UUID      `gorm:"type:uuid;index" json:"shipment_id"`
	Status     ShipmentStatus `json:"status"`
	Location   string         `json:"location"`
}
