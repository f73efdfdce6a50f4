package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"gorm.io/gorm"

	"github.com/example/bozor/internal/models"
)

// ShipmentService is the shipment adapter: it owns shipment records and, for
// courier status pushes, fans the update back into the order aggregate. This
// is the one path where an external system drives order state outside the
// seller authorization check; the courier is assumed authenticated upstream.
type ShipmentService struct {
	db      *gorm.DB
	carrier string
	events  *EventPublisher
}

// NewShipmentService constructs a ShipmentService for the configured carrier.
func NewShipmentService(db *gorm.DB, carrier string, events *EventPublisher) *ShipmentService {
	return &ShipmentService{db: db, carrier: carrier, events: events}
}

// CreateShipment registers a shipment for the order. Idempotent per order:
// re-invocation returns the existing shipment unchanged and never mints a
// second AWB. A new shipment starts in SHIPPED with one history event.
func (s *ShipmentService) CreateShipment(ctx context.Context, order *models.Order) (*models.Shipment, error) {
	var shipment models.Shipment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Preload("Events").First(&shipment, "order_id = ?", order.ID).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		awb, err := generateAWB()
		if err != nil {
			return err
		}

		shipment = models.Shipment{
			AWB:         awb,
			OrderID:     order.ID,
			CarrierName: s.carrier,
			Status:      models.ShipmentShipped,
			Events: []models.ShipmentEvent{
				{Status: models.ShipmentShipped, Location: "Origin facility"},
			},
		}
		if err := tx.Create(&shipment).Error; err != nil {
			// A concurrent call may have won the unique index on order_id.
			if ferr := tx.Preload("Events").First(&shipment, "order_id = ?", order.ID).Error; ferr == nil {
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

// GetShipment loads a shipment with its history by AWB.
func (s *ShipmentService) GetShipment(ctx context.Context, awb string) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := s.db.WithContext(ctx).Preload("Events").
		First(&shipment, "awb = ?", awb).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShipmentNotFound
		}
		return nil, err
	}
	return &shipment, nil
}

// UpdateShipmentStatus records a courier status push and fans it out to the
// order: the shipment history gains one event, the order transitions through
// the courier-only edge of the table and gains a mirrored timeline entry,
// and delivery fields are stamped when the parcel is delivered. All of it
// commits in one transaction.
func (s *ShipmentService) UpdateShipmentStatus(ctx context.Context, awb string, status models.ShipmentStatus, location string) (*models.Shipment, *models.Order, error) {
	if status != models.ShipmentOutForDelivery && status != models.ShipmentDelivered {
		return nil, nil, &ValidationError{Field: "status", Reason: "must be OUT_FOR_DELIVERY or DELIVERED"}
	}

	var shipment models.Shipment
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&shipment, "awb = ?", awb).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrShipmentNotFound
			}
			return err
		}

		if err := tx.First(&order, "id = ?", shipment.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		target := models.OrderStatus(status)
		description := statusDescription(&order, target)
		if location != "" {
			description = fmt.Sprintf("%s (%s)", description, location)
		}
		if err := applyTransition(tx, &order, target, CourierInitiated, description); err != nil {
			return err
		}

		if err := tx.Model(&models.Shipment{}).
			Where("id = ?", shipment.ID).
			Update("status", status).Error; err != nil {
			return err
		}
		shipment.Status = status

		event := models.ShipmentEvent{
			ShipmentID: shipment.ID,
			Status:     status,
			Location:   location,
		}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}
		shipment.Events = append(shipment.Events, event)

		if status == models.ShipmentDelivered {
			now := time.Now()
			if err := tx.Model(&models.Order{}).
				Where("id = ?", order.ID).
				Updates(map[string]any{
					"is_delivered": true,
					"delivered_at": now,
				}).Error; err != nil {
				return err
			}
			order.IsDelivered = true
			order.DeliveredAt = &now
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.events.Publish(ctx, OrderEvent{
		Event:   "status_changed",
		OrderID: order.ID.String(),
		Status:  order.Status,
		IsPaid:  order.IsPaid,
		Detail:  location,
	})

	return &shipment, &order, nil
}

func generateAWB() (string, error) {
	max := big.NewInt(10_000_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("AWB%010d", n.Int64()), nil
}
