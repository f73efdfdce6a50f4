package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/bozor/internal/models"
	"github.com/example/bozor/internal/services"
)

// CourierHandler receives courier-side status pushes and feeds them into the
// shipment adapter's fan-out. The route sits behind the courier key check.
type CourierHandler struct {
	shipments *services.ShipmentService
}

// NewCourierHandler constructs a CourierHandler.
func NewCourierHandler(shipments *services.ShipmentService) *CourierHandler {
	return &CourierHandler{shipments: shipments}
}

type courierStatusRequest struct {
	Status   models.ShipmentStatus `json:"status"`
	Location string                `json:"location"`
}

// UpdateStatus applies a courier status push for the shipment identified by
// AWB and returns the updated shipment and order.
func (h *CourierHandler) UpdateStatus(c *fiber.Ctx) error {
	awb := c.Params("awb")
	if awb == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing awb")
	}

	var req courierStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	shipment, order, err := h.shipments.UpdateShipmentStatus(c.Context(), awb, req.Status, req.Location)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"shipment": shipment,
			"order": fiber.Map{
				"id":           order.ID,
				"status":       order.Status,
				"is_delivered": order.IsDelivered,
				"delivered_at": order.DeliveredAt,
			},
		},
	})
}

// GetShipment returns a shipment with its carrier history.
func (h *CourierHandler) GetShipment(c *fiber.Ctx) error {
	shipment, err := h.shipments.GetShipment(c.Context(), c.Params("awb"))
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": shipment})
}
