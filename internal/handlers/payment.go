package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/bozor/internal/middleware"
	"github.com/example/bozor/internal/services"
)

// PaymentHandler serves the checkout, verification callback and polling
// endpoints of the payment flow.
type PaymentHandler struct {
	orders *services.OrderService
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(orders *services.OrderService) *PaymentHandler {
	return &PaymentHandler{orders: orders}
}

type checkoutRequest struct {
	OrderID string `json:"order_id"`
}

// Checkout creates a payment intent for one of the buyer's unpaid orders.
// The client completes payment on the gateway's checkout page out-of-band.
func (h *PaymentHandler) Checkout(c *fiber.Ctx) error {
	actor, ok := middleware.GetCurrentActor(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order_id")
	}

	intent, err := h.orders.CreatePaymentIntent(c.Context(), orderID, actor.ID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": intent})
}

type verifyRequest struct {
	OrderID          string `json:"order_id"`
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
	PayerEmail       string `json:"payer_email"`
}

// Verify is the redirect/webhook callback proving payment completion. It is
// unauthenticated: the HMAC signature is the proof of origin. Duplicate
// calls for an already paid order succeed without effect.
func (h *PaymentHandler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.GatewayOrderID == "" || req.GatewayPaymentID == "" || req.Signature == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing gateway fields")
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order_id")
	}

	order, err := h.orders.VerifyPayment(c.Context(), orderID,
		req.GatewayOrderID, req.GatewayPaymentID, req.Signature, req.PayerEmail)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"order_id": order.ID,
			"is_paid":  order.IsPaid,
			"status":   order.Status,
			"paid_at":  order.PaidAt,
		},
	})
}

// Status is the unauthenticated polling endpoint a client hits after
// returning from the external payment page. Read only.
func (h *PaymentHandler) Status(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("orderID"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	status, err := h.orders.CheckPaymentStatus(c.Context(), orderID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": status})
}
