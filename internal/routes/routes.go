package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/bozor/internal/config"
	"github.com/example/bozor/internal/handlers"
	"github.com/example/bozor/internal/middleware"
	"github.com/example/bozor/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, events *services.EventPublisher) {
	telegram := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	gateway := services.NewHMACGateway(cfg.PaymentKeyID, cfg.PaymentKeySecret, cfg.PaymentCheckoutURL)
	shipmentService := services.NewShipmentService(db, cfg.CourierName, events)
	orderService := services.NewOrderService(db, gateway, shipmentService, events, telegram)

	authHandler := handlers.NewAuthHandler(db, cfg)
	productHandler := handlers.NewProductHandler(db)
	profileHandler := handlers.NewProfileHandler(db)
	orderHandler := handlers.NewOrderHandler(db, orderService)
	sellerHandler := handlers.NewSellerHandler(orderService)
	paymentHandler := handlers.NewPaymentHandler(orderService)
	courierHandler := handlers.NewCourierHandler(shipmentService)

	api := app.Group("/api")

	// Auth
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Catalog
	products := api.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Get("/:id", productHandler.GetProduct)
	products.Post("/", middleware.AuthMiddleware(cfg), productHandler.CreateProduct)

	// Payment callback and polling are unauthenticated: the callback is
	// proven by its HMAC signature, the poll is a read of public state.
	payments := api.Group("/payments")
	payments.Post("/verify", paymentHandler.Verify)
	payments.Get("/status/:orderID", paymentHandler.Status)

	// Courier status surface, behind the shared carrier key.
	courier := api.Group("/courier", middleware.CourierAuthMiddleware(cfg.CourierAPIKey))
	courier.Get("/shipments/:awb", courierHandler.GetShipment)
	courier.Post("/shipments/:awb/status", courierHandler.UpdateStatus)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Post("/orders", orderHandler.CreateOrder)
	protected.Get("/orders", orderHandler.ListOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)

	protected.Post("/payments/checkout", paymentHandler.Checkout)

	protected.Get("/seller/orders", sellerHandler.ListOrders)
	protected.Patch("/seller/orders/:id/status", sellerHandler.UpdateStatus)

	protected.Get("/profile/addresses", profileHandler.ListAddresses)
	protected.Post("/profile/addresses", profileHandler.CreateAddress)
}
