package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/bozor/internal/config"
	"github.com/example/bozor/internal/database"
	"github.com/example/bozor/internal/routes"
	"github.com/example/bozor/internal/services"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)

	events, err := services.NewEventPublisher(cfg.AMQPUrl, cfg.OrderEventsExchange)
	if err != nil {
		log.Printf("[Events] Publisher disabled: %v", err)
	}
	defer events.Close()

	app := fiber.New(fiber.Config{
		AppName: "Bozor Marketplace API",
	})

	app.Use(recover.New())
	app.Use(logger.New())

	routes.Register(app, db, cfg, events)

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}
