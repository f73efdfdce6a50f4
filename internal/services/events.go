package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/bozor/internal/models"
)

// OrderEvent is the message published to the order events exchange after a
// state change commits. Downstream consumers (analytics workers, alerting)
// read these; the API never does.
type OrderEvent struct {
	Event     string             `json:"event"` // placed | status_changed | paid | shipment_create_failed
	OrderID   string             `json:"order_id"`
	Status    models.OrderStatus `json:"status"`
	IsPaid    bool               `json:"is_paid"`
	Timestamp time.Time          `json:"timestamp"`
	Detail    string             `json:"detail,omitempty"`
}

// EventPublisher fans order events out to a RabbitMQ exchange. A nil
// publisher is valid and publishes nothing, so the broker stays optional.
type EventPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewEventPublisher connects to RabbitMQ and declares the fanout exchange.
// An empty URL disables publishing and returns nil without error.
func NewEventPublisher(url, exchange string) (*EventPublisher, error) {
	if url == "" {
		return nil, nil
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		exchange,
		"fanout",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &EventPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
	}, nil
}

// Close releases the channel and connection.
func (p *EventPublisher) Close() {
	if p == nil {
		return
	}
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// Publish sends one event. Failures are logged, never propagated: losing an
// event must not fail the request that produced it.
func (p *EventPublisher) Publish(ctx context.Context, event OrderEvent) {
	if p == nil || p.channel == nil {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Events] Failed to marshal %s event: %v", event.Event, err)
		return
	}

	if err := p.channel.PublishWithContext(ctx,
		p.exchange,
		"",    // routing key (fanout)
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   event.Timestamp,
			Body:        body,
		},
	); err != nil {
		log.Printf("[Events] Failed to publish %s event for order %s: %v", event.Event, event.OrderID, err)
	}
}
