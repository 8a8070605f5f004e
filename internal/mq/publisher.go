package mq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher handles message publishing to RabbitMQ
type Publisher struct {
	conn     *Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewPublisher creates a new RabbitMQ publisher
func NewPublisher(conn *Connection, exchange string, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	// Declare exchange
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// PositionEvent is published after a position report has been persisted
// for a vehicle.
type PositionEvent struct {
	VehicleID      string   `json:"vehicle_id"`
	DeviceID       string   `json:"device_id"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	Speed          *float64 `json:"speed"`
	Altitude       *float64 `json:"altitude"`
	BatteryLevel   *float64 `json:"battery_level"`
	SignalStrength *string  `json:"signal_strength"`
	Temperature    *float64 `json:"temperature"`
	RecordedAt     string   `json:"recorded_at"`
}

// DeadLetterEvent is published for reports that were accepted at the
// webhook but could not be persisted (unbound device, store failure).
type DeadLetterEvent struct {
	DeviceID   string `json:"device_id"`
	Reason     string `json:"reason"`
	ReceivedAt string `json:"received_at"`
}

// PublishPositionEvent publishes a persisted position report event
func (p *Publisher) PublishPositionEvent(ctx context.Context, event PositionEvent, routingKey string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.publish(ctx, routingKey, body); err != nil {
		return err
	}

	p.logger.Debug("published position event",
		zap.String("routing_key", routingKey),
		zap.String("vehicle_id", event.VehicleID),
		zap.String("device_id", event.DeviceID),
	)

	return nil
}

// PublishDeadLetter publishes a dead-letter event for a dropped report
func (p *Publisher) PublishDeadLetter(ctx context.Context, event DeadLetterEvent, routingKey string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.publish(ctx, routingKey, body); err != nil {
		return err
	}

	p.logger.Debug("published dead-letter event",
		zap.String("routing_key", routingKey),
		zap.String("device_id", event.DeviceID),
		zap.String("reason", event.Reason),
	)

	return nil
}

func (p *Publisher) publish(ctx context.Context, routingKey string, body []byte) error {
	err := p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Close closes the publisher channel
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
