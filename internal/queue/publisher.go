package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQPublisher struct {
	client *RabbitMQ
}

func NewRabbitMQPublisher(client *RabbitMQ) *RabbitMQPublisher {
	return &RabbitMQPublisher{client: client}
}

func (p *RabbitMQPublisher) PublishDelayed(ctx context.Context, req NotificationRequest, delay time.Duration) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("publisher is not initialized")
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid notification request: %w", err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal notification request: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    req.NotificationID,
		Body:         payload,
	}
	if delay > 0 {
		publishing.Headers = amqp.Table{
			DelayHeader: delay.Milliseconds(),
		}
	}

	return p.publish(ctx, delayedExchange, RoutingKeyWork, publishing)
}

func (p *RabbitMQPublisher) PublishDeadLetter(ctx context.Context, body []byte) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("publisher is not initialized")
	}
	if len(body) == 0 {
		return fmt.Errorf("dead-letter body is required")
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	return p.publish(ctx, dlxExchange, RoutingKeyDeadLetter, publishing)
}

func (p *RabbitMQPublisher) publish(ctx context.Context, exchange, routingKey string, publishing amqp.Publishing) error {
	ch, err := p.client.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.PublishWithContext(ctx, exchange, routingKey, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish message to exchange %q key %q: %w", exchange, routingKey, err)
	}

	return nil
}

func (p *RabbitMQPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
