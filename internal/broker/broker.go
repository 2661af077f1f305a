// Package broker wraps the RabbitMQ connection shared by the API, the
// worker, and the webhook dispatcher. It owns the exchange and queue
// topology and provides a JSON publisher and a manually-acked consumer.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	connectAttempts = 10
	connectDelay    = 5 * time.Second
)

// Broker holds an AMQP connection and a channel for topology declarations
// and publishing. Consumers open their own channels so prefetch settings
// don't interfere.
type Broker struct {
	url    string
	logger *slog.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Connect dials RabbitMQ with bounded retries and declares the topology.
// The broker usually starts alongside the services in compose, so the
// first attempts may land before it accepts connections.
func Connect(url string, logger *slog.Logger) (*Broker, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var conn *amqp.Connection
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warn("broker connection failed, retrying",
			"attempt", attempt, "max_attempts", connectAttempts, "error", err)
		if attempt < connectAttempts {
			time.Sleep(connectDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker after %d attempts: %w", connectAttempts, err)
	}

	b := &Broker{url: url, logger: logger, conn: conn}
	if b.channel, err = conn.Channel(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := declareTopology(b.channel); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info("connected to message broker", "exchange", Exchange)
	return b, nil
}

// declareTopology declares the exchange, queues, and bindings. All
// declarations are idempotent, every process declares on startup.
func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	bindings := []struct {
		queue      string
		routingKey string
	}{
		{QueueJobs, RoutingKeyJobNew},
		{QueueCompleted, RoutingKeyJobCompleted},
	}
	for _, b := range bindings {
		if _, err := ch.QueueDeclare(b.queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", b.queue, err)
		}
		if err := ch.QueueBind(b.queue, b.routingKey, Exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", b.queue, err)
		}
	}
	return nil
}

// Publish sends a persistent JSON message to the exchange.
func (b *Broker) Publish(ctx context.Context, routingKey string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.channel.PublishWithContext(ctx, Exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	})
}

// Consume opens a dedicated channel with the given prefetch count and
// starts delivering messages from the queue. Deliveries require manual
// ack; nack with requeue on processing errors.
func (b *Broker) Consume(queue string, prefetch int) (<-chan amqp.Delivery, error) {
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open consumer channel: %w", err)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to consume from %s: %w", queue, err)
	}
	return deliveries, nil
}

// Ping reports whether the connection is still usable.
func (b *Broker) Ping() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil || b.conn.IsClosed() {
		return fmt.Errorf("broker connection closed")
	}
	return nil
}

// Close shuts down the channel and connection.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
