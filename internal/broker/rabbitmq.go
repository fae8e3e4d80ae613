package broker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/AndreyBry/HSEGozon/internal/util"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	maxDialAttempts = 10
	dialBackoff     = 5 * time.Second
)

// Publisher publishes a typed message to a durable topic exchange
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey, messageType string, payload []byte) error
}

// Handler processes one delivered message. Returning an error causes a
// negative acknowledgement with requeue, so the message is redelivered.
type Handler func(ctx context.Context, payload []byte, messageID string) error

// Consumer delivers messages from a queue to a handler
type Consumer interface {
	Consume(ctx context.Context, queueName string, handler Handler) error
}

// ExchangeForQueue derives the exchange a queue binds to from its name
func ExchangeForQueue(queueName string) string {
	if strings.Contains(queueName, "payment") {
		return "payments"
	}
	return "orders"
}

// BindingKeyForQueue derives the routing key a queue binds with from its name
func BindingKeyForQueue(queueName string) string {
	if strings.Contains(queueName, "process-payment") {
		return "process.payment"
	}
	return "payment.status"
}

// Connection is a shared RabbitMQ connection with reconnect-on-demand.
// Both the publisher and the consumer of a service reuse one Connection.
type Connection struct {
	url    string
	logger *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

// NewConnection creates a connection manager. No dialing happens until the
// first publish or consume.
func NewConnection(url string) *Connection {
	return &Connection{
		url:    url,
		logger: util.GetLogger(),
	}
}

// Channel returns a fresh channel, dialing or re-dialing the underlying
// connection if needed.
func (c *Connection) Channel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.conn.IsClosed() {
		conn, err := c.dial()
		if err != nil {
			return nil, err
		}
		c.conn = conn
	}

	return c.conn.Channel()
}

// dial attempts the connection with a bounded retry budget: maxDialAttempts
// at a fixed backoff, then one more round with the backoff doubled.
func (c *Connection) dial() (*amqp.Connection, error) {
	backoff := dialBackoff
	var lastErr error

	for round := 0; round < 2; round++ {
		for attempt := 1; attempt <= maxDialAttempts; attempt++ {
			conn, err := amqp.Dial(c.url)
			if err == nil {
				c.logger.Info("Connected to RabbitMQ")
				return conn, nil
			}
			lastErr = err
			c.logger.Warn("Failed to connect to RabbitMQ, retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", maxDialAttempts),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			time.Sleep(backoff)
		}
		backoff *= 2
	}

	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", 2*maxDialAttempts, lastErr)
}

// Close closes the underlying connection if one was established
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// RabbitPublisher publishes persistent messages to durable topic exchanges
type RabbitPublisher struct {
	conn   *Connection
	logger *zap.Logger
}

// NewPublisher creates a publisher over a shared connection
func NewPublisher(conn *Connection) *RabbitPublisher {
	return &RabbitPublisher{
		conn:   conn,
		logger: util.GetLogger(),
	}
}

// Publish declares the exchange if absent and publishes one persistent
// message carrying the message type and a fresh transport message id.
// Errors are surfaced to the caller; the outbox worker treats them as
// per-message failures.
func (p *RabbitPublisher) Publish(ctx context.Context, exchange, routingKey, messageType string, payload []byte) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	err = ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         messageType,
		MessageId:    uuid.New().String(),
		Timestamp:    time.Now(),
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s/%s: %w", exchange, routingKey, err)
	}

	util.MessagesPublishedTotal.WithLabelValues(exchange, messageType).Inc()
	p.logger.Info("Message published",
		zap.String("exchange", exchange),
		zap.String("routing_key", routingKey),
		zap.String("message_type", messageType))

	return nil
}

// RabbitConsumer delivers queue messages to a handler with manual acks
type RabbitConsumer struct {
	conn   *Connection
	logger *zap.Logger
}

// NewConsumer creates a consumer over a shared connection
func NewConsumer(conn *Connection) *RabbitConsumer {
	return &RabbitConsumer{
		conn:   conn,
		logger: util.GetLogger(),
	}
}

// Consume declares the exchange, queue and binding by the naming convention,
// then delivers each message to the handler. Handler success acks the
// message; handler failure nacks it with requeue, guaranteeing eventual
// redelivery. Blocks until ctx is cancelled or the channel dies.
func (c *RabbitConsumer) Consume(ctx context.Context, queueName string, handler Handler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	exchange := ExchangeForQueue(queueName)
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	bindingKey := BindingKeyForQueue(queueName)
	if err := ch.QueueBind(queueName, bindingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s to %s/%s: %w", queueName, exchange, bindingKey, err)
	}

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming from %s: %w", queueName, err)
	}

	c.logger.Info("Started consuming",
		zap.String("queue", queueName),
		zap.String("exchange", exchange),
		zap.String("binding_key", bindingKey))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %s", queueName)
			}
			c.handleDelivery(ctx, queueName, d, handler)
		}
	}
}

func (c *RabbitConsumer) handleDelivery(ctx context.Context, queueName string, d amqp.Delivery, handler Handler) {
	messageID := d.MessageId
	if messageID == "" {
		messageID = uuid.New().String()
	}

	if err := handler(ctx, d.Body, messageID); err != nil {
		c.logger.Error("Error handling message, requeueing",
			zap.String("queue", queueName),
			zap.String("message_id", messageID),
			zap.Error(err))
		if nackErr := d.Nack(false, true); nackErr != nil {
			c.logger.Error("Failed to nack message", zap.String("message_id", messageID), zap.Error(nackErr))
		}
		return
	}

	if ackErr := d.Ack(false); ackErr != nil {
		c.logger.Error("Failed to ack message", zap.String("message_id", messageID), zap.Error(ackErr))
		return
	}

	c.logger.Info("Message processed",
		zap.String("queue", queueName),
		zap.String("message_id", messageID))
}
