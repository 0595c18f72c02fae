package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	PaymentDlxExchange   = "payment-dlx"
	PaymentFailedQueue   = "payment-failed"
	PaymentRequestsQueue = "payment-requests"
	OrderCreatedQueue    = "order-created"
)

// Channel wraps an AMQP connection plus channel and owns the queue
// topology for the payment workflow. All queues are durable; the
// payment-requests queue dead-letters expired messages to payment-dlx
// so a stuck backlog surfaces on payment-failed.
type Channel struct {
	mu     sync.Mutex
	url    string
	ttl    time.Duration
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *zap.Logger
}

func NewChannel(url string, requestsTTL time.Duration, logger *zap.Logger) *Channel {
	return &Channel{url: url, ttl: requestsTTL, logger: logger}
}

// Connect dials the broker with bounded retries. On exhaustion the
// channel stays disconnected and the caller decides how to degrade.
func (c *Channel) Connect(ctx context.Context, attempts int, delay time.Duration) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Info("Connecting to RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", attempts),
		)

		if err := c.dial(); err != nil {
			lastErr = err
			c.logger.Warn("RabbitMQ connection failed, retrying",
				zap.Int("attempt", i+1),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		c.logger.Info("Connected to RabbitMQ successfully")
		return nil
	}
	return fmt.Errorf("rabbitmq connect failed after %d attempts: %w", attempts, lastErr)
}

func (c *Channel) dial() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := declareTopology(ch, c.ttl); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare topology: %w", err)
	}

	c.mu.Lock()
	old, oldConn := c.ch, c.conn
	c.ch, c.conn = ch, conn
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}
	if oldConn != nil {
		oldConn.Close()
	}
	return nil
}

func declareTopology(ch *amqp.Channel, requestsTTL time.Duration) error {
	if err := ch.ExchangeDeclare(PaymentDlxExchange, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(PaymentFailedQueue, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(PaymentFailedQueue, PaymentFailedQueue, PaymentDlxExchange, false, nil); err != nil {
		return err
	}
	// Messages lingering past the TTL are rerouted to the dead-letter
	// exchange instead of sitting in the backlog forever.
	requestArgs := amqp.Table{
		"x-dead-letter-exchange":    PaymentDlxExchange,
		"x-dead-letter-routing-key": PaymentFailedQueue,
		"x-message-ttl":             requestsTTL.Milliseconds(),
	}
	if _, err := ch.QueueDeclare(PaymentRequestsQueue, true, false, false, false, requestArgs); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(OrderCreatedQueue, true, false, false, false, nil); err != nil {
		return err
	}
	return nil
}

// Reconnect establishes a fresh connection and re-declares the topology.
func (c *Channel) Reconnect() error {
	c.logger.Info("Attempting to reconnect to RabbitMQ")
	if err := c.dial(); err != nil {
		c.logger.Error("RabbitMQ reconnection failed", zap.Error(err))
		return err
	}
	c.logger.Info("RabbitMQ reconnection successful")
	return nil
}

// Publish sends a persistent message to the named queue via the default
// exchange, stamping a message id and publish timestamp.
func (c *Channel) Publish(ctx context.Context, queueName string, body []byte) error {
	c.mu.Lock()
	ch := c.ch
	c.mu.Unlock()

	if ch == nil {
		return fmt.Errorf("rabbitmq channel is not connected")
	}

	messageID := uuid.NewString()
	err := ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queueName, err)
	}

	c.logger.Info("Message published",
		zap.String("queue", queueName),
		zap.String("message_id", messageID),
	)
	return nil
}

// Consume registers a manual-ack consumer on the named queue. Prefetch
// bounds in-flight work per consumer instance.
func (c *Channel) Consume(queueName string, prefetch int) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	ch := c.ch
	c.mu.Unlock()

	if ch == nil {
		return nil, fmt.Errorf("rabbitmq channel is not connected")
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", queueName, err)
	}
	return deliveries, nil
}

func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ch != nil {
		c.ch.Close()
		c.ch = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}
