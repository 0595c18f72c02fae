package services

import (
	"context"
	"encoding/json"
	"fmt"

	"payment-service/models"
	"payment-service/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// OrderCreatedConsumer drains order-created summaries. The payload is
// logged for operational visibility; downstream fulfilment hooks in
// here.
type OrderCreatedConsumer struct {
	channel *rabbitmq.Channel
	logger  *zap.Logger
}

func NewOrderCreatedConsumer(channel *rabbitmq.Channel, logger *zap.Logger) *OrderCreatedConsumer {
	return &OrderCreatedConsumer{channel: channel, logger: logger}
}

// Start blocks until the context is cancelled or the stream closes.
func (c *OrderCreatedConsumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.Consume(rabbitmq.OrderCreatedQueue, 1)
	if err != nil {
		return fmt.Errorf("start order created consumer: %w", err)
	}

	c.logger.Info("Order created consumer started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Order created consumer stopping")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				c.logger.Warn("Delivery channel closed, consumer stopping")
				return nil
			}
			c.handleDelivery(d)
		}
	}
}

func (c *OrderCreatedConsumer) handleDelivery(d amqp.Delivery) {
	var msg models.OrderCreatedMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.logger.Error("Undeserializable order created message, dropping",
			zap.Error(err),
			zap.String("payload", string(d.Body)),
		)
		if nerr := d.Nack(false, false); nerr != nil {
			c.logger.Error("Failed to nack poison message", zap.Error(nerr))
		}
		return
	}

	c.logger.Info("Order created",
		zap.String("order_id", msg.OrderID.String()),
		zap.String("customer_id", msg.CustomerID.String()),
		zap.String("total", msg.Total.StringFixed(2)),
		zap.Int("item_count", msg.ItemCount),
	)

	if err := d.Ack(false); err != nil {
		c.logger.Error("Failed to ack order created message", zap.Error(err))
	}
}
