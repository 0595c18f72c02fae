package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"payment-service/models"
	"payment-service/rabbitmq"
	"payment-service/repository"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// PaymentRequestConsumer drives queued payment requests to a terminal
// state. Processing must tolerate redelivery: every transition it
// applies is an overwrite-safe no-op on a request that already passed
// through it.
type PaymentRequestConsumer struct {
	channel   *rabbitmq.Channel
	requests  repository.PaymentRequestRepository
	orders    repository.OrderRepository
	gateway   PaymentGateway
	publisher MessagePublisher
	notifier  NotificationService
	logger    *zap.Logger

	// retryBaseDelay scales the 2^retryCount backoff between republishes.
	retryBaseDelay time.Duration

	wg sync.WaitGroup
}

func NewPaymentRequestConsumer(
	channel *rabbitmq.Channel,
	requests repository.PaymentRequestRepository,
	orders repository.OrderRepository,
	gateway PaymentGateway,
	publisher MessagePublisher,
	notifier NotificationService,
	retryBaseDelay time.Duration,
	logger *zap.Logger,
) *PaymentRequestConsumer {
	return &PaymentRequestConsumer{
		channel:        channel,
		requests:       requests,
		orders:         orders,
		gateway:        gateway,
		publisher:      publisher,
		notifier:       notifier,
		retryBaseDelay: retryBaseDelay,
		logger:         logger,
	}
}

// Start begins consuming payment-requests with prefetch=1 and blocks
// until the context is cancelled or the delivery stream closes.
// In-flight work is not aborted on shutdown; Wait drains it.
func (c *PaymentRequestConsumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.Consume(rabbitmq.PaymentRequestsQueue, 1)
	if err != nil {
		return fmt.Errorf("start payment request consumer: %w", err)
	}

	c.logger.Info("Payment request consumer started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Payment request consumer stopping")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				c.logger.Warn("Delivery channel closed, consumer stopping")
				return nil
			}
			c.handleDelivery(ctx, d)
		}
	}
}

// Wait blocks until all scheduled republish timers have fired or been
// cancelled.
func (c *PaymentRequestConsumer) Wait() {
	c.wg.Wait()
}

func (c *PaymentRequestConsumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var msg models.PaymentRequestMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		// Poison message: drop without requeue so it cannot loop forever.
		c.logger.Error("Undeserializable payment request message, dropping",
			zap.Error(err),
			zap.String("payload", string(d.Body)),
		)
		if nerr := d.Nack(false, false); nerr != nil {
			c.logger.Error("Failed to nack poison message", zap.Error(nerr))
		}
		return
	}

	if err := c.process(ctx, msg); err != nil {
		// Unhandled processing errors also drop without requeue; the
		// dead-letter backlog is the operator's signal.
		c.logger.Error("Error processing payment request message",
			zap.String("payment_request_id", msg.PaymentRequestID.String()),
			zap.Error(err),
		)
		if nerr := d.Nack(false, false); nerr != nil {
			c.logger.Error("Failed to nack message", zap.Error(nerr))
		}
		return
	}

	if err := d.Ack(false); err != nil {
		c.logger.Error("Failed to ack message",
			zap.String("payment_request_id", msg.PaymentRequestID.String()),
			zap.Error(err),
		)
	}
}

func (c *PaymentRequestConsumer) process(ctx context.Context, msg models.PaymentRequestMessage) error {
	c.logger.Info("Processing payment request",
		zap.String("payment_request_id", msg.PaymentRequestID.String()),
		zap.String("order_id", msg.OrderID.String()),
	)

	pr, err := c.requests.FindByID(ctx, msg.PaymentRequestID)
	if err != nil {
		return fmt.Errorf("load payment request: %w", err)
	}
	if pr == nil {
		c.logger.Warn("PaymentRequest not found, dropping message",
			zap.String("payment_request_id", msg.PaymentRequestID.String()),
		)
		return nil
	}

	order, err := c.orders.FindByID(ctx, msg.OrderID)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		c.logger.Warn("Order not found, cancelling payment request",
			zap.String("order_id", msg.OrderID.String()),
			zap.String("payment_request_id", pr.ID.String()),
		)
		pr.MarkAsCancelled()
		return c.requests.Update(ctx, pr)
	}

	pr.MarkAsProcessing()
	order.MarkPaymentProcessing()
	if err := c.requests.Update(ctx, pr); err != nil {
		return fmt.Errorf("persist processing payment request: %w", err)
	}
	if err := c.orders.Update(ctx, order); err != nil {
		return fmt.Errorf("persist processing order: %w", err)
	}

	result, gerr := c.gateway.Pay(ctx, order)
	if gerr == nil && result.Success {
		pr.MarkAsCompleted(result.GatewayReference)
		order.Confirm()
		if err := c.requests.Update(ctx, pr); err != nil {
			return fmt.Errorf("persist completed payment request: %w", err)
		}
		if err := c.orders.Update(ctx, order); err != nil {
			return fmt.Errorf("persist confirmed order: %w", err)
		}

		c.logger.Info("Payment successful",
			zap.String("order_id", order.ID.String()),
			zap.String("gateway_reference", result.GatewayReference),
		)

		if err := c.notifier.SendOrderConfirmation(ctx, order); err != nil {
			c.logger.Error("Failed to send order confirmation",
				zap.String("order_id", order.ID.String()), zap.Error(err))
		}
		return nil
	}

	reason := result.Error
	if gerr != nil {
		reason = fmt.Sprintf("gateway error: %v", gerr)
	}
	if reason == "" {
		reason = "unknown payment error"
	}

	pr.MarkAsFailed(reason)
	order.MarkPaymentFailed()
	if err := c.requests.Update(ctx, pr); err != nil {
		return fmt.Errorf("persist failed payment request: %w", err)
	}
	if err := c.orders.Update(ctx, order); err != nil {
		return fmt.Errorf("persist failed order: %w", err)
	}

	c.logger.Warn("Payment failed",
		zap.String("order_id", order.ID.String()),
		zap.String("reason", reason),
		zap.Int("retry_count", pr.RetryCount),
	)

	if pr.CanRetry() {
		c.scheduleRepublish(ctx, pr)
	}
	return nil
}

// scheduleRepublish re-enqueues the request after an exponential delay
// on a timer goroutine, so the delivery handler is never blocked.
func (c *PaymentRequestConsumer) scheduleRepublish(ctx context.Context, pr *models.PaymentRequest) {
	delay := c.retryBaseDelay * (1 << pr.RetryCount)
	id := pr.ID

	c.logger.Info("Scheduling payment request republish",
		zap.String("payment_request_id", id.String()),
		zap.Duration("delay", delay),
		zap.Int("retry_count", pr.RetryCount),
	)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			c.logger.Info("Republish cancelled by shutdown",
				zap.String("payment_request_id", id.String()),
			)
		case <-timer.C:
			if err := c.publisher.PublishPaymentRequest(context.Background(), id); err != nil {
				c.logger.Error("Failed to republish payment request, retry sweep will pick it up",
					zap.String("payment_request_id", id.String()), zap.Error(err))
			}
		}
	}()
}
