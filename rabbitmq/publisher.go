package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"payment-service/models"
	"payment-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher turns domain records into queue messages. It loads the
// record fresh from the store at publish time so retried publishes
// always carry current state.
type Publisher struct {
	channel  *Channel
	orders   repository.OrderRepository
	requests repository.PaymentRequestRepository
	logger   *zap.Logger
}

func NewPublisher(channel *Channel, orders repository.OrderRepository, requests repository.PaymentRequestRepository, logger *zap.Logger) *Publisher {
	return &Publisher{channel: channel, orders: orders, requests: requests, logger: logger}
}

// PublishPaymentRequest enqueues the payment request on payment-requests.
// A request that no longer exists is logged and skipped, not an error.
func (p *Publisher) PublishPaymentRequest(ctx context.Context, paymentRequestID uuid.UUID) error {
	pr, err := p.requests.FindByID(ctx, paymentRequestID)
	if err != nil {
		return fmt.Errorf("load payment request %s: %w", paymentRequestID, err)
	}
	if pr == nil {
		p.logger.Warn("PaymentRequest not found, skipping publish",
			zap.String("payment_request_id", paymentRequestID.String()),
		)
		return nil
	}

	msg := models.PaymentRequestMessage{
		PaymentRequestID: pr.ID,
		OrderID:          pr.OrderID,
		Amount:           pr.Amount,
		PaymentMethod:    pr.PaymentMethod,
		CustomerEmail:    pr.CustomerEmail,
		RetryCount:       pr.RetryCount,
		RequestedAt:      pr.CreatedAt,
	}
	return p.publish(ctx, PaymentRequestsQueue, msg)
}

// PublishOrderCreated enqueues an order summary on order-created.
func (p *Publisher) PublishOrderCreated(ctx context.Context, orderID uuid.UUID) error {
	order, err := p.orders.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", orderID, err)
	}
	if order == nil {
		p.logger.Warn("Order not found, skipping publish",
			zap.String("order_id", orderID.String()),
		)
		return nil
	}

	email := order.CustomerEmail
	if email == "" {
		email = "unknown@email.com"
	}
	address := order.ShippingAddress
	if address == "" {
		address = "No shipping address"
	}

	msg := models.OrderCreatedMessage{
		OrderID:         order.ID,
		CustomerID:      order.CustomerID,
		Total:           order.Total(),
		ItemCount:       len(order.Items),
		CustomerEmail:   email,
		ShippingAddress: address,
		CreatedAt:       order.CreatedAt,
	}
	return p.publish(ctx, OrderCreatedQueue, msg)
}

// publish serializes and sends, attempting one reconnect-and-redeclare
// cycle before giving up.
func (p *Publisher) publish(ctx context.Context, queueName string, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal message for %s: %w", queueName, err)
	}

	if err := p.channel.Publish(ctx, queueName, body); err != nil {
		p.logger.Warn("Publish failed, attempting reconnect",
			zap.String("queue", queueName),
			zap.Error(err),
		)
		if rerr := p.channel.Reconnect(); rerr != nil {
			return fmt.Errorf("publish to %s failed and reconnect failed: %w", queueName, rerr)
		}
		return p.channel.Publish(ctx, queueName, body)
	}
	return nil
}
