package services

import (
	"context"
	"fmt"

	"payment-service/models"
	"payment-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MessagePublisher enqueues domain records for asynchronous processing.
// Implemented by rabbitmq.Publisher.
type MessagePublisher interface {
	PublishPaymentRequest(ctx context.Context, paymentRequestID uuid.UUID) error
	PublishOrderCreated(ctx context.Context, orderID uuid.UUID) error
}

// ProcessPaymentOutcome reports how a payment attempt was settled:
// confirmed immediately, queued for async processing, or failed.
type ProcessPaymentOutcome struct {
	Success   bool
	Pending   bool
	Message   string
	Reference string
}

func outcomeSuccess(message, reference string) ProcessPaymentOutcome {
	return ProcessPaymentOutcome{Success: true, Message: message, Reference: reference}
}

func outcomePending(message, reference string) ProcessPaymentOutcome {
	return ProcessPaymentOutcome{Pending: true, Message: message, Reference: reference}
}

func outcomeFailure(message string) ProcessPaymentOutcome {
	return ProcessPaymentOutcome{Message: message}
}

// PaymentService coordinates the try-synchronous-then-queue payment
// policy for an order.
type PaymentService struct {
	orders    repository.OrderRepository
	requests  repository.PaymentRequestRepository
	publisher MessagePublisher
	gateway   PaymentGateway
	logger    *zap.Logger
}

func NewPaymentService(
	orders repository.OrderRepository,
	requests repository.PaymentRequestRepository,
	publisher MessagePublisher,
	gateway PaymentGateway,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		orders:    orders,
		requests:  requests,
		publisher: publisher,
		gateway:   gateway,
		logger:    logger,
	}
}

// ProcessPayment attempts a synchronous charge and falls back to the
// durable queue on decline or gateway fault. After it returns, the
// order is Confirmed or PaymentPending, never left at Pending.
func (s *PaymentService) ProcessPayment(ctx context.Context, orderID uuid.UUID, paymentMethod, customerEmail string) ProcessPaymentOutcome {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		s.logger.Error("Failed to load order", zap.String("order_id", orderID.String()), zap.Error(err))
		return outcomeFailure(fmt.Sprintf("internal error: %v", err))
	}
	if order == nil {
		return outcomeFailure("order not found")
	}

	s.logger.Info("Processing payment", zap.String("order_id", orderID.String()))

	// Gateway faults here are soft failures; the async path handles them.
	result, gerr := s.gateway.Pay(ctx, order)
	if gerr == nil && result.Success {
		order.Confirm()
		if err := s.orders.Update(ctx, order); err != nil {
			s.logger.Error("Failed to persist confirmed order",
				zap.String("order_id", orderID.String()), zap.Error(err))
			return outcomeFailure(fmt.Sprintf("internal error: %v", err))
		}
		s.logger.Info("Direct payment successful",
			zap.String("order_id", orderID.String()),
			zap.String("gateway_reference", result.GatewayReference),
		)
		return outcomeSuccess("payment processed successfully", result.GatewayReference)
	}

	if gerr != nil {
		s.logger.Warn("Direct payment errored, falling back to async processing",
			zap.String("order_id", orderID.String()), zap.Error(gerr))
	} else {
		s.logger.Warn("Direct payment declined, falling back to async processing",
			zap.String("order_id", orderID.String()), zap.String("reason", result.Error))
	}

	// One active request per order: if a request is already queued or
	// being processed, point the caller at it instead of stacking a
	// second attempt.
	if active, err := s.requests.FindActiveByOrderID(ctx, orderID); err != nil {
		s.logger.Error("Failed to check for active payment request",
			zap.String("order_id", orderID.String()), zap.Error(err))
		return outcomeFailure(fmt.Sprintf("internal error: %v", err))
	} else if active != nil {
		return outcomePending("payment request is already queued for processing", active.ID.String())
	}

	pr := models.NewPaymentRequest(orderID, order.Total(), paymentMethod, customerEmail)
	if err := s.requests.Create(ctx, pr); err != nil {
		s.logger.Error("Failed to create payment request",
			zap.String("order_id", orderID.String()), zap.Error(err))
		return outcomeFailure(fmt.Sprintf("internal error: %v", err))
	}

	order.MarkPaymentPending()
	if err := s.orders.Update(ctx, order); err != nil {
		// The payment request is durable; the consumer will move the
		// order forward on the next delivery.
		s.logger.Error("Failed to persist payment-pending order",
			zap.String("order_id", orderID.String()), zap.Error(err))
	}

	// Publish failures after the durable create never fail the call:
	// the retry sweep republishes from the stored record.
	if err := s.publisher.PublishPaymentRequest(ctx, pr.ID); err != nil {
		s.logger.Error("Failed to publish payment request, retry sweep will republish",
			zap.String("payment_request_id", pr.ID.String()), zap.Error(err))
	}

	s.logger.Info("Payment request queued",
		zap.String("order_id", orderID.String()),
		zap.String("payment_request_id", pr.ID.String()),
	)
	return outcomePending("payment request has been queued for processing", pr.ID.String())
}
