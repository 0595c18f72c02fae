package services

import (
	"context"
	"time"

	"payment-service/repository"

	"go.uber.org/zap"
)

// RetrySweeper periodically republishes failed-but-retryable payment
// requests older than the cooldown window. It covers requests whose
// publish or timed republish was lost between the durable create and
// the queue.
type RetrySweeper struct {
	requests  repository.PaymentRequestRepository
	publisher MessagePublisher
	interval  time.Duration
	cooldown  time.Duration
	logger    *zap.Logger
}

func NewRetrySweeper(
	requests repository.PaymentRequestRepository,
	publisher MessagePublisher,
	interval, cooldown time.Duration,
	logger *zap.Logger,
) *RetrySweeper {
	return &RetrySweeper{
		requests:  requests,
		publisher: publisher,
		interval:  interval,
		cooldown:  cooldown,
		logger:    logger,
	}
}

// Start runs the sweep loop until the context is cancelled.
func (s *RetrySweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Retry sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("cooldown", s.cooldown),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Retry sweeper stopping")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep republishes every eligible failed request once.
func (s *RetrySweeper) Sweep(ctx context.Context) {
	eligible, err := s.requests.FindFailedForRetry(ctx, s.cooldown)
	if err != nil {
		s.logger.Error("Retry sweep query failed", zap.Error(err))
		return
	}

	for _, pr := range eligible {
		if err := s.publisher.PublishPaymentRequest(ctx, pr.ID); err != nil {
			s.logger.Error("Retry sweep republish failed",
				zap.String("payment_request_id", pr.ID.String()), zap.Error(err))
			continue
		}
		s.logger.Info("Retry sweep republished payment request",
			zap.String("payment_request_id", pr.ID.String()),
			zap.Int("retry_count", pr.RetryCount),
		)
	}
}
