package services

import (
	"context"
	"fmt"
	"net/smtp"

	"payment-service/models"

	"go.uber.org/zap"
)

// NotificationService delivers order confirmations. Callers treat every
// send as best-effort: failures are logged, never propagated.
type NotificationService interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
}

// SMTPNotificationService sends confirmation email over plain SMTP.
type SMTPNotificationService struct {
	host     string
	port     string
	username string
	password string
	logger   *zap.Logger
}

func NewSMTPNotificationService(host, port, username, password string, logger *zap.Logger) *SMTPNotificationService {
	return &SMTPNotificationService{
		host:     host,
		port:     port,
		username: username,
		password: password,
		logger:   logger,
	}
}

func (s *SMTPNotificationService) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	to := order.CustomerEmail
	if to == "" {
		s.logger.Warn("Order has no customer email, skipping confirmation",
			zap.String("order_id", order.ID.String()),
		)
		return nil
	}

	shortID := order.ID.String()[:8]
	subject := fmt.Sprintf("Order Confirmation #%s", shortID)
	body := fmt.Sprintf(
		"<html><body>"+
			"<h1>Order confirmed!</h1>"+
			"<p>Order <strong>#%s</strong> has been confirmed.</p>"+
			"<p>Items: %d</p>"+
			"<p>Total: %s %s</p>"+
			"</body></html>",
		shortID, len(order.Items), order.Total().StringFixed(2), "BRL",
	)

	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	auth := smtp.PlainAuth("", s.username, s.password, s.host)

	msg := []byte(
		"From: " + s.username + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n" +
			"\r\n" +
			body,
	)

	if err := smtp.SendMail(addr, auth, s.username, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}

	s.logger.Info("Order confirmation email sent",
		zap.String("order_id", order.ID.String()),
		zap.String("to", to),
	)
	return nil
}

// LogNotificationService stands in when SMTP is not configured.
type LogNotificationService struct {
	logger *zap.Logger
}

func NewLogNotificationService(logger *zap.Logger) *LogNotificationService {
	return &LogNotificationService{logger: logger}
}

func (s *LogNotificationService) SendOrderConfirmation(_ context.Context, order *models.Order) error {
	s.logger.Info("Order confirmation (SMTP disabled)",
		zap.String("order_id", order.ID.String()),
		zap.String("to", order.CustomerEmail),
	)
	return nil
}
