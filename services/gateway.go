package services

import (
	"context"

	"payment-service/models"
)

// PaymentResult is the gateway's answer for one charge attempt. When
// Success is false, Error carries the decline reason. Transport-level
// problems (timeout, network error, bad response) are returned as an
// error instead, so callers can tell a decline from a gateway fault.
type PaymentResult struct {
	Success          bool
	GatewayReference string
	Error            string
}

// PaymentGateway is the external payment-processing capability. It is
// opaque beyond success/decline/fault.
type PaymentGateway interface {
	Pay(ctx context.Context, order *models.Order) (PaymentResult, error)
}
