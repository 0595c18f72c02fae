package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRequestMessage is the wire payload on the payment-requests
// queue. RetryCount is a snapshot taken at publish time.
type PaymentRequestMessage struct {
	PaymentRequestID uuid.UUID       `json:"paymentRequestId"`
	OrderID          uuid.UUID       `json:"orderId"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentMethod    string          `json:"paymentMethod"`
	CustomerEmail    string          `json:"customerEmail"`
	RetryCount       int             `json:"retryCount"`
	RequestedAt      time.Time       `json:"requestedAt"`
}

// OrderCreatedMessage is the order summary published on the
// order-created queue.
type OrderCreatedMessage struct {
	OrderID         uuid.UUID       `json:"orderId"`
	CustomerID      uuid.UUID       `json:"customerId"`
	Total           decimal.Decimal `json:"total"`
	ItemCount       int             `json:"itemCount"`
	CustomerEmail   string          `json:"customerEmail"`
	ShippingAddress string          `json:"shippingAddress"`
	CreatedAt       time.Time       `json:"createdAt"`
}
