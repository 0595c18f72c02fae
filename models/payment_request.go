package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentRequestStatus string

const (
	PaymentRequestStatusPending    PaymentRequestStatus = "pending"
	PaymentRequestStatusProcessing PaymentRequestStatus = "processing"
	PaymentRequestStatusCompleted  PaymentRequestStatus = "completed"
	PaymentRequestStatusFailed     PaymentRequestStatus = "failed"
	PaymentRequestStatusCancelled  PaymentRequestStatus = "cancelled"
)

// MaxRetryCount caps how many failed attempts a payment request may
// accumulate before it is abandoned for manual intervention.
const MaxRetryCount = 3

// PaymentRequest is the durable record of one asynchronous payment
// attempt for an order. Rows are kept forever for audit; there is no
// delete path.
type PaymentRequest struct {
	ID                uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID            `gorm:"type:uuid;not null;index"`
	Amount            decimal.Decimal      `gorm:"type:numeric(12,2);not null"`
	Currency          string               `gorm:"type:varchar(10);not null"`
	PaymentMethod     string               `gorm:"type:varchar(50);not null"`
	CustomerEmail     string               `gorm:"type:varchar(255);not null"`
	Status            PaymentRequestStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	RetryCount        int                  `gorm:"not null;default:0"`
	ErrorMessage      *string              `gorm:"type:varchar(1024)"`
	ExternalPaymentID *string              `gorm:"type:varchar(255)"`
	ProcessedAt       *time.Time
	CreatedAt         time.Time      `gorm:"autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime"`
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

// NewPaymentRequest snapshots the order total at creation time; the
// amount is not re-validated against the order later.
func NewPaymentRequest(orderID uuid.UUID, amount decimal.Decimal, paymentMethod, customerEmail string) *PaymentRequest {
	return &PaymentRequest{
		ID:            uuid.New(),
		OrderID:       orderID,
		Amount:        amount,
		Currency:      "BRL",
		PaymentMethod: paymentMethod,
		CustomerEmail: customerEmail,
		Status:        PaymentRequestStatusPending,
	}
}

func (pr *PaymentRequest) MarkAsProcessing() {
	pr.Status = PaymentRequestStatusProcessing
}

func (pr *PaymentRequest) MarkAsCompleted(externalPaymentID string) {
	now := time.Now().UTC()
	pr.Status = PaymentRequestStatusCompleted
	pr.ExternalPaymentID = &externalPaymentID
	pr.ProcessedAt = &now
}

// MarkAsFailed records the failure reason and counts the attempt.
// RetryCount increments exactly once per call.
func (pr *PaymentRequest) MarkAsFailed(errorMessage string) {
	pr.Status = PaymentRequestStatusFailed
	pr.ErrorMessage = &errorMessage
	pr.RetryCount++
}

// MarkAsCancelled is terminal; a cancelled request is never retried.
func (pr *PaymentRequest) MarkAsCancelled() {
	pr.Status = PaymentRequestStatusCancelled
}

func (pr *PaymentRequest) CanRetry() bool {
	return pr.RetryCount < MaxRetryCount && pr.Status == PaymentRequestStatusFailed
}
