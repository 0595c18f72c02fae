package controllers

import (
	"net/http"
	"time"

	"payment-service/models"
	"payment-service/repository"
	"payment-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentController struct {
	Service  *services.PaymentService
	Requests repository.PaymentRequestRepository
	Logger   *zap.Logger
}

type processPaymentRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
	CustomerEmail string `json:"customer_email" binding:"required,email"`
}

type paymentRequestResponse struct {
	ID                uuid.UUID  `json:"id"`
	OrderID           uuid.UUID  `json:"order_id"`
	Amount            string     `json:"amount"`
	Currency          string     `json:"currency"`
	PaymentMethod     string     `json:"payment_method"`
	CustomerEmail     string     `json:"customer_email"`
	Status            string     `json:"status"`
	RetryCount        int        `json:"retry_count"`
	ErrorMessage      *string    `json:"error_message,omitempty"`
	ExternalPaymentID *string    `json:"external_payment_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	ProcessedAt       *time.Time `json:"processed_at,omitempty"`
}

func toPaymentRequestResponse(pr models.PaymentRequest) paymentRequestResponse {
	return paymentRequestResponse{
		ID:                pr.ID,
		OrderID:           pr.OrderID,
		Amount:            pr.Amount.StringFixed(2),
		Currency:          pr.Currency,
		PaymentMethod:     pr.PaymentMethod,
		CustomerEmail:     pr.CustomerEmail,
		Status:            string(pr.Status),
		RetryCount:        pr.RetryCount,
		ErrorMessage:      pr.ErrorMessage,
		ExternalPaymentID: pr.ExternalPaymentID,
		CreatedAt:         pr.CreatedAt,
		ProcessedAt:       pr.ProcessedAt,
	}
}

// ProcessPayment settles an order's payment: synchronously when the
// gateway cooperates, otherwise by queueing an async payment request.
func (pc *PaymentController) ProcessPayment(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req processPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome := pc.Service.ProcessPayment(c.Request.Context(), orderID, req.PaymentMethod, req.CustomerEmail)
	switch {
	case outcome.Success:
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"message":   outcome.Message,
			"reference": outcome.Reference,
		})
	case outcome.Pending:
		c.JSON(http.StatusAccepted, gin.H{
			"success":            false,
			"pending":            true,
			"message":            outcome.Message,
			"payment_request_id": outcome.Reference,
		})
	default:
		status := http.StatusBadRequest
		if outcome.Message == "order not found" {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"success": false, "message": outcome.Message})
	}
}

// GetPaymentRequest returns the current status of one payment request.
func (pc *PaymentController) GetPaymentRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment request id"})
		return
	}

	pr, err := pc.Requests.FindByID(c.Request.Context(), id)
	if err != nil {
		pc.Logger.Error("Failed to load payment request", zap.String("id", id.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if pr == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment request not found"})
		return
	}

	c.JSON(http.StatusOK, toPaymentRequestResponse(*pr))
}

// ListPendingRequests lists queued payment requests, oldest first.
func (pc *PaymentController) ListPendingRequests(c *gin.Context) {
	pending, err := pc.Requests.FindPending(c.Request.Context())
	if err != nil {
		pc.Logger.Error("Failed to list pending payment requests", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	out := make([]paymentRequestResponse, 0, len(pending))
	for _, pr := range pending {
		out = append(out, toPaymentRequestResponse(pr))
	}
	c.JSON(http.StatusOK, gin.H{"requests": out, "count": len(out)})
}
