package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"payment-service/models"

	"go.uber.org/zap"
)

// HTTPPaymentGateway charges through a remote gateway endpoint.
type HTTPPaymentGateway struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewHTTPPaymentGateway(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPPaymentGateway {
	return &HTTPPaymentGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type gatewayChargeRequest struct {
	OrderID  string `json:"order_id"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Email    string `json:"email"`
}

type gatewayChargeResponse struct {
	Success          bool   `json:"success"`
	GatewayReference string `json:"gateway_reference"`
	Error            string `json:"error"`
}

func (g *HTTPPaymentGateway) Pay(ctx context.Context, order *models.Order) (PaymentResult, error) {
	payload := gatewayChargeRequest{
		OrderID:  order.ID.String(),
		Amount:   order.Total().StringFixed(2),
		Currency: "BRL",
		Email:    order.CustomerEmail,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("marshal charge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return PaymentResult{}, fmt.Errorf("build charge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("gateway call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return PaymentResult{}, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var out gatewayChargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return PaymentResult{}, fmt.Errorf("decode gateway response: %w", err)
	}

	g.logger.Debug("Gateway charge attempted",
		zap.String("order_id", order.ID.String()),
		zap.Bool("success", out.Success),
	)

	return PaymentResult{
		Success:          out.Success,
		GatewayReference: out.GatewayReference,
		Error:            out.Error,
	}, nil
}
