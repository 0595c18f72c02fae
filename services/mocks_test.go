package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"payment-service/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// --- In-memory repositories ---

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*models.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[uuid.UUID]*models.Order)}
}

func (m *memOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return order, nil
}

func (m *memOrderRepo) Create(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
	return nil
}

func (m *memOrderRepo) Update(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
	return nil
}

type memRequestRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*models.PaymentRequest
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{requests: make(map[uuid.UUID]*models.PaymentRequest)}
}

func (m *memRequestRepo) Create(_ context.Context, pr *models.PaymentRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[pr.ID] = pr
	return nil
}

func (m *memRequestRepo) FindByID(_ context.Context, id uuid.UUID) (*models.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pr, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	return pr, nil
}

func (m *memRequestRepo) Update(_ context.Context, pr *models.PaymentRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[pr.ID] = pr
	return nil
}

func (m *memRequestRepo) FindPending(_ context.Context) ([]models.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PaymentRequest
	for _, pr := range m.requests {
		if pr.Status == models.PaymentRequestStatusPending {
			out = append(out, *pr)
		}
	}
	return out, nil
}

func (m *memRequestRepo) FindFailedForRetry(_ context.Context, minAge time.Duration) ([]models.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().UTC().Add(-minAge)
	var out []models.PaymentRequest
	for _, pr := range m.requests {
		if pr.Status == models.PaymentRequestStatusFailed &&
			pr.RetryCount < models.MaxRetryCount &&
			pr.CreatedAt.Before(cutoff) {
			out = append(out, *pr)
		}
	}
	return out, nil
}

func (m *memRequestRepo) FindActiveByOrderID(_ context.Context, orderID uuid.UUID) (*models.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pr := range m.requests {
		if pr.OrderID == orderID &&
			(pr.Status == models.PaymentRequestStatusPending || pr.Status == models.PaymentRequestStatusProcessing) {
			return pr, nil
		}
	}
	return nil, nil
}

// --- Publisher, gateway, notifier mocks ---

type publishCall struct {
	id uuid.UUID
	at time.Time
}

type mockPublisher struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
}

func (m *mockPublisher) PublishPaymentRequest(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, publishCall{id: id, at: time.Now()})
	return nil
}

func (m *mockPublisher) PublishOrderCreated(_ context.Context, _ uuid.UUID) error {
	return m.err
}

func (m *mockPublisher) published() []publishCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]publishCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// mockGateway replays a scripted sequence of responses; the last entry
// repeats once the script runs out.
type mockGateway struct {
	mu      sync.Mutex
	script  []gatewayReply
	callers int
}

type gatewayReply struct {
	result PaymentResult
	err    error
}

func (g *mockGateway) Pay(_ context.Context, _ *models.Order) (PaymentResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.callers
	if idx >= len(g.script) {
		idx = len(g.script) - 1
	}
	g.callers++
	reply := g.script[idx]
	return reply.result, reply.err
}

type mockNotifier struct {
	mu    sync.Mutex
	count int
	err   error
}

func (n *mockNotifier) SendOrderConfirmation(_ context.Context, _ *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
	return n.err
}

func (n *mockNotifier) sent() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

// --- Helpers ---

func decimalFrom(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func mustParseUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

func newTestOrder(total float64, shipping float64) *models.Order {
	order := &models.Order{
		ID:            uuid.New(),
		CustomerID:    uuid.New(),
		CustomerEmail: "buyer@example.com",
		ShippingCost:  decimal.NewFromFloat(shipping),
		Status:        models.OrderStatusPending,
	}
	order.AddItem(models.OrderItem{
		ProductID: uuid.New(),
		Quantity:  1,
		UnitPrice: decimal.NewFromFloat(total - shipping),
	})
	return order
}
